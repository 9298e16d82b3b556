package ir

// Version constants for the graph manifest and the generator.
const (
	// IRVersion is the graph manifest schema version.
	IRVersion = "1"

	// GeneratorVersion is stamped into generated source headers.
	GeneratorVersion = "0.1.0"
)
