package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cangen/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
	Cycles []compiler.CycleWarning    `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <interface-dir>",
		Short: "Validate an interface without generating output",
		Long: `Validate the CUE interface declarations in a directory.

Reports every problem at once: duplicate lifecycle methods, unknown type
and guard references, duplicate parameters and stable map ids, alias
cycles and infinitely sized types. Legal recursive types are listed for
information.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadInterface(dir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	if len(loaded.Issues) > 0 {
		return outputIssues(formatter, "Validation failed", loaded.Issues, ExitFailure)
	}

	if formatter.Structured() {
		return formatter.Success(ValidationResult{Valid: true, Cycles: loaded.Cycles})
	}

	fmt.Fprintf(formatter.Writer, "%sInterface valid: %d method(s), %d type(s)\n",
		formatter.Mark(true), len(loaded.Program.Methods), len(loaded.Program.Types))
	for _, c := range loaded.Cycles {
		fmt.Fprintf(formatter.Writer, "  info: %s\n", c.Message)
	}
	return nil
}
