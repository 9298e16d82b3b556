package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario scripts a sequence of calls against one canister interface.
//
// The realm function behind every method is scripted per call: it may write
// stable map entries, then returns, throws or resolves as the step says.
// The engine, marshaller and stable memory are the real ones.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Interface is the directory of the CUE interface package, relative to
	// the scenario file.
	Interface string `yaml:"interface"`

	// Calls are executed in order against one realm.
	Calls []CallStep `yaml:"calls"`

	// Assertions check the stable maps and the call log after the last call.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// CallStep is one host call.
type CallStep struct {
	// Method is the entry point to call.
	Method string `yaml:"method"`

	// Args are typed by the method's parameters.
	Args []yaml.Node `yaml:"args,omitempty"`

	// Returns is typed by the method's return type. A zero node means the
	// key is absent; an explicit null is kept.
	Returns yaml.Node `yaml:"returns,omitempty"`

	// ReturnsRaw is an untyped realm value, used to script ill-shaped
	// results.
	ReturnsRaw yaml.Node `yaml:"returns_raw,omitempty"`

	// Throws makes the method body throw an Error with this message.
	Throws string `yaml:"throws,omitempty"`

	// Deny makes the method's guard reject with this message.
	Deny string `yaml:"deny,omitempty"`

	// Store lists stable map writes the body performs before returning.
	Store []StoreOp `yaml:"store,omitempty"`

	// Expect checks the outcome. Nil accepts any outcome.
	Expect *Expect `yaml:"expect,omitempty"`
}

// StoreOp is one stable map insert.
type StoreOp struct {
	Map   string     `yaml:"map"`
	Key   *yaml.Node `yaml:"key"`
	Value *yaml.Node `yaml:"value"`
}

// Expect describes the expected outcome of a call. Exactly one of Reply and
// Trap is set.
type Expect struct {
	// Reply is the formatted reply tuple, e.g. `(opt record {id = 1 : nat64})`.
	Reply string `yaml:"reply,omitempty"`

	// Trap is the exact trap message.
	Trap string `yaml:"trap,omitempty"`

	// Kind optionally pins the trap classification.
	Kind string `yaml:"kind,omitempty"`
}

// Assertion validates state after the last call.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Map names a stable map (stable_len, stable_contains, stable_missing).
	Map string `yaml:"map,omitempty"`

	// Key is typed by the map's key type (stable_contains, stable_missing).
	Key *yaml.Node `yaml:"key,omitempty"`

	// Method names an entry point (reply_count, trap_count).
	Method string `yaml:"method,omitempty"`

	// Count is the expected length or number of outcomes.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStableLen      = "stable_len"
	AssertStableContains = "stable_contains"
	AssertStableMissing  = "stable_missing"
	AssertReplyCount     = "reply_count"
	AssertTrapCount      = "trap_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected and the interface path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if s.Interface != "" && !filepath.IsAbs(s.Interface) {
		s.Interface = filepath.Join(filepath.Dir(path), s.Interface)
	}
	if info, err := os.Stat(s.Interface); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("invalid scenario: interface directory not found: %s", s.Interface)
	}
	return s, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func present(n yaml.Node) bool {
	return n.Kind != 0
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Interface == "" {
		return fmt.Errorf("interface is required")
	}
	if len(s.Calls) == 0 {
		return fmt.Errorf("calls list is required and must be non-empty")
	}

	for i, step := range s.Calls {
		if step.Method == "" {
			return fmt.Errorf("calls[%d]: method is required", i)
		}
		if present(step.Returns) && present(step.ReturnsRaw) {
			return fmt.Errorf("calls[%d]: returns and returns_raw are mutually exclusive", i)
		}
		if step.Throws != "" && (present(step.Returns) || present(step.ReturnsRaw)) {
			return fmt.Errorf("calls[%d]: throws excludes returns", i)
		}
		for j, op := range step.Store {
			if op.Map == "" || op.Key == nil || op.Value == nil {
				return fmt.Errorf("calls[%d].store[%d]: map, key and value are required", i, j)
			}
		}
		if e := step.Expect; e != nil {
			if (e.Reply == "") == (e.Trap == "") {
				return fmt.Errorf("calls[%d].expect: exactly one of reply and trap is required", i)
			}
			if e.Kind != "" && e.Trap == "" {
				return fmt.Errorf("calls[%d].expect: kind needs trap", i)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(i int, a Assertion) error {
	switch a.Type {
	case AssertStableLen:
		if a.Map == "" {
			return fmt.Errorf("assertions[%d]: map is required for %s", i, a.Type)
		}
	case AssertStableContains, AssertStableMissing:
		if a.Map == "" || a.Key == nil {
			return fmt.Errorf("assertions[%d]: map and key are required for %s", i, a.Type)
		}
	case AssertReplyCount, AssertTrapCount:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for %s", i, a.Type)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", i)
	}
	return nil
}
