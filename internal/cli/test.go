package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cangen/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run marshalling scenarios",
		Long: `Run YAML call scenarios through the engine and table-driven bindings.

Each scenario names its interface directory. When a golden file exists
under <scenarios-dir>/golden/<file>.golden the run snapshot must match it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  cangen test ./scenarios
  cangen test ./scenarios --filter "users-*"
  cangen test ./scenarios --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return outputCommandError(formatter, ErrCodeScanError, fmt.Sprintf("failed to find scenarios: %v", err))
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		sr := runScenario(ctx, file, opts)
		formatter.VerboseLog("%s: pass=%t", sr.Name, sr.Pass)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.Structured() {
		return outputTestStructured(formatter, result)
	}
	return outputTestText(formatter, result)
}

// findScenarioFiles finds the YAML scenario files directly inside dir.
func findScenarioFiles(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(e.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// runScenario executes one scenario file and checks its golden snapshot.
func runScenario(ctx context.Context, file string, opts *TestOptions) ScenarioResult {
	fail := func(name, format string, args ...any) ScenarioResult {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf(format, args...)}}
	}

	s, err := harness.LoadScenario(file)
	if err != nil {
		return fail(filepath.Base(file), "failed to load scenario: %v", err)
	}

	result, err := harness.Run(ctx, s)
	if err != nil {
		return fail(s.Name, "execution failed: %v", err)
	}

	snapshot, err := harness.Snapshot(s.Name, result)
	if err != nil {
		return fail(s.Name, "snapshot failed: %v", err)
	}

	goldenPath := goldenFilePath(file)
	if opts.Update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			return fail(s.Name, "failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, snapshot, 0644); err != nil {
			return fail(s.Name, "failed to write golden file: %v", err)
		}
	} else if golden, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(golden, snapshot) {
			result.AddError("snapshot does not match golden file (run with --update to regenerate)")
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fail(s.Name, "failed to read golden file: %v", err)
	}

	return ScenarioResult{Name: s.Name, Pass: result.Pass, Errors: result.Errors}
}

// goldenFilePath returns <dir>/golden/<base>.golden for a scenario file.
func goldenFilePath(file string) string {
	base := filepath.Base(file)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(file), "golden", name+".golden")
}

func testFailure(result TestResult) error {
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func outputTestStructured(formatter *OutputFormatter, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	if err := formatter.Encode(response); err != nil {
		return err
	}
	return testFailure(result)
}

func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, sr := range result.Scenarios {
		status := "PASS"
		if !sr.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s%s %s\n", formatter.Mark(sr.Pass), status, sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	return testFailure(result)
}
