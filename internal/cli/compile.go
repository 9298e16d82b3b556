package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cangen/internal/compiler"
	"github.com/roach88/cangen/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // manifest output file path
}

// CompilationResult is the structured output of compile.
type CompilationResult struct {
	Fingerprint string          `json:"fingerprint"`
	Types       int             `json:"types"`
	Inline      int             `json:"inline_types"`
	Methods     int             `json:"methods"`
	StableMaps  int             `json:"stable_maps"`
	Manifest    json.RawMessage `json:"manifest"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <interface-dir>",
		Short: "Compile a CUE interface to its canonical type graph",
		Long: `Compile the CUE interface declarations in a directory into the
deduplicated type graph and print its canonical manifest.

The manifest is canonical JSON: identical interfaces produce identical
bytes and the same fingerprint.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the canonical manifest to this file")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadInterface(dir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	if len(loaded.Issues) > 0 {
		return outputIssues(formatter, "Compilation failed", loaded.Issues, ExitCommandError)
	}

	g := loaded.Graph
	for _, m := range g.Methods() {
		formatter.VerboseLog("Compiled method: %s", m.Name)
	}

	manifest, err := ir.MarshalCanonical(g.Manifest())
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("marshaling manifest: %v", err))
	}
	fingerprint, err := g.Fingerprint()
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, manifest, 0644); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	result := CompilationResult{
		Fingerprint: fingerprint,
		Types:       len(g.Named()),
		Inline:      len(g.Inline()),
		Methods:     len(g.Methods()),
		StableMaps:  len(g.StableMaps()),
		Manifest:    manifest,
	}
	if formatter.Structured() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%sCompiled %d type(s), %d inline type(s), %d method(s), %d stable map(s)\n\n",
		formatter.Mark(true), result.Types, result.Inline, result.Methods, result.StableMaps)

	if len(g.Methods()) > 0 {
		fmt.Fprintln(w, "Methods:")
		for _, m := range g.Methods() {
			fmt.Fprintf(w, "  %s\n", signature(m))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Fingerprint: %s\n", fingerprint)
	if opts.Output != "" {
		fmt.Fprintf(w, "Wrote manifest to %s\n", opts.Output)
	}
	return nil
}

// signature renders a method as "name: kind (p: T, ...) -> R".
func signature(m ir.Method) string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.Name + ": " + ir.Ident(p.Type)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s (%s)", m.Name, m.Kind, strings.Join(params, ", "))
	if m.Return != nil {
		sb.WriteString(" -> " + ir.Ident(m.Return))
	}
	if m.Async {
		sb.WriteString(" async")
	}
	if m.Guard != "" {
		sb.WriteString(" guard " + m.Guard)
	}
	return sb.String()
}

// outputLoadError reports a failure of LoadInterface as a command error.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Pos.IsValid() && !formatter.Structured() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		return outputCommandError(formatter, loadErr.Code, loadErr.Message)
	}
	return outputCommandError(formatter, ErrCodeGeneric, err.Error())
}

// outputCommandError reports a single error with exit code 2.
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputIssues reports validation errors and returns an ExitError with code.
func outputIssues(formatter *OutputFormatter, header string, issues []compiler.ValidationError, code int) error {
	exitErr := NewExitError(code, fmt.Sprintf("%s with %d error(s)", strings.ToLower(header), len(issues)))

	if formatter.Structured() {
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: issues[0].Code, Message: issues[0].Message},
			Data:   ValidationResult{Valid: false, Errors: issues},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintf(formatter.Writer, "%s%s\n\n", formatter.Mark(false), header)
	for _, issue := range issues {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", issue.Code, issue.Field, issue.Message)
	}
	return exitErr
}
