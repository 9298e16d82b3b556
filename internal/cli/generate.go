package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/cangen/internal/codegen"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Output  string // output .go file; stdout when empty
	Package string // Go package name of the generated file
}

// GenerateResult is the structured output of generate.
type GenerateResult struct {
	Package string `json:"package"`
	Output  string `json:"output,omitempty"`
	Bytes   int    `json:"bytes"`
	Source  string `json:"source,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <interface-dir>",
		Short: "Generate Go host bindings for an interface",
		Long: `Generate a Go source file declaring one static type per interface type,
the converters between interpreter values, static values and wire values,
and a Bindings function that wires every method into the call engine.

Examples:
  cangen generate ./canister -o bindings_gen.go --package canister
  cangen generate ./canister --package canister > bindings_gen.go`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.Package, "package", "canister", "package name of the generated file")

	return cmd
}

func runGenerate(opts *GenerateOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadInterface(dir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if len(loaded.Issues) > 0 {
		return outputIssues(formatter, "Generation failed", loaded.Issues, ExitCommandError)
	}

	genOpts := codegen.Options{Package: opts.Package}
	if opts.Output != "" {
		genOpts.Filename = filepath.Base(opts.Output)
	}
	src, err := codegen.Generate(loaded.Graph, genOpts)
	if err != nil {
		var collision *codegen.NameCollisionError
		if errors.As(err, &collision) {
			return outputCommandError(formatter, ErrCodeGenerate, collision.Error())
		}
		return outputCommandError(formatter, ErrCodeGenerate, fmt.Sprintf("generating code: %v", err))
	}
	formatter.VerboseLog("Generated %d byte(s) for %d method(s)", len(src), len(loaded.Graph.Methods()))

	if opts.Output == "" {
		if formatter.Structured() {
			return formatter.Success(GenerateResult{Package: opts.Package, Bytes: len(src), Source: string(src)})
		}
		_, err := formatter.Writer.Write(src)
		return err
	}

	if err := os.WriteFile(opts.Output, src, 0644); err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
	}
	if formatter.Structured() {
		return formatter.Success(GenerateResult{Package: opts.Package, Output: opts.Output, Bytes: len(src)})
	}
	fmt.Fprintf(formatter.Writer, "%sWrote %s (package %s, %d method(s))\n",
		formatter.Mark(true), opts.Output, opts.Package, len(loaded.Graph.Methods()))
	return nil
}
