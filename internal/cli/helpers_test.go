package cli

import "github.com/spf13/cobra"

type cmdRunner = *cobra.Command

func compileCmd(o *RootOptions) cmdRunner  { return NewCompileCommand(o) }
func validateCmd(o *RootOptions) cmdRunner { return NewValidateCommand(o) }
func generateCmd(o *RootOptions) cmdRunner { return NewGenerateCommand(o) }
func inspectCmd(o *RootOptions) cmdRunner  { return NewInspectCommand(o) }
func testCmd(o *RootOptions) cmdRunner     { return NewTestCommand(o) }
