package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usersModule   = "../../testdata/modules/users"
	invalidModule = "../../testdata/modules/invalid"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "cangen", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"compile", "validate", "generate", "inspect", "test"} {
		name := name
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		command, flag, shorthand, def string
	}{
		{"compile", "output", "o", ""},
		{"generate", "output", "o", ""},
		{"generate", "package", "", "canister"},
		{"inspect", "map", "", ""},
		{"inspect", "limit", "", "50"},
		{"test", "update", "", "false"},
		{"test", "filter", "", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			f := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"validate", "--format", "xml", usersModule})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootRunsSubcommand(t *testing.T) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"validate", usersModule})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Interface valid")
}
