package cli

import (
	"encoding/json"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToStdout(t *testing.T) {
	out, err := execute(t, "text", generateCmd, usersModule, "--package", "users")
	require.NoError(t, err)

	assert.Contains(t, out, "// Code generated by cangen. DO NOT EDIT.")
	assert.Contains(t, out, "package users")
	assert.Contains(t, out, "func Bindings() []engine.Binding")

	_, err = parser.ParseFile(token.NewFileSet(), "bindings_gen.go", out, parser.AllErrors)
	require.NoError(t, err)
}

func TestGenerateToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users_gen.go")
	out, err := execute(t, "text", generateCmd, usersModule, "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path+" (package canister, 4 method(s))")

	src, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package canister")
	assert.Contains(t, string(src), "type User struct")
}

func TestGenerateJSON(t *testing.T) {
	out, err := execute(t, "json", generateCmd, usersModule)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   GenerateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "canister", resp.Data.Package)
	assert.Equal(t, len(resp.Data.Source), resp.Data.Bytes)
}

func TestGenerateNameCollision(t *testing.T) {
	dir := writeModule(t, `package canister

types: {
	user_id: "nat64"
	UserId:  "text"
}
`)
	out, err := execute(t, "text", generateCmd, dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeGenerate)
}

func TestGenerateInvalidInterface(t *testing.T) {
	_, err := execute(t, "text", generateCmd, invalidModule)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
