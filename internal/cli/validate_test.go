package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValid(t *testing.T) {
	out, err := execute(t, "text", validateCmd, usersModule)
	require.NoError(t, err)
	assert.Contains(t, out, "Interface valid: 4 method(s), 3 type(s)")
}

func TestValidateValidJSON(t *testing.T) {
	out, err := execute(t, "json", validateCmd, usersModule)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
}

func TestValidateReportsAllIssues(t *testing.T) {
	dir := writeModule(t, `package canister

methods: {
	a: {kind: "init"}
	b: {kind: "init"}
	c: {kind: "query", guard: "nobody", params: [{name: "x", type: "Missing"}]}
}
`)
	out, err := execute(t, "text", validateCmd, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Validation failed")
	assert.Contains(t, out, "E101")
	assert.Contains(t, out, "E102")
	assert.Contains(t, out, "E103")
}

func TestValidateIssuesJSON(t *testing.T) {
	out, err := execute(t, "json", validateCmd, invalidModule)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Error  *CLIError        `json:"error"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E102", resp.Error.Code)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
}

func TestValidateYAML(t *testing.T) {
	out, err := execute(t, "yaml", validateCmd, usersModule)
	require.NoError(t, err)
	assert.Contains(t, out, "status: ok")
	assert.Contains(t, out, "valid: true")
}

func TestValidateListsRecursiveTypes(t *testing.T) {
	dir := writeModule(t, `package canister

types: Tree: variant: {leaf: "nat", node: {vec: "Tree"}}
`)
	out, err := execute(t, "text", validateCmd, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "info: recursive type: Tree → Tree")
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := execute(t, "text", validateCmd, filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
