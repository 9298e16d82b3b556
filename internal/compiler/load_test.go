package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCUE(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
}

func TestLoadDirUnifiesFiles(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "types.cue", `package canister

types: Counter: record: {value: "nat64"}
`)
	writeCUE(t, dir, "methods.cue", `package canister

methods: {
	get: {kind: "query", returns: "Counter"}
	bump: {kind: "update", params: [{name: "by", type: "nat64"}], returns: "Counter"}
}
`)

	prog, err := CompileDir(dir)
	require.NoError(t, err)
	assert.Len(t, prog.Types, 1)
	assert.Len(t, prog.Methods, 2)
	assert.Empty(t, Validate(prog))
}

func TestLoadDirSyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "bad.cue", `package canister

types: {
`)

	_, err := LoadDir(dir)
	require.Error(t, err)
	var ce *CompileError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadDirConflict(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "a.cue", "package canister\n\nguards: [\"a\"]\n")
	writeCUE(t, dir, "b.cue", "package canister\n\nguards: [\"b\"]\n")

	_, err := LoadDir(dir)
	require.Error(t, err)
}
