package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: basic
description: one call
interface: ../modules/users
calls:
  - method: getUser
    args: [1]
    returns: {id: 1, name: ada, age: 36}
    expect: {reply: "(opt ...)"}
  - method: putUser
    deny: nope
    expect: {trap: "Uncaught nope", kind: INTERPRETER_EXCEPTION}
assertions:
  - {type: stable_len, map: users, count: 0}
  - {type: trap_count, method: putUser, count: 1}
`))
	require.NoError(t, err)
	assert.Equal(t, "basic", s.Name)
	require.Len(t, s.Calls, 2)
	assert.Len(t, s.Calls[0].Args, 1)
	assert.True(t, present(s.Calls[0].Returns))
	assert.Equal(t, "nope", s.Calls[1].Deny)
	assert.Equal(t, "INTERPRETER_EXCEPTION", s.Calls[1].Expect.Kind)
	require.Len(t, s.Assertions, 2)
	assert.Equal(t, AssertTrapCount, s.Assertions[1].Type)
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "interface: x\ncalls: [{method: a}]", "name is required"},
		{"no interface", "name: a\ncalls: [{method: a}]", "interface is required"},
		{"no calls", "name: a\ninterface: x", "calls list is required"},
		{"no method", "name: a\ninterface: x\ncalls: [{args: []}]", "calls[0]: method is required"},
		{"both returns", "name: a\ninterface: x\ncalls: [{method: a, returns: 1, returns_raw: 1}]", "mutually exclusive"},
		{"throws and returns", "name: a\ninterface: x\ncalls: [{method: a, throws: x, returns: 1}]", "throws excludes returns"},
		{"empty expect", "name: a\ninterface: x\ncalls: [{method: a, expect: {}}]", "exactly one of reply and trap"},
		{"kind without trap", "name: a\ninterface: x\ncalls: [{method: a, expect: {reply: '()', kind: X}}]", "kind needs trap"},
		{"incomplete store", "name: a\ninterface: x\ncalls: [{method: a, store: [{map: m}]}]", "map, key and value are required"},
		{"unknown assertion", "name: a\ninterface: x\ncalls: [{method: a}]\nassertions: [{type: bogus}]", `unknown assertion type "bogus"`},
		{"assertion without map", "name: a\ninterface: x\ncalls: [{method: a}]\nassertions: [{type: stable_len}]", "map is required"},
		{"negative count", "name: a\ninterface: x\ncalls: [{method: a}]\nassertions: [{type: reply_count, method: a, count: -1}]", "non-negative"},
		{"unknown field", "name: a\ninterface: x\ncalls: [{method: a, retruns: 1}]", "retruns"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioResolvesInterface(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/put_and_get.yaml")
	require.NoError(t, err)

	abs, err := filepath.Abs(s.Interface)
	require.NoError(t, err)
	want, err := filepath.Abs(usersModule)
	require.NoError(t, err)
	assert.Equal(t, want, abs)
}

func TestLoadScenarioMissingInterface(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: a\ninterface: nowhere\ncalls: [{method: a}]\n"), 0644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interface directory not found")
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
