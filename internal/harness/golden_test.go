package harness

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotShape(t *testing.T) {
	result := runFile(t, "testdata/scenarios/traps.yaml")

	data, err := Snapshot("traps", result)
	require.NoError(t, err)

	var doc struct {
		Scenario string `json:"scenario"`
		Calls    []struct {
			Method string   `json:"method"`
			CallID string   `json:"call_id"`
			Seq    int64    `json:"seq"`
			States []string `json:"states"`
			Reply  *string  `json:"reply"`
			Trap   *struct {
				Kind    string `json:"kind"`
				Message string `json:"message"`
			} `json:"trap"`
		} `json:"calls"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "traps", doc.Scenario)
	require.Len(t, doc.Calls, 3)

	assert.Nil(t, doc.Calls[0].Reply)
	require.NotNil(t, doc.Calls[0].Trap)
	assert.Equal(t, "Uncaught caller is not the owner", doc.Calls[0].Trap.Message)

	require.NotNil(t, doc.Calls[2].Reply)
	assert.Equal(t, "(0 : nat64)", *doc.Calls[2].Reply)
	assert.Nil(t, doc.Calls[2].Trap)
	assert.Less(t, doc.Calls[0].Seq, doc.Calls[2].Seq)
}

func TestSnapshotIsStable(t *testing.T) {
	a, err := Snapshot("put_and_get", runFile(t, "testdata/scenarios/put_and_get.yaml"))
	require.NoError(t, err)
	b, err := Snapshot("put_and_get", runFile(t, "testdata/scenarios/put_and_get.yaml"))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestGoldenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	result := runFile(t, "testdata/scenarios/put_and_get.yaml")

	require.NoError(t, UpdateGolden(t, dir, "put_and_get", result))
	_, err := os.Stat(filepath.Join(dir, "put_and_get.golden"))
	require.NoError(t, err)

	// A fresh run must match the file written by the first.
	again := runFile(t, "testdata/scenarios/put_and_get.yaml")
	require.NoError(t, AssertGolden(t, dir, "put_and_get", again))
}
