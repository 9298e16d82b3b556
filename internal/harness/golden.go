package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cangen/internal/ir"
)

// Snapshot renders a result as canonical JSON for golden comparison.
// Call ids, sequence numbers, states, replies and traps all participate.
func Snapshot(name string, result *Result) ([]byte, error) {
	calls := make(ir.IRArray, len(result.Calls))
	for i, rec := range result.Calls {
		states := make(ir.IRArray, len(rec.States))
		for j, s := range rec.States {
			states[j] = ir.IRString(s)
		}
		obj := ir.IRObject{
			"method":  ir.IRString(rec.Method),
			"call_id": ir.IRString(rec.CallID),
			"seq":     ir.IRInt(rec.Seq),
			"states":  states,
		}
		if rec.Trap != nil {
			obj["trap"] = ir.IRObject{
				"kind":    ir.IRString(rec.Trap.Kind),
				"message": ir.IRString(rec.Trap.Message),
			}
		} else {
			obj["reply"] = ir.IRString(rec.Reply)
		}
		if rec.DroppedJobs > 0 {
			obj["dropped_jobs"] = ir.IRInt(rec.DroppedJobs)
		}
		calls[i] = obj
	}

	return ir.MarshalCanonical(ir.IRObject{
		"scenario": ir.IRString(name),
		"calls":    calls,
	})
}

func newGoldie(t *testing.T, dir string) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./... -update
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), s)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, "testdata/golden", s.Name, result)
}

// AssertGolden compares an existing result against the golden file name in
// dir.
func AssertGolden(t *testing.T, dir, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	newGoldie(t, dir).Assert(t, name, data)
	return nil
}

// UpdateGolden writes the snapshot of result as the golden file name in dir.
func UpdateGolden(t *testing.T, dir, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	return newGoldie(t, dir).Update(t, name, data)
}
