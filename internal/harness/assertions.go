package harness

import (
	"context"
	"fmt"

	"github.com/roach88/cangen/pkg/wire"
)

// assert evaluates one post-run assertion.
func (h *Harness) assert(ctx context.Context, result *Result, a Assertion) error {
	switch a.Type {
	case AssertStableLen:
		sm, err := h.stableMap(a.Map)
		if err != nil {
			return err
		}
		n, err := h.store.Len(ctx, sm.ID)
		if err != nil {
			return err
		}
		if n != uint64(a.Count) {
			return fmt.Errorf("map %s has %d entries, expected %d", a.Map, n, a.Count)
		}

	case AssertStableContains, AssertStableMissing:
		sm, err := h.stableMap(a.Map)
		if err != nil {
			return err
		}
		w, err := WireValue(h.graph, sm.Key, a.Key)
		if err != nil {
			return fmt.Errorf("key: %w", err)
		}
		key, err := wire.Marshal(w)
		if err != nil {
			return err
		}
		ok, err := h.store.ContainsKey(ctx, sm.ID, key)
		if err != nil {
			return err
		}
		if want := a.Type == AssertStableContains; ok != want {
			return fmt.Errorf("map %s contains %s: %t, expected %t", a.Map, wire.Format(w), ok, want)
		}

	case AssertReplyCount, AssertTrapCount:
		got := 0
		for _, rec := range result.Calls {
			if rec.Method != a.Method {
				continue
			}
			if (rec.Trap == nil) == (a.Type == AssertReplyCount) {
				got++
			}
		}
		if got != a.Count {
			return fmt.Errorf("method %s: %d matching outcome(s), expected %d", a.Method, got, a.Count)
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
