package ir

// Deduplicate collapses nodes that share an Ident, keeping the first
// occurrence and first-encounter order. Later duplicates are dropped without
// error: a type used by two methods is expected to appear twice.
//
// Deduplicate is idempotent, and its output order depends only on input order,
// so generated artifacts are reproducible.
func Deduplicate(nodes []TypeNode) []TypeNode {
	seen := make(map[string]bool, len(nodes))
	out := make([]TypeNode, 0, len(nodes))
	for _, n := range nodes {
		id := Ident(n)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, n)
	}
	return out
}
