package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/cangen/internal/ir"
)

// Cycle report levels.
const (
	LevelError = "error"
	LevelInfo  = "info"
)

// CycleWarning describes a cycle among named type declarations.
//
// Recursion through an option, vec, variant or func is legal and reported
// at LevelInfo so the generator knows the type is recursive. Cycles made only
// of aliases, or of direct record/tuple containment, have no finite
// representation and are reported at LevelError.
type CycleWarning struct {
	Path    []string `json:"path"`    // ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "error" or "info"
	Code    string   `json:"code,omitempty"`
}

// edgeStrength ranks how tightly one declaration embeds another.
type edgeStrength int

const (
	edgeAlias    edgeStrength = iota // A = B
	edgeDirect                       // A = record {b: B}
	edgeIndirect                     // A = record {b: opt B}
)

// typeGraph maps a declaration name to the declarations it references, in
// first-reference order.
type typeGraph struct {
	order []string
	edges map[string][]string
}

func newTypeGraph(order []string) *typeGraph {
	g := &typeGraph{order: order, edges: make(map[string][]string, len(order))}
	for _, n := range order {
		g.edges[n] = []string{}
	}
	return g
}

func (g *typeGraph) add(from, to string) {
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// AnalyzeCycles performs static cycle analysis on the named types.
//
// The algorithm:
//  1. Classify every reference between declarations as alias, direct or
//     indirect
//  2. Use Tarjan's algorithm to find strongly connected components over
//     alias edges, then alias+direct edges, then all edges
//  3. Report each SCC with size > 1 or a self-loop once, at the first level
//     that exposes it
//
// References to undeclared names are ignored; Validate reports them.
// An acyclic program returns an empty list.
func AnalyzeCycles(prog *ir.Program) []CycleWarning {
	order := make([]string, 0, len(prog.Types))
	declared := make(map[string]bool, len(prog.Types))
	for _, t := range prog.Types {
		name := ir.Ident(t)
		if !declared[name] {
			order = append(order, name)
			declared[name] = true
		}
	}

	alias, strong, full := newTypeGraph(order), newTypeGraph(order), newTypeGraph(order)
	for _, t := range prog.Types {
		from := ir.Ident(t)
		for to, s := range classifyEdges(t) {
			if !declared[to] {
				continue
			}
			full.add(from, to)
			if s <= edgeDirect {
				strong.add(from, to)
			}
			if s == edgeAlias {
				alias.add(from, to)
			}
		}
	}
	// classifyEdges returns a map; restore declaration order of successors.
	for _, g := range []*typeGraph{alias, strong, full} {
		for _, n := range g.order {
			sortByOrder(g.edges[n], order)
		}
	}

	warnings := []CycleWarning{}
	reported := make(map[string]bool)
	passes := []struct {
		graph   *typeGraph
		level   string
		code    string
		message string
	}{
		{alias, LevelError, ErrAliasCycle, "alias cycle"},
		{strong, LevelError, ErrInfiniteType, "infinitely sized type"},
		{full, LevelInfo, "", "recursive type"},
	}
	for _, pass := range passes {
		for _, scc := range tarjanSCC(pass.graph) {
			if len(scc) == 1 && !hasSelfLoop(scc[0], pass.graph) {
				continue
			}
			key := sccKey(scc)
			if reported[key] {
				continue
			}
			reported[key] = true

			path := reconstructCyclePath(scc, pass.graph)
			warnings = append(warnings, CycleWarning{
				Path:    path,
				Message: fmt.Sprintf("%s: %s", pass.message, strings.Join(path, " → ")),
				Level:   pass.level,
				Code:    pass.code,
			})
		}
	}
	return warnings
}

// classifyEdges finds every declaration referenced by a declaration body and
// the strongest way it is embedded.
func classifyEdges(decl ir.TypeNode) map[string]edgeStrength {
	out := make(map[string]edgeStrength)
	var walk func(ir.TypeNode, edgeStrength)
	walk = func(n ir.TypeNode, s edgeStrength) {
		switch t := n.(type) {
		case ir.TypeRef:
			if t.IsAlias() {
				walk(t.Aliased, s)
				return
			}
			if prev, ok := out[t.Name]; !ok || s < prev {
				out[t.Name] = s
			}
		case ir.Array:
			walk(t.Elem, edgeIndirect)
		case ir.Option:
			walk(t.Elem, edgeIndirect)
		case ir.Record:
			for _, m := range t.Members {
				walk(m.Type, max(s, edgeDirect))
			}
		case ir.Tuple:
			for _, e := range t.Elems {
				walk(e, max(s, edgeDirect))
			}
		case ir.Variant:
			for _, m := range t.Members {
				walk(m.Type, edgeIndirect)
			}
		case ir.Func:
			for _, p := range t.Params {
				walk(p, edgeIndirect)
			}
			if t.Return != nil {
				walk(t.Return, edgeIndirect)
			}
		}
	}
	walk(decl, edgeAlias)
	return out
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, g *typeGraph) bool {
	for _, neighbor := range g.edges[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in declaration order, so the result is deterministic.
func tarjanSCC(g *typeGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC.
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sortByOrder(scc, g.order)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	rank := orderIndex(g.order)
	sort.SliceStable(sccs, func(i, j int) bool { return rank[sccs[i][0]] < rank[sccs[j][0]] })
	return sccs
}

// reconstructCyclePath walks edges inside the SCC from its first member back
// to itself.
func reconstructCyclePath(scc []string, g *typeGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range g.edges[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}

func sccKey(scc []string) string {
	sorted := append([]string(nil), scc...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

func orderIndex(order []string) map[string]int {
	rank := make(map[string]int, len(order))
	for i, n := range order {
		rank[n] = i
	}
	return rank
}

func sortByOrder(names []string, order []string) {
	rank := orderIndex(order)
	sort.SliceStable(names, func(i, j int) bool { return rank[names[i]] < rank[names[j]] })
}
