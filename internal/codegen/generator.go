// Package codegen emits the statically typed marshalling layer for a
// canister interface: Go declarations for every interface type, converters
// between those types and realm values, converters to and from wire values,
// and one engine binding per method.
//
// The emitted code calls the exported helpers of pkg/marshal, so its
// behavior matches the table-driven marshaller value for value.
package codegen

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"golang.org/x/tools/imports"

	"github.com/roach88/cangen/internal/ir"
)

const runtimeModule = "github.com/roach88/cangen/pkg/"

// Options configures generation.
type Options struct {
	// Package is the package clause of the emitted file.
	Package string

	// Filename is only used in formatting errors.
	Filename string
}

// NameCollisionError reports two interface names that map onto the same Go
// identifier.
type NameCollisionError struct {
	Ident  string
	First  string
	Second string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("generated identifier %s is claimed by both %s and %s", e.Ident, e.First, e.Second)
}

// Generate emits one formatted Go source file for the graph.
func Generate(g *ir.Graph, opts Options) ([]byte, error) {
	if opts.Package == "" {
		return nil, fmt.Errorf("package name is required")
	}
	if opts.Filename == "" {
		opts.Filename = "bindings_gen.go"
	}

	gen := &generator{
		graph:  g,
		owners: make(map[string]string),
		bases:  make(map[string]string),
	}
	if err := gen.run(); err != nil {
		return nil, err
	}

	src := gen.assemble(opts.Package)
	out, err := imports.Process(opts.Filename, src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return out, nil
}

type generator struct {
	graph *ir.Graph

	// owners maps every emitted top-level identifier to the interface name
	// that produced it.
	owners map[string]string

	// bases maps an interface identifier to its converter base name.
	bases map[string]string

	// pending holds anonymous nodes whose helpers are not yet emitted.
	pending []ir.TypeNode

	decls    bytes.Buffer
	helpers  bytes.Buffer
	bindings bytes.Buffer
}

func (gen *generator) run() error {
	for _, def := range gen.graph.Definitions() {
		base := exportName(ir.Ident(def))
		if err := gen.claim(base, ir.Ident(def)); err != nil {
			return err
		}
		gen.bases[ir.Ident(def)] = base
	}
	if err := gen.claimName("Bindings", "the Bindings function"); err != nil {
		return err
	}

	for _, def := range gen.graph.Definitions() {
		if err := gen.declare(def); err != nil {
			return err
		}
	}
	if err := gen.methods(); err != nil {
		return err
	}

	for len(gen.pending) > 0 {
		node := gen.pending[0]
		gen.pending = gen.pending[1:]
		gen.anonymous(node)
	}
	return nil
}

// claim registers a type name together with its four converter names.
func (gen *generator) claim(base, owner string) error {
	for _, name := range []string{
		base,
		"decode" + base,
		"encode" + base,
		lowerFirst(base) + "FromWire",
		lowerFirst(base) + "ToWire",
	} {
		if err := gen.claimName(name, owner); err != nil {
			return err
		}
	}
	return nil
}

func (gen *generator) claimName(name, owner string) error {
	if prev, ok := gen.owners[name]; ok && prev != owner {
		return &NameCollisionError{Ident: name, First: prev, Second: owner}
	}
	gen.owners[name] = owner
	return nil
}

// base returns the converter base name for a node, queueing helper
// emission for anonymous nodes on first sight.
func (gen *generator) base(node ir.TypeNode) (string, error) {
	switch n := node.(type) {
	case ir.Primitive:
		if n.Alias != "" {
			return gen.declared(n.Alias)
		}
		return gen.anonymousBase(n, "Prim"+exportName(string(n.Kind)))
	case ir.TypeRef:
		if n.IsAlias() {
			return gen.declared(n.Alias)
		}
		return gen.declared(n.Name)
	case ir.Array:
		if _, err := gen.base(n.Elem); err != nil {
			return "", err
		}
		return gen.anonymousBase(n, exportName(ir.Ident(n)))
	case ir.Option:
		if _, err := gen.base(n.Elem); err != nil {
			return "", err
		}
		return gen.anonymousBase(n, exportName(ir.Ident(n)))
	default:
		return gen.declared(ir.Ident(node))
	}
}

func (gen *generator) declared(name string) (string, error) {
	base, ok := gen.bases[name]
	if !ok {
		return "", &ir.UnknownTypeError{Name: name}
	}
	return base, nil
}

func (gen *generator) anonymousBase(node ir.TypeNode, base string) (string, error) {
	ident := ir.Ident(node)
	if existing, ok := gen.bases[ident]; ok {
		return existing, nil
	}
	if err := gen.claim(base, ident); err != nil {
		return "", err
	}
	gen.bases[ident] = base
	gen.pending = append(gen.pending, node)
	return base, nil
}

// goType renders the Go type expression for a node.
func (gen *generator) goType(node ir.TypeNode) string {
	switch n := node.(type) {
	case ir.Primitive:
		if n.Alias != "" {
			return gen.bases[n.Alias]
		}
		return "wire." + wireTypes[n.Kind]
	case ir.TypeRef:
		if n.IsAlias() {
			return gen.bases[n.Alias]
		}
		return gen.bases[n.Name]
	case ir.Array:
		return "[]" + gen.goType(n.Elem)
	case ir.Option:
		return "*" + gen.goType(n.Elem)
	default:
		return gen.bases[ir.Ident(node)]
	}
}

// isBytes reports whether a vec element resolves to nat8.
func (gen *generator) isBytes(elem ir.TypeNode) bool {
	resolved, err := gen.graph.Resolve(elem)
	if err != nil {
		return false
	}
	p, ok := resolved.(ir.Primitive)
	return ok && p.Kind == ir.Nat8
}

var packageRef = regexp.MustCompile(`\b(engine|marshal|trap|vm|wire)\.`)

func (gen *generator) assemble(pkg string) []byte {
	var body bytes.Buffer
	body.Write(gen.decls.Bytes())
	body.Write(gen.helpers.Bytes())
	body.Write(gen.bindings.Bytes())

	used := make(map[string]bool)
	for _, m := range packageRef.FindAllSubmatch(body.Bytes(), -1) {
		used[string(m[1])] = true
	}
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)

	var out bytes.Buffer
	out.WriteString("// Code generated by cangen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&out, "package %s\n\n", pkg)
	if len(names) > 0 {
		out.WriteString("import (\n")
		for _, name := range names {
			fmt.Fprintf(&out, "\t%s\n", strconv.Quote(runtimeModule+name))
		}
		out.WriteString(")\n\n")
	}
	out.Write(body.Bytes())
	return out.Bytes()
}
