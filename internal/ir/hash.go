package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed names.
// The version suffix allows the naming scheme to migrate.
const (
	DomainInline = "cangen/inline/v1"
	DomainGraph  = "cangen/graph/v1"
)

// InlinePrefix starts every synthetic inline type name.
const InlinePrefix = "Inline"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InlineName computes the synthetic declaration name for an anonymous
// composite. The name depends only on the node's structure, so structurally
// identical inline types collapse to one declaration and every run assigns
// the same name.
func InlineName(node TypeNode) (string, error) {
	canonical, err := MarshalCanonical(Shape(node))
	if err != nil {
		return "", fmt.Errorf("InlineName: failed to marshal: %w", err)
	}
	return InlinePrefix + hashWithDomain(DomainInline, canonical)[:16], nil
}

// MustInlineName is like InlineName but panics on error.
// Shapes are built only from IRString/IRArray/IRObject, so this cannot fail
// for nodes produced by the front end.
func MustInlineName(node TypeNode) string {
	name, err := InlineName(node)
	if err != nil {
		panic(err)
	}
	return name
}

// Fingerprint returns a content hash of the full graph manifest.
func (g *Graph) Fingerprint() (string, error) {
	canonical, err := MarshalCanonical(g.Manifest())
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}
