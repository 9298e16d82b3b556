// Package ir provides the intermediate type representation for cangen.
//
// The package models every data shape reachable from an entry point's
// signature as a closed TypeNode sum, deduplicates named definitions,
// collects anonymous inline types and indexes the result as a Graph. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - TypeNode is sealed; dispatch goes through Walk so a new shape fails to
//     compile until every Visitor handles it
//   - Recursive types reach themselves only through a literal TypeRef
//   - Inline names are content hashes of canonical JSON, so output is
//     reproducible across runs
//   - Output order is first-encounter order, never map order
package ir
