// Package vm is the embedded interpreter capability the call trampoline
// drives.
//
// Function bodies are Go closures registered on a Realm. The Realm owns the
// process-wide execution context: its job queue and its promises. Exactly
// one Session may hold the Realm at a time, so the single-call-at-a-time
// rule is an explicit, testable contract rather than a convention.
package vm
