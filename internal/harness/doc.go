// Package harness runs scripted call scenarios against a canister interface.
//
// A scenario is a YAML file naming an interface directory and a list of
// calls. For each declared method the harness defines a realm function whose
// behavior is scripted by the current call step: it may insert stable map
// entries, then return a typed value, return an arbitrary realm value, throw,
// or have its guard deny the call. Calls go through the real engine with the
// table-driven bindings, so argument extraction, guard evaluation, promise
// draining and result encoding are all exercised.
//
// Example:
//
//	name: put-then-count
//	interface: ../modules/users
//	calls:
//	  - method: putUser
//	    args: [{id: 1, name: ada, age: 36}]
//	    store:
//	      - {map: users, key: 1, value: {id: 1, name: ada, age: 36}}
//	    returns: {ok: null}
//	    expect: {reply: "(variant {ok})"}
//	  - method: count
//	    returns: 1
//	    expect: {reply: "(1 : nat64)"}
//	assertions:
//	  - {type: stable_len, map: users, count: 1}
//
// Runs are deterministic: fresh in-memory storage, a deterministic clock and
// sequential call ids. Snapshot and the golden helpers compare whole runs.
package harness
