// Package stable provides durable ordered byte maps for generated canisters.
//
// Each map is addressed by a small numeric id and stores serialized keys and
// values in SQLite. Keys compare bytewise, so iteration order matches an
// ordered map keyed by the encoded key bytes, not by the decoded key values.
// Fixed-width integers travel as varints, so nat64 256 sorts before 255.
//
// Bind exposes the maps to a realm as the stableMap* functions. Keys and
// values cross that boundary through the declared types of each map:
//
//	dynamic value -> marshal.Decode -> wire.Marshal -> stored bytes
//	stored bytes  -> wire.Unmarshal -> marshal.Encode -> dynamic value
//
// Writes are durable as soon as the statement completes. A call that later
// traps does not roll them back.
package stable
