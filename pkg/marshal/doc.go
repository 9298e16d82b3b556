// Package marshal converts between dynamic interpreter values and static
// wire values.
//
// Decode, Encode and Conform interpret a type graph at run time. The
// generic helpers in helpers.go are the building blocks of generated
// converters, which apply the same rules with the dispatch resolved at
// generation time.
//
// Decode failures are trap.ShapeMismatch with a path to the offending
// member. Encode failures are trap.InternalInconsistency: encoding runs only
// on values that were already validated.
package marshal
