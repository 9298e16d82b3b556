// Package wire is the static value model of the call boundary and its
// self-describing byte codec.
//
// Every value is framed as a protowire field whose number identifies the
// value kind. Composite payloads are length-delimited and nest values the
// same way:
//
//	record  = count, (name, value)*
//	variant = tag, value
//	tuple   = count, value*
//	opt     = presence flag, [value]
//	vec     = count, value*
//
// An argument list is a tuple.
package wire
