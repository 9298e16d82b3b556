// Package engine implements the call trampoline.
//
// One host call runs start to finish through
//
//	Decoding -> Invoking -> Draining -> Encoding -> Done
//
// with any failure jumping to Trapped. Draining pumps the realm's job queue
// synchronously until the pending result settles; the host never regains
// control mid-call.
//
// CRITICAL PATTERNS:
//
// Single owner: a call holds the realm through a vm.Session for its whole
// lifetime and releases it on every path. A reentrant call is rejected.
//
// One outcome: every call ends in exactly one Reply or one Trap.
//
// Logical clock: every call is stamped with a monotonic sequence number.
// Wall-clock time is never used for ordering.
package engine
