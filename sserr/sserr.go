/*
File    : simplescript/sserr/sserr.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/

// Package sserr holds the single diagnostic format shared by every
// layer's error type (scanner, parser, resolver, type checker,
// compiler, and both runtime back ends), per spec.md §7's unified
// error taxonomy: each layer keeps its own typed Error struct (so
// callers can still type-switch on where a failure came from) but all
// of them render through Format, so a `[line N] LayerError: message`
// diagnostic looks the same regardless of which pass produced it.
package sserr

import "fmt"

// Format renders message as a layer diagnostic. A line <= 0 omits the
// location prefix, for errors (like the type checker's lazily
// re-checked call sites) that have no single source line to blame.
func Format(layer string, line int, message string) string {
	if line > 0 {
		return fmt.Sprintf("[line %d] %sError: %s", line, layer, message)
	}
	return fmt.Sprintf("%sError: %s", layer, message)
}
