/*
File    : simplescript/scope/scope.go
Author  : Akash Maji
Contact : akashmaji(@iisc.ac.in)
*/

// Package scope implements the lexically-nested constant-binding
// tables the tree walker evaluates against, per spec.md §3/§4.5.
// Unlike the teacher's mutable variable scopes, SimpleScript bindings
// are single-assignment: Define fails if the name already exists in
// this Scope.
package scope

import (
	"fmt"

	"github.com/akashmaji946/simplescript/objects"
)

// Scope is one lexical binding table, with a strong reference to its
// enclosing parent. A function's closure keeps a strong reference to
// the Scope active at its definition (spec.md §3's Environment, §5's
// "closures hold strong references into the definition chain").
type Scope struct {
	values map[string]objects.Value
	Parent *Scope
}

// New creates a child Scope of parent (nil for the global scope).
func New(parent *Scope) *Scope {
	return &Scope{values: make(map[string]objects.Value), Parent: parent}
}

// Define binds name to value in this Scope. Duplicate definition in
// the same scope is a runtime error; the resolver should already have
// rejected this earlier (spec.md §4.5 calls this check "defensive").
func (s *Scope) Define(name string, value objects.Value) error {
	if _, exists := s.values[name]; exists {
		return fmt.Errorf("RuntimeError: '%s' is already defined in this scope", name)
	}
	s.values[name] = value
	return nil
}

// Ancestor walks distance parents up from s and returns that Scope.
func (s *Scope) Ancestor(distance int) *Scope {
	cur := s
	for i := 0; i < distance; i++ {
		cur = cur.Parent
	}
	return cur
}

// GetAt reads name from the Scope distance parents above s. A missing
// binding there is an internal error: the resolver guarantees the
// name exists at that distance (spec.md §4.5).
func (s *Scope) GetAt(distance int, name string) (objects.Value, error) {
	target := s.Ancestor(distance)
	if target == nil {
		return nil, fmt.Errorf("RuntimeError: internal: scope distance %d out of range for '%s'", distance, name)
	}
	v, ok := target.values[name]
	if !ok {
		return nil, fmt.Errorf("RuntimeError: internal: '%s' not bound at distance %d", name, distance)
	}
	return v, nil
}
