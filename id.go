// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "strings"

// ResourceID names a resource for the lifetime of one frame's graph.
type ResourceID string

// scopeSeparator joins the components of a qualified ID.
const scopeSeparator = "/"

// Scope is a precomputed group path used to qualify local resource names.
//
// Passes registered under different groups can use the same local name
// ("Color", "Depth") without colliding: each resolves against its own
// scope. The prefix is built once when the scope is created, so qualifying
// a name costs a single concatenation.
type Scope struct {
	prefix string
}

// RootScope is the empty scope; IDs qualified by it are returned unchanged.
var RootScope = Scope{}

// NewScope returns the scope for the given group path, outermost first.
// Empty components are ignored.
func NewScope(path ...string) Scope {
	var s Scope
	for _, p := range path {
		s = s.Child(p)
	}
	return s
}

// Child returns the scope nested under s with the given name.
func (s Scope) Child(name string) Scope {
	if name == "" {
		return s
	}
	if s.prefix == "" {
		return Scope{prefix: name}
	}
	var b strings.Builder
	b.Grow(len(s.prefix) + len(scopeSeparator) + len(name))
	b.WriteString(s.prefix)
	b.WriteString(scopeSeparator)
	b.WriteString(name)
	return Scope{prefix: b.String()}
}

// ID qualifies a local name with the scope's path.
func (s Scope) ID(name string) ResourceID {
	if s.prefix == "" {
		return ResourceID(name)
	}
	return ResourceID(s.prefix + scopeSeparator + name)
}

// Path returns the scope's qualified path ("" for the root scope).
func (s Scope) Path() string { return s.prefix }

// String implements fmt.Stringer.
func (s Scope) String() string {
	if s.prefix == "" {
		return "<root>"
	}
	return s.prefix
}
