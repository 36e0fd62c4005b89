package hdt

import "fmt"

// Role marks the position a term occupies within a triple. The dictionary
// uses it to select the id namespace a string resolves in.
type Role int

const (
	RoleSubject Role = iota + 1
	RolePredicate
	RoleObject
)

func (r Role) String() string {
	switch r {
	case RoleSubject:
		return "subject"
	case RolePredicate:
		return "predicate"
	case RoleObject:
		return "object"
	}
	return "unknown"
}

// TripleID is a triple of dictionary identifiers. The zero id denotes an
// unbound component (a wildcard) in search patterns and is never a valid
// stored id.
type TripleID struct {
	Subject   uint32
	Predicate uint32
	Object    uint32
}

// NewTripleID creates a triple from three ids.
func NewTripleID(s, p, o uint32) TripleID {
	return TripleID{Subject: s, Predicate: p, Object: o}
}

// IsValid reports whether all three components are bound.
func (t TripleID) IsValid() bool {
	return t.Subject != 0 && t.Predicate != 0 && t.Object != 0
}

// IsEmpty reports whether all three components are wildcards.
func (t TripleID) IsEmpty() bool {
	return t.Subject == 0 && t.Predicate == 0 && t.Object == 0
}

// Match reports whether t matches the given pattern, treating zero pattern
// components as wildcards.
func (t TripleID) Match(pattern TripleID) bool {
	if pattern.Subject != 0 && pattern.Subject != t.Subject {
		return false
	}
	if pattern.Predicate != 0 && pattern.Predicate != t.Predicate {
		return false
	}
	if pattern.Object != 0 && pattern.Object != t.Object {
		return false
	}
	return true
}

func (t TripleID) String() string {
	return fmt.Sprintf("(%d,%d,%d)", t.Subject, t.Predicate, t.Object)
}

// TripleIDIterator is a forward, single-pass iterator over id triples.
// Next advances the iterator and reports whether a triple is available via
// Triple.
type TripleIDIterator interface {
	Next() bool
	Triple() TripleID
}

// EmptyIterator is a TripleIDIterator that yields nothing.
type EmptyIterator struct{}

func (EmptyIterator) Next() bool       { return false }
func (EmptyIterator) Triple() TripleID { return TripleID{} }
