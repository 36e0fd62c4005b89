package rdf

import "fmt"

// TripleString is an RDF triple in its textual surface form. Each component
// keeps the token exactly as it appeared in the source document: IRIs with
// their angle brackets, blank nodes with the "_:" prefix, literals with
// quotes and any language tag or datatype suffix.
//
// An empty component denotes a wildcard when the triple is used as a search
// pattern.
type TripleString struct {
	Subject   string
	Predicate string
	Object    string
}

// NewTripleString creates a triple from its three components.
func NewTripleString(subject, predicate, object string) TripleString {
	return TripleString{Subject: subject, Predicate: predicate, Object: object}
}

// IsEmpty reports whether all three components are empty.
func (t TripleString) IsEmpty() bool {
	return t.Subject == "" && t.Predicate == "" && t.Object == ""
}

// Match reports whether t matches the given pattern, treating empty pattern
// components as wildcards.
func (t TripleString) Match(pattern TripleString) bool {
	if pattern.Subject != "" && pattern.Subject != t.Subject {
		return false
	}
	if pattern.Predicate != "" && pattern.Predicate != t.Predicate {
		return false
	}
	if pattern.Object != "" && pattern.Object != t.Object {
		return false
	}
	return true
}

func (t TripleString) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}
