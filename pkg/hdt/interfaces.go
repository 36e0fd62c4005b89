package hdt

import (
	"io"

	"github.com/aleksaelezovic/hdtgo/pkg/rdf"
)

// Dictionary maps strings to identifiers across the four partitions
// (shared, subjects-only, objects-only, predicates) and back.
type Dictionary interface {
	// StringToID resolves a string within the namespace of the given role.
	// Unknown strings yield 0, the wildcard id.
	StringToID(s string, role Role) uint32

	// IDToString resolves an id within the namespace of the given role.
	// Ids outside the valid range fail with ErrUnknownID.
	IDToString(id uint32, role Role) (string, error)

	// TripleStringToTripleID translates a textual triple; unknown components
	// become wildcards so the result can be used as a search pattern.
	TripleStringToTripleID(ts rdf.TripleString) TripleID

	// TripleIDToTripleString translates a stored id triple back to text.
	TripleIDToTripleString(t TripleID) (rdf.TripleString, error)

	NumShared() uint32
	NumSubjects() uint32 // shared + subject-only
	NumObjects() uint32  // shared + object-only
	NumPredicates() uint32

	// NumberOfElements is the count of distinct strings across partitions.
	NumberOfElements() uint64

	// Size is the approximate in-memory footprint in bytes.
	Size() uint64

	// Type returns the implementation tag recorded in control blocks.
	Type() string

	Save(w io.Writer, ci *ControlInformation, listener ProgressListener) error
	Load(r io.Reader, ci *ControlInformation, listener ProgressListener) error

	// PopulateHeader inserts the dictionary's statistics under rootNode.
	PopulateHeader(h Header, rootNode string)
}

// ModifiableDictionary is the building form of a Dictionary.
type ModifiableDictionary interface {
	Dictionary

	// StartProcessing resets the building state.
	StartProcessing()

	// Insert adds a string under the given role and returns its working id.
	// Working ids are stable for the lifetime of the building form; final
	// partitioned ids exist only after StopProcessing. Inserting after
	// StopProcessing fails with ErrAlreadyFrozen.
	Insert(s string, role Role) (uint32, error)

	// StopProcessing partitions, sorts, and assigns final ids. It may be
	// called once; later mutations fail with ErrAlreadyFrozen.
	StopProcessing(listener ProgressListener) error
}

// Triples answers pattern queries over stored id triples.
type Triples interface {
	// Search returns an iterator over triples matching the pattern, where
	// zero components match anything.
	Search(pattern TripleID) TripleIDIterator

	NumberOfElements() uint64
	Size() uint64
	Order() Order
	Type() string

	Save(w io.Writer, ci *ControlInformation, listener ProgressListener) error
	Load(r io.Reader, ci *ControlInformation, listener ProgressListener) error

	PopulateHeader(h Header, rootNode string)
}

// ModifiableTriples is the building form of Triples.
type ModifiableTriples interface {
	Triples

	StartProcessing()
	StopProcessing() error

	Insert(t TripleID) error

	// Remove deletes every stored triple matching the pattern.
	Remove(pattern TripleID) error

	// Sort orders the triples lexicographically under the given order.
	Sort(order Order, listener ProgressListener) error

	// RemoveDuplicates collapses equal adjacent triples. It requires a
	// prior Sort and fails with ErrNotSorted otherwise.
	RemoveDuplicates(listener ProgressListener) error
}

// Header is the metadata section: an opaque set of RDF statements the core
// populates with counts and type tags.
type Header interface {
	Insert(subject, predicate, object string)
	InsertUint(subject, predicate string, value uint64)

	NumberOfElements() uint64
	Type() string

	Save(w io.Writer, ci *ControlInformation, listener ProgressListener) error
	Load(r io.Reader, ci *ControlInformation, listener ProgressListener) error
}
