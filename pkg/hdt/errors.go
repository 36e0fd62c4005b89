package hdt

import "errors"

// Sentinel errors surfaced by the library. Callers test with errors.Is;
// wrapped variants carry context from the failing layer.
var (
	// ErrParse reports malformed input: RDF text, a binary container, or a
	// control block.
	ErrParse = errors.New("parse error")

	// ErrFormat reports a known section kind with an unrecognized
	// implementation tag or version.
	ErrFormat = errors.New("unrecognized format")

	// ErrAlreadyFrozen reports a mutation attempted after a building form
	// was finalized.
	ErrAlreadyFrozen = errors.New("already frozen")

	// ErrNotSorted reports an operation that requires a prior sort.
	ErrNotSorted = errors.New("triples not sorted")

	// ErrUnknownID reports an id outside its partition's range on decode.
	// It indicates corruption and is fatal to the decode.
	ErrUnknownID = errors.New("unknown id")

	// ErrCancelled reports that a progress listener requested abort.
	ErrCancelled = errors.New("operation cancelled")

	// ErrNotImplemented reports an operation the implementation does not
	// provide.
	ErrNotImplemented = errors.New("not implemented")
)
