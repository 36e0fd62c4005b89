// Package triples implements the triples representations: the mutable
// in-memory list and its badger-backed spill variant, and the plain,
// compact and bitmap column layouts, all answering wildcard pattern
// searches over id triples.
package triples

import "github.com/aleksaelezovic/hdtgo/pkg/hdt"

// sliceIterator walks a triple slice, yielding the entries that match the
// pattern.
type sliceIterator struct {
	triples []hdt.TripleID
	pattern hdt.TripleID
	pos     int
	cur     hdt.TripleID
}

func newSliceIterator(triples []hdt.TripleID, pattern hdt.TripleID) *sliceIterator {
	return &sliceIterator{triples: triples, pattern: pattern}
}

func (it *sliceIterator) Next() bool {
	for it.pos < len(it.triples) {
		t := it.triples[it.pos]
		it.pos++
		if t.Match(it.pattern) {
			it.cur = t
			return true
		}
	}
	return false
}

func (it *sliceIterator) Triple() hdt.TripleID {
	return it.cur
}
