package store

import (
	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
	"github.com/aleksaelezovic/hdtgo/pkg/rdf"
)

// StringIterator decodes an id iterator back to textual triples lazily.
// It holds a non-owning reference to the dictionary: closing the façade
// invalidates it.
type StringIterator struct {
	dict hdt.Dictionary
	it   hdt.TripleIDIterator
	log  *logrus.Logger
	cur  rdf.TripleString
}

func newStringIterator(d hdt.Dictionary, it hdt.TripleIDIterator, log *logrus.Logger) *StringIterator {
	return &StringIterator{dict: d, it: it, log: log}
}

func emptyStringIterator() *StringIterator {
	return &StringIterator{it: hdt.EmptyIterator{}}
}

// Next advances to the next result. A decode failure ends the iteration
// with a logged diagnostic; search never aborts the caller.
func (s *StringIterator) Next() bool {
	if !s.it.Next() {
		return false
	}
	ts, err := s.dict.TripleIDToTripleString(s.it.Triple())
	if err != nil {
		if s.log != nil {
			s.log.WithError(err).WithField("triple", s.it.Triple()).
				Warn("dropping undecodable triple from search results")
		}
		return false
	}
	s.cur = ts
	return true
}

// Triple returns the current result.
func (s *StringIterator) Triple() rdf.TripleString {
	return s.cur
}
