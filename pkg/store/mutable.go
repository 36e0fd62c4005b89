package store

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/hdtgo/internal/dict"
	"github.com/aleksaelezovic/hdtgo/internal/triples"
	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
	"github.com/aleksaelezovic/hdtgo/pkg/rdf"
)

// MutableHDT keeps the building forms alive indefinitely: a plain
// dictionary that is never finalized and a modifiable triples list. It
// accepts single-triple inserts and removals at any time; serialization
// finalizes a snapshot so the store itself stays mutable.
type MutableHDT struct {
	spec hdt.Spec
	reg  Registry
	log  *logrus.Logger

	header     hdt.Header
	dictionary *dict.PlainDictionary
	triples    hdt.ModifiableTriples
}

// NewMutableHDT creates an empty mutable store.
func NewMutableHDT(spec hdt.Spec) (*MutableHDT, error) {
	if spec == nil {
		spec = hdt.NewSpec()
	}
	m := &MutableHDT{
		spec: spec,
		reg:  NewRegistry(spec),
		log:  logrus.StandardLogger(),
	}
	if err := m.createComponents(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MutableHDT) createComponents() error {
	m.header = m.reg.NewHeader()
	m.dictionary = dict.NewPlainDictionary()

	list, err := m.reg.NewModifiableTriples()
	if err != nil {
		return err
	}
	m.triples = list
	return nil
}

// SetLogger replaces the diagnostics logger.
func (m *MutableHDT) SetLogger(log *logrus.Logger) {
	m.log = log
}

// Header returns the metadata section.
func (m *MutableHDT) Header() hdt.Header { return m.header }

// Dictionary returns the building dictionary.
func (m *MutableHDT) Dictionary() hdt.Dictionary { return m.dictionary }

// Triples returns the building triples form.
func (m *MutableHDT) Triples() hdt.Triples { return m.triples }

// Insert adds one triple, assigning new dictionary ids as needed.
func (m *MutableHDT) Insert(ts rdf.TripleString) error {
	sid, err := m.dictionary.Insert(ts.Subject, hdt.RoleSubject)
	if err != nil {
		return err
	}
	pid, err := m.dictionary.Insert(ts.Predicate, hdt.RolePredicate)
	if err != nil {
		return err
	}
	oid, err := m.dictionary.Insert(ts.Object, hdt.RoleObject)
	if err != nil {
		return err
	}
	return m.triples.Insert(hdt.NewTripleID(sid, pid, oid))
}

// InsertAll would bulk-insert from a reader.
func (m *MutableHDT) InsertAll(r rdf.TriplesReader) error {
	return hdt.ErrNotImplemented
}

// Remove deletes every triple matching the pattern, where empty components
// are wildcards. The dictionary is not garbage-collected: ids grow
// monotonically and removed strings keep theirs.
func (m *MutableHDT) Remove(ts rdf.TripleString) error {
	pattern := m.dictionary.TripleStringToTripleID(ts)
	if (ts.Subject != "" && pattern.Subject == 0) ||
		(ts.Predicate != "" && pattern.Predicate == 0) ||
		(ts.Object != "" && pattern.Object == 0) {
		// A bound component the dictionary never saw matches nothing.
		return nil
	}
	return m.triples.Remove(pattern)
}

// RemoveAll would bulk-remove from a reader.
func (m *MutableHDT) RemoveAll(r rdf.TriplesReader) error {
	return hdt.ErrNotImplemented
}

// LoadFromRDF ingests the parser's triples in a single pass over working
// ids, then sorts and de-duplicates the list.
func (m *MutableHDT) LoadFromRDF(parser rdf.TriplesReader, baseURI string, listener hdt.ProgressListener) error {
	err := m.loadFromRDF(parser, baseURI, listener)
	if err != nil {
		if c, ok := m.triples.(io.Closer); ok {
			_ = c.Close()
		}
		if cErr := m.createComponents(); cErr != nil {
			return cErr
		}
	}
	return err
}

func (m *MutableHDT) loadFromRDF(parser rdf.TriplesReader, baseURI string, listener hdt.ProgressListener) error {
	m.triples.StartProcessing()

	var count uint64
	for {
		ts, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", hdt.ErrParse, err)
		}
		if err := m.Insert(*ts); err != nil {
			return err
		}
		count++
		if count%listenerBatch == 0 && !listener.Notify("generating triples", parser.Pos(), parser.Size()) {
			return hdt.ErrCancelled
		}
	}
	if err := m.triples.StopProcessing(); err != nil {
		return err
	}

	if err := m.triples.Sort(m.spec.Order(), listener.Interval(80, 90)); err != nil {
		return err
	}
	if err := m.triples.RemoveDuplicates(listener.Interval(90, 95)); err != nil {
		return err
	}

	m.dictionary.PopulateHeader(m.header, "_:dictionary")
	m.triples.PopulateHeader(m.header, "_:triples")
	m.header.InsertUint("_:statistics", hdt.HDTOriginalSize, parser.Size())
	m.header.InsertUint("_:statistics", hdt.HDTSize, m.dictionary.Size()+m.triples.Size())
	return nil
}

// Search answers a wildcard pattern over the current contents.
func (m *MutableHDT) Search(subject, predicate, object string) *StringIterator {
	pattern := rdf.NewTripleString(subject, predicate, object)
	tid := m.dictionary.TripleStringToTripleID(pattern)

	if (subject != "" && tid.Subject == 0) ||
		(predicate != "" && tid.Predicate == 0) ||
		(object != "" && tid.Object == 0) {
		return emptyStringIterator()
	}
	return newStringIterator(m.dictionary, m.triples.Search(tid), m.log)
}

// SaveToHDT writes the container from a finalized snapshot: the dictionary
// partitions and re-assigns final ids on a copy, the triples are remapped
// to them, and the store itself stays mutable.
func (m *MutableHDT) SaveToHDT(w io.Writer, listener hdt.ProgressListener) error {
	snap, remap, err := m.dictionary.Snapshot()
	if err != nil {
		return err
	}

	list := triples.NewTriplesList()
	it := m.triples.Search(hdt.TripleID{})
	for it.Next() {
		t := it.Triple()
		if remap != nil {
			t = hdt.TripleID{
				Subject:   remap.Subjects[t.Subject],
				Predicate: remap.Predicates[t.Predicate],
				Object:    remap.Objects[t.Object],
			}
		}
		if err := list.Insert(t); err != nil {
			return err
		}
	}
	if err := list.Sort(m.spec.Order(), nil); err != nil {
		return err
	}
	if err := list.RemoveDuplicates(nil); err != nil {
		return err
	}

	if _, err := io.WriteString(w, cookie); err != nil {
		return fmt.Errorf("writing container cookie: %w", err)
	}
	ci := hdt.NewControlInformation(hdt.ControlHeader)
	if err := m.header.Save(w, ci, listener.Interval(0, 5)); err != nil {
		return err
	}
	ci.Clear()
	if err := snap.Save(w, ci, listener.Interval(5, 60)); err != nil {
		return err
	}
	ci.Clear()
	return list.Save(w, ci, listener.Interval(60, 100))
}

// LoadFromHDT replaces the store contents from a container holding the
// building-form sections: a plain dictionary and a triples list. The
// dictionary is thawed back into building form with its ids intact.
func (m *MutableHDT) LoadFromHDT(r io.Reader, listener hdt.ProgressListener) error {
	br := bufio.NewReader(r)

	magic := make([]byte, len(cookie))
	if _, err := io.ReadFull(br, magic); err != nil {
		return fmt.Errorf("%w: reading container cookie: %v", hdt.ErrParse, err)
	}
	if string(magic) != cookie {
		return fmt.Errorf("%w: bad container cookie %q", hdt.ErrParse, magic)
	}

	ci := hdt.NewControlInformation(hdt.ControlHeader)
	if err := ci.Load(br); err != nil {
		return err
	}
	hdr, err := m.reg.ReadHeader(ci)
	if err != nil {
		return err
	}
	if err := hdr.Load(br, ci, listener.Interval(0, 5)); err != nil {
		return err
	}

	ci.Clear()
	if err := ci.Load(br); err != nil {
		return err
	}
	if ci.Format() != hdt.DictionaryTypePlain {
		return fmt.Errorf("%w: mutable store requires a plain dictionary, got %q", hdt.ErrFormat, ci.Format())
	}
	dictionary := dict.NewPlainDictionary()
	if err := dictionary.Load(br, ci, listener.Interval(5, 60)); err != nil {
		return err
	}
	if err := dictionary.Thaw(); err != nil {
		return err
	}

	ci.Clear()
	if err := ci.Load(br); err != nil {
		return err
	}
	list, err := m.reg.NewModifiableTriples()
	if err != nil {
		return err
	}
	if err := list.Load(br, ci, listener.Interval(60, 100)); err != nil {
		return err
	}

	if c, ok := m.triples.(io.Closer); ok {
		_ = c.Close()
	}
	m.header = hdr
	m.dictionary = dictionary
	m.triples = list
	return nil
}

// SaveFile writes the container to a file.
func (m *MutableHDT) SaveFile(path string, listener hdt.ProgressListener) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating hdt file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := m.SaveToHDT(bw, listener); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a container from a file.
func (m *MutableHDT) LoadFile(path string, listener hdt.ProgressListener) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening hdt file: %w", err)
	}
	defer f.Close()
	return m.LoadFromHDT(f, listener)
}

// SaveToRDF serializes the current graph back to N-Triples.
func (m *MutableHDT) SaveToRDF(w io.Writer, listener hdt.ProgressListener) error {
	ser := rdf.NewSerializer(w)
	total := m.triples.NumberOfElements()

	var done uint64
	it := m.Search("", "", "")
	for it.Next() {
		if err := ser.Write(it.Triple()); err != nil {
			return err
		}
		done++
		if done%listenerBatch == 0 && !listener.Notify("serializing triples", done, total) {
			return hdt.ErrCancelled
		}
	}
	return nil
}

// Convert is not implemented: it always returns hdt.ErrNotImplemented and
// leaves the store unchanged.
func (m *MutableHDT) Convert(spec hdt.Spec) error {
	return hdt.ErrNotImplemented
}

// Close releases owned resources.
func (m *MutableHDT) Close() error {
	if c, ok := m.triples.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
