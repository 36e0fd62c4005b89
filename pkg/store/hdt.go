package store

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/edsrzf/mmap-go"
	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/hdtgo/internal/dict"
	"github.com/aleksaelezovic/hdtgo/internal/triples"
	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
	"github.com/aleksaelezovic/hdtgo/pkg/rdf"
)

// cookie opens every container file.
const cookie = "$HDT"

// listenerBatch is how many parsed triples go by between cancellation
// checks during ingest.
const listenerBatch = 4096

// HDT is the immutable-after-build façade: it ingests an RDF stream into
// compact dictionary and triples forms, answers wildcard pattern searches,
// and round-trips the binary container.
type HDT struct {
	spec hdt.Spec
	reg  Registry
	log  *logrus.Logger

	header     hdt.Header
	dictionary hdt.Dictionary
	triples    hdt.Triples

	mapped mmap.MMap
}

// NewHDT creates an empty store configured by spec. A nil spec selects the
// defaults: plain dictionary, bitmap triples, SPO order.
func NewHDT(spec hdt.Spec) *HDT {
	if spec == nil {
		spec = hdt.NewSpec()
	}
	h := &HDT{
		spec: spec,
		reg:  NewRegistry(spec),
		log:  logrus.StandardLogger(),
	}
	h.createComponents()
	return h
}

// SetLogger replaces the diagnostics logger.
func (h *HDT) SetLogger(log *logrus.Logger) {
	h.log = log
}

// createComponents resets the store to empty components of the configured
// types. It runs at creation and after failed builds or loads so the
// façade stays usable.
func (h *HDT) createComponents() {
	h.header = h.reg.NewHeader()

	if h.reg.dictionaryTag() == hdt.DictionaryTypePFC {
		h.dictionary = dict.NewPFCDictionary(h.spec)
	} else {
		h.dictionary = dict.NewPlainDictionary()
	}

	switch h.reg.triplesTag() {
	case hdt.TriplesTypeList:
		h.triples = triples.NewTriplesList()
	case hdt.TriplesTypePlain:
		h.triples = triples.NewPlainTriples()
	case hdt.TriplesTypeCompact:
		h.triples = triples.NewCompactTriples()
	default:
		h.triples = triples.NewBitmapTriples()
	}
}

// Header returns the metadata section.
func (h *HDT) Header() hdt.Header { return h.header }

// Dictionary returns the string dictionary.
func (h *HDT) Dictionary() hdt.Dictionary { return h.dictionary }

// Triples returns the triples component.
func (h *HDT) Triples() hdt.Triples { return h.triples }

// LoadFromRDF ingests the parser's triples: first pass fills the
// dictionary, second pass translates into the triples building form,
// which is sorted, de-duplicated and transcoded into the configured
// compact layout. On failure the partial forms are dropped and the store
// is reset to empty components.
func (h *HDT) LoadFromRDF(parser rdf.TriplesReader, baseURI string, listener hdt.ProgressListener) error {
	err := h.loadFromRDF(parser, baseURI, listener)
	if err != nil {
		h.createComponents()
	}
	return err
}

func (h *HDT) loadFromRDF(parser rdf.TriplesReader, baseURI string, listener hdt.ProgressListener) error {
	start := time.Now()

	if err := h.loadDictionary(parser, listener.Interval(0, 50)); err != nil {
		return err
	}
	if err := h.loadTriples(parser, listener.Interval(50, 99)); err != nil {
		return err
	}
	h.populateHeader(baseURI, parser.Size())

	h.log.WithFields(logrus.Fields{
		"entries":  h.dictionary.NumberOfElements(),
		"triples":  h.triples.NumberOfElements(),
		"duration": time.Since(start),
	}).Debug("rdf import finished")
	return nil
}

// loadDictionary runs the first parser pass, then finalizes and, when
// configured, transcodes to the front-coded form.
func (h *HDT) loadDictionary(parser rdf.TriplesReader, listener hdt.ProgressListener) error {
	plain := dict.NewPlainDictionary()

	var count uint64
	for {
		ts, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", hdt.ErrParse, err)
		}

		if _, err := plain.Insert(ts.Subject, hdt.RoleSubject); err != nil {
			return err
		}
		if _, err := plain.Insert(ts.Predicate, hdt.RolePredicate); err != nil {
			return err
		}
		if _, err := plain.Insert(ts.Object, hdt.RoleObject); err != nil {
			return err
		}

		count++
		if count%listenerBatch == 0 && !listener.Notify("generating dictionary", parser.Pos(), parser.Size()) {
			return hdt.ErrCancelled
		}
	}

	if err := plain.StopProcessing(listener.Interval(80, 90)); err != nil {
		return err
	}

	if h.reg.dictionaryTag() == hdt.DictionaryTypePFC {
		pfc := dict.NewPFCDictionary(h.spec)
		if err := pfc.Import(plain, listener.Interval(90, 100)); err != nil {
			return err
		}
		h.dictionary = pfc
	} else {
		h.dictionary = plain
	}
	return nil
}

// loadTriples runs the second parser pass through the now-final
// dictionary ids, sorts, removes duplicates and transcodes.
func (h *HDT) loadTriples(parser rdf.TriplesReader, listener hdt.ProgressListener) error {
	list, err := h.reg.NewModifiableTriples()
	if err != nil {
		return err
	}
	defer func() {
		if c, ok := list.(io.Closer); ok && h.triples != list {
			_ = c.Close()
		}
	}()

	if err := parser.Rewind(); err != nil {
		return fmt.Errorf("rewinding parser: %w", err)
	}
	list.StartProcessing()

	var count uint64
	for {
		ts, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", hdt.ErrParse, err)
		}

		tid := h.dictionary.TripleStringToTripleID(*ts)
		if err := list.Insert(tid); err != nil {
			return err
		}

		count++
		if count%listenerBatch == 0 && !listener.Notify("generating triples", parser.Pos(), parser.Size()) {
			return hdt.ErrCancelled
		}
	}
	if err := list.StopProcessing(); err != nil {
		return err
	}

	order := h.spec.Order()
	if err := list.Sort(order, listener.Interval(60, 80)); err != nil {
		return err
	}
	if err := list.RemoveDuplicates(listener.Interval(80, 90)); err != nil {
		return err
	}

	if h.reg.triplesTag() == list.Type() {
		h.triples = list
		return nil
	}

	switch target := h.triples.(type) {
	case *triples.PlainTriples:
		err = target.LoadFrom(list, listener.Interval(90, 100))
	case *triples.CompactTriples:
		err = target.LoadFrom(list, listener.Interval(90, 100))
	case *triples.BitmapTriples:
		err = target.LoadFrom(list, listener.Interval(90, 100))
	default:
		err = fmt.Errorf("%w: cannot transcode into %q", hdt.ErrFormat, h.triples.Type())
	}
	return err
}

// populateHeader emits the dataset skeleton, the component statistics and
// the publication date.
func (h *HDT) populateHeader(baseURI string, originalSize uint64) {
	if baseURI == "" {
		baseURI = "<file://dataset>"
	}

	const (
		formatNode      = "_:format"
		dictNode        = "_:dictionary"
		triplesNode     = "_:triples"
		statsNode       = "_:statistics"
		publicationNode = "_:publicationInformation"
	)

	h.header.Insert(baseURI, hdt.RDFType, hdt.HDTDataset)
	h.header.Insert(baseURI, hdt.HDTFormatInformation, formatNode)
	h.header.Insert(formatNode, hdt.HDTDictionary, dictNode)
	h.header.Insert(formatNode, hdt.HDTTriples, triplesNode)
	h.header.Insert(baseURI, hdt.HDTStatisticalInformation, statsNode)
	h.header.Insert(baseURI, hdt.HDTPublicationInformation, publicationNode)

	h.dictionary.PopulateHeader(h.header, dictNode)
	h.triples.PopulateHeader(h.header, triplesNode)

	h.header.InsertUint(statsNode, hdt.HDTOriginalSize, originalSize)
	h.header.InsertUint(statsNode, hdt.HDTSize, h.dictionary.Size()+h.triples.Size())
	h.header.Insert(publicationNode, hdt.DublinCoreIssued,
		`"`+time.Now().Format(time.RFC3339)+`"`)
}

// Search answers a wildcard pattern, where empty components match
// anything. A bound component the dictionary does not know yields an
// empty iterator, never an error.
func (h *HDT) Search(subject, predicate, object string) *StringIterator {
	pattern := rdf.NewTripleString(subject, predicate, object)
	tid := h.dictionary.TripleStringToTripleID(pattern)

	if (subject != "" && tid.Subject == 0) ||
		(predicate != "" && tid.Predicate == 0) ||
		(object != "" && tid.Object == 0) {
		return emptyStringIterator()
	}
	return newStringIterator(h.dictionary, h.triples.Search(tid), h.log)
}

// SaveToHDT writes the container: the cookie, then the header, dictionary
// and triples sections, each framed by its control block.
func (h *HDT) SaveToHDT(w io.Writer, listener hdt.ProgressListener) error {
	if _, err := io.WriteString(w, cookie); err != nil {
		return fmt.Errorf("writing container cookie: %w", err)
	}

	ci := hdt.NewControlInformation(hdt.ControlHeader)
	if err := h.header.Save(w, ci, listener.Interval(0, 5)); err != nil {
		return err
	}

	ci.Clear()
	if err := h.dictionary.Save(w, ci, listener.Interval(5, 60)); err != nil {
		return err
	}

	ci.Clear()
	return h.triples.Save(w, ci, listener.Interval(60, 100))
}

// LoadFromHDT replaces the store's components with the ones described by
// the container sections. On failure the store is reset to empty
// components of the configured types.
func (h *HDT) LoadFromHDT(r io.Reader, listener hdt.ProgressListener) error {
	if err := h.loadFromHDT(r, listener); err != nil {
		h.createComponents()
		return err
	}
	return nil
}

func (h *HDT) loadFromHDT(r io.Reader, listener hdt.ProgressListener) error {
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
	hdr, err := h.reg.ReadHeader(ci)
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
	dictionary, err := h.reg.ReadDictionary(ci)
	if err != nil {
		return err
	}
	if err := dictionary.Load(br, ci, listener.Interval(5, 60)); err != nil {
		return err
	}

	ci.Clear()
	if err := ci.Load(br); err != nil {
		return err
	}
	trip, err := h.reg.ReadTriples(ci)
	if err != nil {
		return err
	}
	if err := trip.Load(br, ci, listener.Interval(60, 100)); err != nil {
		return err
	}

	h.header = hdr
	h.dictionary = dictionary
	h.triples = trip
	return nil
}

// SaveFile writes the container to a file.
func (h *HDT) SaveFile(path string, listener hdt.ProgressListener) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating hdt file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := h.SaveToHDT(bw, listener); err != nil {
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
func (h *HDT) LoadFile(path string, listener hdt.ProgressListener) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening hdt file: %w", err)
	}
	defer f.Close()
	return h.LoadFromHDT(f, listener)
}

// MapFile memory-maps a container and parses the sections from the mapped
// bytes, avoiding read buffering for large dictionaries. The mapping is
// released by Close.
func (h *HDT) MapFile(path string, listener hdt.ProgressListener) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening hdt file: %w", err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("mapping hdt file: %w", err)
	}

	if err := h.LoadFromHDT(bytes.NewReader(m), listener); err != nil {
		_ = m.Unmap()
		return err
	}
	h.mapped = m
	return nil
}

// SaveToRDF serializes the full graph back to N-Triples.
func (h *HDT) SaveToRDF(w io.Writer, listener hdt.ProgressListener) error {
	ser := rdf.NewSerializer(w)
	total := h.triples.NumberOfElements()

	var done uint64
	it := h.Search("", "", "")
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
func (h *HDT) Convert(spec hdt.Spec) error {
	return hdt.ErrNotImplemented
}

// Close releases owned resources and invalidates outstanding iterators.
func (h *HDT) Close() error {
	var firstErr error
	if c, ok := h.triples.(io.Closer); ok {
		if err := c.Close(); err != nil {
			firstErr = err
		}
	}
	if h.mapped != nil {
		if err := h.mapped.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
		h.mapped = nil
	}
	return firstErr
}
