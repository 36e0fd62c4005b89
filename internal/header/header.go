// Package header implements the metadata section: a block of N-Triples
// statements the façade fills with counts, type tags and publication info.
package header

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
	"github.com/aleksaelezovic/hdtgo/pkg/rdf"
)

// PlainHeader keeps the statements in memory and serializes them as a
// UTF-8 N-Triples block.
type PlainHeader struct {
	statements []rdf.TripleString
}

// NewPlainHeader creates an empty header.
func NewPlainHeader() *PlainHeader {
	return &PlainHeader{}
}

// Insert appends one statement.
func (h *PlainHeader) Insert(subject, predicate, object string) {
	h.statements = append(h.statements, rdf.NewTripleString(subject, predicate, object))
}

// InsertUint appends one statement with an integer literal object.
func (h *PlainHeader) InsertUint(subject, predicate string, value uint64) {
	h.Insert(subject, predicate, `"`+strconv.FormatUint(value, 10)+`"`)
}

// Statements returns the stored statements in insertion order.
func (h *PlainHeader) Statements() []rdf.TripleString {
	return h.statements
}

// NumberOfElements returns the statement count.
func (h *PlainHeader) NumberOfElements() uint64 {
	return uint64(len(h.statements))
}

// Type returns the implementation tag.
func (h *PlainHeader) Type() string {
	return hdt.HeaderTypePlain
}

// Save writes the statements as an N-Triples block preceded by a control
// block carrying the payload length.
func (h *PlainHeader) Save(w io.Writer, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	var payload bytes.Buffer
	ser := rdf.NewSerializer(&payload)
	for _, st := range h.statements {
		if err := ser.Write(st); err != nil {
			return err
		}
	}

	ci.Kind = hdt.ControlHeader
	ci.SetFormat(hdt.HeaderTypePlain)
	ci.SetUint(hdt.PropLength, uint64(payload.Len()))
	if err := ci.Save(w); err != nil {
		return err
	}
	if !listener.Notify("saving header", 50, 100) {
		return hdt.ErrCancelled
	}
	_, err := w.Write(payload.Bytes())
	listener.Notify("saving header", 100, 100)
	return err
}

// Load reads the block written by Save. The length property bounds the
// payload so the dictionary section that follows stays untouched.
func (h *PlainHeader) Load(r io.Reader, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	if ci.Format() != hdt.HeaderTypePlain {
		return fmt.Errorf("%w: header tag %q", hdt.ErrFormat, ci.Format())
	}

	length := ci.GetUint(hdt.PropLength)
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("reading header payload: %w", err)
	}

	h.statements = nil
	parser := rdf.NewParser(string(buf))
	for {
		ts, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: header statement: %v", hdt.ErrParse, err)
		}
		h.statements = append(h.statements, *ts)
	}
	listener.Notify("loading header", 100, 100)
	return nil
}

// EmptyHeader discards all statements; it serializes a zero-length
// payload. Selected with the noheader spec flag.
type EmptyHeader struct{}

// NewEmptyHeader creates the empty header.
func NewEmptyHeader() *EmptyHeader {
	return &EmptyHeader{}
}

func (EmptyHeader) Insert(subject, predicate, object string)           {}
func (EmptyHeader) InsertUint(subject, predicate string, value uint64) {}
func (EmptyHeader) NumberOfElements() uint64                           { return 0 }
func (EmptyHeader) Type() string                                       { return hdt.HeaderTypeEmpty }

// Save writes a control block with an empty payload.
func (EmptyHeader) Save(w io.Writer, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	ci.Kind = hdt.ControlHeader
	ci.SetFormat(hdt.HeaderTypeEmpty)
	ci.SetUint(hdt.PropLength, 0)
	return ci.Save(w)
}

// Load skips the payload whose length the control block records; Save
// always records a length of zero.
func (EmptyHeader) Load(r io.Reader, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	if ci.Format() != hdt.HeaderTypeEmpty {
		return fmt.Errorf("%w: header tag %q", hdt.ErrFormat, ci.Format())
	}
	if length := ci.GetUint(hdt.PropLength); length > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
			return fmt.Errorf("skipping header payload: %w", err)
		}
	}
	return nil
}
