package triples

import (
	"bytes"
	"fmt"
	"io"

	"github.com/aleksaelezovic/hdtgo/internal/bits"
	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
)

// CompactTriples drops the first-coordinate stream entirely: the Y stream
// holds the second coordinates grouped per first-coordinate value with a
// zero separator between consecutive groups (the last group has no trailing
// separator), and the Z stream holds the third coordinates grouped per
// (first, second) pair the same way. Ids are never zero, so the separator is
// unambiguous.
type CompactTriples struct {
	order      hdt.Order
	streamY    *bits.PackedArray
	streamZ    *bits.PackedArray
	numTriples uint64
}

// NewCompactTriples creates an empty representation.
func NewCompactTriples() *CompactTriples {
	return &CompactTriples{order: hdt.OrderUnknown}
}

// LoadFrom transcodes a sorted, de-duplicated building form.
func (c *CompactTriples) LoadFrom(src hdt.ModifiableTriples, listener hdt.ProgressListener) error {
	order := src.Order()
	if order == hdt.OrderUnknown {
		return fmt.Errorf("compact triples: source order unknown: %w", hdt.ErrNotSorted)
	}

	var maxB, maxC uint64
	it := src.Search(hdt.TripleID{})
	for it.Next() {
		_, b, cc := order.Permute(it.Triple())
		if uint64(b) > maxB {
			maxB = uint64(b)
		}
		if uint64(cc) > maxC {
			maxC = uint64(cc)
		}
	}

	c.order = order
	c.streamY = bits.NewPackedArray(bits.BitsNeeded(maxB))
	c.streamZ = bits.NewPackedArray(bits.BitsNeeded(maxC))
	c.numTriples = 0

	var lastA, lastB uint32
	total := src.NumberOfElements()
	it = src.Search(hdt.TripleID{})
	for it.Next() {
		a, b, cc := order.Permute(it.Triple())
		if lastA != 0 && a != lastA {
			c.streamZ.Append(0)
			c.streamY.Append(0)
			lastB = 0
		} else if lastB != 0 && b != lastB {
			c.streamZ.Append(0)
		}
		if b != lastB {
			c.streamY.Append(uint64(b))
		}
		c.streamZ.Append(uint64(cc))
		lastA, lastB = a, b
		c.numTriples++
		if c.numTriples%100000 == 0 && !listener.Notify("packing triples", c.numTriples, total) {
			return hdt.ErrCancelled
		}
	}
	listener.Notify("packing triples", total, total)
	return nil
}

// compactIterator replays the grouped streams, reconstructing the implicit
// first coordinate from the group separators.
type compactIterator struct {
	t       *CompactTriples
	pattern hdt.TripleID
	posY    int
	posZ    int
	curA    uint32
	curB    uint32
	cur     hdt.TripleID
}

func (it *compactIterator) Next() bool {
	for it.posZ < it.t.streamZ.Len() {
		v := uint32(it.t.streamZ.Get(it.posZ))
		it.posZ++

		if v == 0 || it.curB == 0 {
			// Group boundary: advance the Y cursor, crossing first-level
			// separators as needed.
			for it.posY < it.t.streamY.Len() {
				y := uint32(it.t.streamY.Get(it.posY))
				it.posY++
				if y == 0 {
					it.curA++
					continue
				}
				it.curB = y
				break
			}
			if v == 0 {
				continue
			}
		}

		t := it.t.order.Unpermute(it.curA, it.curB, v)
		if t.Match(it.pattern) {
			it.cur = t
			return true
		}
	}
	return false
}

func (it *compactIterator) Triple() hdt.TripleID {
	return it.cur
}

// Search returns a filtered iterator over the whole sequence.
func (c *CompactTriples) Search(pattern hdt.TripleID) hdt.TripleIDIterator {
	if c.streamZ == nil {
		return hdt.EmptyIterator{}
	}
	return &compactIterator{t: c, pattern: pattern, curA: 1}
}

// NumberOfElements returns the triple count.
func (c *CompactTriples) NumberOfElements() uint64 {
	return c.numTriples
}

// Size returns the packed footprint in bytes.
func (c *CompactTriples) Size() uint64 {
	if c.streamY == nil {
		return 0
	}
	return c.streamY.SizeBytes() + c.streamZ.SizeBytes()
}

// Order returns the component order of the streams.
func (c *CompactTriples) Order() hdt.Order {
	return c.order
}

// Type returns the implementation tag.
func (c *CompactTriples) Type() string {
	return hdt.TriplesTypeCompact
}

// Save writes the two grouped streams preceded by a control block.
func (c *CompactTriples) Save(w io.Writer, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	var payload bytes.Buffer
	for _, s := range []*bits.PackedArray{c.streamY, c.streamZ} {
		if s == nil {
			s = bits.NewPackedArray(1)
		}
		if err := s.Save(&payload); err != nil {
			return err
		}
	}

	ci.Kind = hdt.ControlTriples
	ci.SetFormat(hdt.TriplesTypeCompact)
	ci.Set(hdt.PropOrder, c.order.String())
	ci.SetUint(hdt.PropNumTriples, c.numTriples)
	ci.SetUint(hdt.PropLength, uint64(payload.Len()))
	if err := ci.Save(w); err != nil {
		return err
	}
	if !listener.Notify("saving triples", 50, 100) {
		return hdt.ErrCancelled
	}
	_, err := w.Write(payload.Bytes())
	listener.Notify("saving triples", 100, 100)
	return err
}

// Load reads the streams written by Save.
func (c *CompactTriples) Load(r io.Reader, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	if ci.Format() != hdt.TriplesTypeCompact {
		return fmt.Errorf("%w: triples tag %q", hdt.ErrFormat, ci.Format())
	}

	c.order = hdt.ParseOrder(ci.Get(hdt.PropOrder))
	c.numTriples = ci.GetUint(hdt.PropNumTriples)
	c.streamY = bits.NewPackedArray(1)
	c.streamZ = bits.NewPackedArray(1)
	for i, s := range []*bits.PackedArray{c.streamY, c.streamZ} {
		if err := s.Load(r); err != nil {
			return err
		}
		if !listener.Notify("loading triples", uint64(i+1), 2) {
			return hdt.ErrCancelled
		}
	}
	return nil
}

// PopulateHeader inserts the triples statistics under rootNode.
func (c *CompactTriples) PopulateHeader(h hdt.Header, rootNode string) {
	h.Insert(rootNode, hdt.RDFType, c.Type())
	h.InsertUint(rootNode, hdt.TriplesNumTriples, c.numTriples)
	h.Insert(rootNode, hdt.TriplesOrder, `"`+c.order.String()+`"`)
}
