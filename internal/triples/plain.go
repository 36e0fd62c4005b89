package triples

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/aleksaelezovic/hdtgo/internal/bits"
	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
)

// PlainTriples stores the three components as parallel bit-packed streams
// arranged in the component order. There is no index: a bound first
// coordinate narrows the scan by binary search, anything else is a filtered
// pass.
type PlainTriples struct {
	order   hdt.Order
	streamA *bits.PackedArray
	streamB *bits.PackedArray
	streamC *bits.PackedArray
}

// NewPlainTriples creates an empty representation.
func NewPlainTriples() *PlainTriples {
	return &PlainTriples{order: hdt.OrderUnknown}
}

// LoadFrom transcodes a sorted, de-duplicated building form.
func (p *PlainTriples) LoadFrom(src hdt.ModifiableTriples, listener hdt.ProgressListener) error {
	order := src.Order()
	if order == hdt.OrderUnknown {
		return fmt.Errorf("plain triples: source order unknown: %w", hdt.ErrNotSorted)
	}

	var maxA, maxB, maxC uint64
	it := src.Search(hdt.TripleID{})
	for it.Next() {
		a, b, c := order.Permute(it.Triple())
		if uint64(a) > maxA {
			maxA = uint64(a)
		}
		if uint64(b) > maxB {
			maxB = uint64(b)
		}
		if uint64(c) > maxC {
			maxC = uint64(c)
		}
	}

	p.order = order
	p.streamA = bits.NewPackedArray(bits.BitsNeeded(maxA))
	p.streamB = bits.NewPackedArray(bits.BitsNeeded(maxB))
	p.streamC = bits.NewPackedArray(bits.BitsNeeded(maxC))

	total := src.NumberOfElements()
	var done uint64
	it = src.Search(hdt.TripleID{})
	for it.Next() {
		a, b, c := order.Permute(it.Triple())
		p.streamA.Append(uint64(a))
		p.streamB.Append(uint64(b))
		p.streamC.Append(uint64(c))
		done++
		if done%100000 == 0 && !listener.Notify("packing triples", done, total) {
			return hdt.ErrCancelled
		}
	}
	listener.Notify("packing triples", total, total)
	return nil
}

type plainIterator struct {
	t       *PlainTriples
	pattern hdt.TripleID
	pos     int
	end     int
	cur     hdt.TripleID
}

func (it *plainIterator) Next() bool {
	for it.pos < it.end {
		i := it.pos
		it.pos++
		t := it.t.order.Unpermute(
			uint32(it.t.streamA.Get(i)),
			uint32(it.t.streamB.Get(i)),
			uint32(it.t.streamC.Get(i)),
		)
		if t.Match(it.pattern) {
			it.cur = t
			return true
		}
	}
	return false
}

func (it *plainIterator) Triple() hdt.TripleID {
	return it.cur
}

// Search returns an iterator over triples matching the pattern.
func (p *PlainTriples) Search(pattern hdt.TripleID) hdt.TripleIDIterator {
	if p.streamA == nil {
		return hdt.EmptyIterator{}
	}

	lo, hi := 0, p.streamA.Len()
	if pa, _, _ := p.order.Permute(pattern); pa != 0 {
		lo = sort.Search(p.streamA.Len(), func(i int) bool {
			return uint32(p.streamA.Get(i)) >= pa
		})
		hi = sort.Search(p.streamA.Len(), func(i int) bool {
			return uint32(p.streamA.Get(i)) > pa
		})
	}
	return &plainIterator{t: p, pattern: pattern, pos: lo, end: hi}
}

// NumberOfElements returns the triple count.
func (p *PlainTriples) NumberOfElements() uint64 {
	if p.streamA == nil {
		return 0
	}
	return uint64(p.streamA.Len())
}

// Size returns the packed footprint in bytes.
func (p *PlainTriples) Size() uint64 {
	if p.streamA == nil {
		return 0
	}
	return p.streamA.SizeBytes() + p.streamB.SizeBytes() + p.streamC.SizeBytes()
}

// Order returns the component order of the streams.
func (p *PlainTriples) Order() hdt.Order {
	return p.order
}

// Type returns the implementation tag.
func (p *PlainTriples) Type() string {
	return hdt.TriplesTypePlain
}

// Save writes the three packed streams preceded by a control block.
func (p *PlainTriples) Save(w io.Writer, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	var payload bytes.Buffer
	for _, s := range []*bits.PackedArray{p.streamA, p.streamB, p.streamC} {
		if s == nil {
			s = bits.NewPackedArray(1)
		}
		if err := s.Save(&payload); err != nil {
			return err
		}
	}

	ci.Kind = hdt.ControlTriples
	ci.SetFormat(hdt.TriplesTypePlain)
	ci.Set(hdt.PropOrder, p.order.String())
	ci.SetUint(hdt.PropNumTriples, p.NumberOfElements())
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
func (p *PlainTriples) Load(r io.Reader, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	if ci.Format() != hdt.TriplesTypePlain {
		return fmt.Errorf("%w: triples tag %q", hdt.ErrFormat, ci.Format())
	}

	p.order = hdt.ParseOrder(ci.Get(hdt.PropOrder))
	p.streamA = bits.NewPackedArray(1)
	p.streamB = bits.NewPackedArray(1)
	p.streamC = bits.NewPackedArray(1)
	for i, s := range []*bits.PackedArray{p.streamA, p.streamB, p.streamC} {
		if err := s.Load(r); err != nil {
			return err
		}
		if !listener.Notify("loading triples", uint64(i+1), 3) {
			return hdt.ErrCancelled
		}
	}
	return nil
}

// PopulateHeader inserts the triples statistics under rootNode.
func (p *PlainTriples) PopulateHeader(h hdt.Header, rootNode string) {
	h.Insert(rootNode, hdt.RDFType, p.Type())
	h.InsertUint(rootNode, hdt.TriplesNumTriples, p.NumberOfElements())
	h.Insert(rootNode, hdt.TriplesOrder, `"`+p.order.String()+`"`)
}
