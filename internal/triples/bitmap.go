package triples

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/aleksaelezovic/hdtgo/internal/bits"
	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
)

// BitmapTriples is the canonical compact form. The Y stream holds the
// second coordinates grouped per first-coordinate value and the Z stream
// the third coordinates grouped per (first, second) pair; the Bp and Bo
// bitmaps mark the last entry of each group, so group boundaries resolve
// with rank and select instead of separators. The first coordinate is
// implicit: the k-th Bp group is the value k.
type BitmapTriples struct {
	order   hdt.Order
	streamY *bits.PackedArray
	streamZ *bits.PackedArray
	bitmapP *bits.Bitmap
	bitmapO *bits.Bitmap
}

// NewBitmapTriples creates an empty representation.
func NewBitmapTriples() *BitmapTriples {
	return &BitmapTriples{order: hdt.OrderUnknown}
}

// LoadFrom transcodes a sorted, de-duplicated building form.
func (bt *BitmapTriples) LoadFrom(src hdt.ModifiableTriples, listener hdt.ProgressListener) error {
	order := src.Order()
	if order == hdt.OrderUnknown {
		return fmt.Errorf("bitmap triples: source order unknown: %w", hdt.ErrNotSorted)
	}

	var maxB, maxC uint64
	it := src.Search(hdt.TripleID{})
	for it.Next() {
		_, b, c := order.Permute(it.Triple())
		if uint64(b) > maxB {
			maxB = uint64(b)
		}
		if uint64(c) > maxC {
			maxC = uint64(c)
		}
	}

	bt.order = order
	bt.streamY = bits.NewPackedArray(bits.BitsNeeded(maxB))
	bt.streamZ = bits.NewPackedArray(bits.BitsNeeded(maxC))
	bt.bitmapP = bits.NewBitmap()
	bt.bitmapO = bits.NewBitmap()

	var lastA, lastB uint32
	var done uint64
	total := src.NumberOfElements()
	it = src.Search(hdt.TripleID{})
	for it.Next() {
		a, b, c := order.Permute(it.Triple())

		if lastA != 0 && a != lastA {
			// Close the previous first-level and second-level groups.
			bt.bitmapP.Append(true)
			bt.bitmapO.Append(true)
			bt.streamY.Append(uint64(b))
		} else if lastB != 0 && b != lastB {
			bt.bitmapP.Append(false)
			bt.bitmapO.Append(true)
			bt.streamY.Append(uint64(b))
		} else if lastB == 0 {
			bt.streamY.Append(uint64(b))
		} else {
			bt.bitmapO.Append(false)
		}

		bt.streamZ.Append(uint64(c))
		lastA, lastB = a, b
		done++
		if done%100000 == 0 && !listener.Notify("building bitmap triples", done, total) {
			return hdt.ErrCancelled
		}
	}
	if lastA != 0 {
		bt.bitmapP.Append(true)
		bt.bitmapO.Append(true)
	}
	listener.Notify("building bitmap triples", total, total)
	return nil
}

// bitmapIterator yields triples for Z positions in [pos, end), resolving
// the owning Y entry and implicit first coordinate by rank.
type bitmapIterator struct {
	t       *BitmapTriples
	pattern hdt.TripleID
	pos     int
	end     int
	cur     hdt.TripleID
}

func (it *bitmapIterator) Next() bool {
	for it.pos < it.end {
		z := it.pos
		it.pos++

		y := int(it.t.bitmapO.Rank1(z))
		a := uint32(it.t.bitmapP.Rank1(y)) + 1
		b := uint32(it.t.streamY.Get(y))
		c := uint32(it.t.streamZ.Get(z))

		t := it.t.order.Unpermute(a, b, c)
		if t.Match(it.pattern) {
			it.cur = t
			return true
		}
	}
	return false
}

func (it *bitmapIterator) Triple() hdt.TripleID {
	return it.cur
}

// Search returns an iterator over triples matching the pattern. Components
// bound along the stored order narrow the Z range through select on the
// level bitmaps; remaining components are checked by post-filter.
func (bt *BitmapTriples) Search(pattern hdt.TripleID) hdt.TripleIDIterator {
	if bt.streamZ == nil || bt.streamZ.Len() == 0 {
		return hdt.EmptyIterator{}
	}

	pa, pb, _ := bt.order.Permute(pattern)
	yLo, yHi := 0, bt.streamY.Len()

	if pa != 0 {
		numA := bt.bitmapP.CountOnes()
		if uint64(pa) > numA {
			return hdt.EmptyIterator{}
		}
		lo, _ := bt.bitmapP.Select1(uint64(pa) - 1)
		hi, _ := bt.bitmapP.Select1(uint64(pa))
		yLo, yHi = lo+1, hi+1

		if pb != 0 {
			// The Y slice of one first-level group is sorted.
			i := sort.Search(yHi-yLo, func(i int) bool {
				return uint32(bt.streamY.Get(yLo+i)) >= pb
			})
			if i == yHi-yLo || uint32(bt.streamY.Get(yLo+i)) != pb {
				return hdt.EmptyIterator{}
			}
			yLo, yHi = yLo+i, yLo+i+1
		}
	}

	zLoPos, _ := bt.bitmapO.Select1(uint64(yLo))
	zHiPos, ok := bt.bitmapO.Select1(uint64(yHi))
	if !ok {
		zHiPos = bt.streamZ.Len() - 1
	}
	return &bitmapIterator{t: bt, pattern: pattern, pos: zLoPos + 1, end: zHiPos + 1}
}

// NumberOfElements returns the triple count.
func (bt *BitmapTriples) NumberOfElements() uint64 {
	if bt.streamZ == nil {
		return 0
	}
	return uint64(bt.streamZ.Len())
}

// Size returns the packed footprint in bytes.
func (bt *BitmapTriples) Size() uint64 {
	if bt.streamZ == nil {
		return 0
	}
	return bt.streamY.SizeBytes() + bt.streamZ.SizeBytes() +
		bt.bitmapP.SizeBytes() + bt.bitmapO.SizeBytes()
}

// Order returns the component order of the streams.
func (bt *BitmapTriples) Order() hdt.Order {
	return bt.order
}

// Type returns the implementation tag.
func (bt *BitmapTriples) Type() string {
	return hdt.TriplesTypeBitmap
}

// Save writes Bp, Y, Bo, Z preceded by a control block.
func (bt *BitmapTriples) Save(w io.Writer, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	if bt.bitmapP == nil {
		bt.bitmapP = bits.NewBitmap()
		bt.bitmapO = bits.NewBitmap()
		bt.streamY = bits.NewPackedArray(1)
		bt.streamZ = bits.NewPackedArray(1)
	}

	var payload bytes.Buffer
	if err := bt.bitmapP.Save(&payload); err != nil {
		return err
	}
	if err := bt.streamY.Save(&payload); err != nil {
		return err
	}
	if err := bt.bitmapO.Save(&payload); err != nil {
		return err
	}
	if err := bt.streamZ.Save(&payload); err != nil {
		return err
	}

	ci.Kind = hdt.ControlTriples
	ci.SetFormat(hdt.TriplesTypeBitmap)
	ci.Set(hdt.PropOrder, bt.order.String())
	ci.SetUint(hdt.PropNumTriples, bt.NumberOfElements())
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

// Load reads the sections written by Save.
func (bt *BitmapTriples) Load(r io.Reader, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	if ci.Format() != hdt.TriplesTypeBitmap {
		return fmt.Errorf("%w: triples tag %q", hdt.ErrFormat, ci.Format())
	}

	bt.order = hdt.ParseOrder(ci.Get(hdt.PropOrder))
	bt.bitmapP = bits.NewBitmap()
	bt.bitmapO = bits.NewBitmap()
	bt.streamY = bits.NewPackedArray(1)
	bt.streamZ = bits.NewPackedArray(1)

	if err := bt.bitmapP.Load(r); err != nil {
		return err
	}
	if !listener.Notify("loading triples", 1, 4) {
		return hdt.ErrCancelled
	}
	if err := bt.streamY.Load(r); err != nil {
		return err
	}
	if !listener.Notify("loading triples", 2, 4) {
		return hdt.ErrCancelled
	}
	if err := bt.bitmapO.Load(r); err != nil {
		return err
	}
	if !listener.Notify("loading triples", 3, 4) {
		return hdt.ErrCancelled
	}
	if err := bt.streamZ.Load(r); err != nil {
		return err
	}
	listener.Notify("loading triples", 4, 4)
	return nil
}

// PopulateHeader inserts the triples statistics under rootNode.
func (bt *BitmapTriples) PopulateHeader(h hdt.Header, rootNode string) {
	h.Insert(rootNode, hdt.RDFType, bt.Type())
	h.InsertUint(rootNode, hdt.TriplesNumTriples, bt.NumberOfElements())
	h.Insert(rootNode, hdt.TriplesOrder, `"`+bt.order.String()+`"`)
}
