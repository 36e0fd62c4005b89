package triples

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
)

// TriplesList is the mutable building form: a growable array of id
// triples, possibly unsorted and with duplicates until Sort and
// RemoveDuplicates run.
type TriplesList struct {
	arr    []hdt.TripleID
	order  hdt.Order
	sorted bool
}

// NewTriplesList creates an empty list.
func NewTriplesList() *TriplesList {
	return &TriplesList{order: hdt.OrderUnknown}
}

// StartProcessing resets the list to empty.
func (l *TriplesList) StartProcessing() {
	l.arr = l.arr[:0]
	l.order = hdt.OrderUnknown
	l.sorted = false
}

// StopProcessing marks the end of insertion.
func (l *TriplesList) StopProcessing() error {
	return nil
}

// Insert appends a triple. The list loses its sorted state.
func (l *TriplesList) Insert(t hdt.TripleID) error {
	if !t.IsValid() {
		return fmt.Errorf("triples list: insert of wildcard triple %v", t)
	}
	l.arr = append(l.arr, t)
	l.sorted = false
	return nil
}

// Remove deletes every triple matching the pattern. Relative order of the
// remaining triples is preserved, so a sorted list stays sorted.
func (l *TriplesList) Remove(pattern hdt.TripleID) error {
	kept := l.arr[:0]
	for _, t := range l.arr {
		if !t.Match(pattern) {
			kept = append(kept, t)
		}
	}
	l.arr = kept
	return nil
}

// Sort orders the triples lexicographically under the given order.
func (l *TriplesList) Sort(order hdt.Order, listener hdt.ProgressListener) error {
	if order == hdt.OrderUnknown {
		order = hdt.OrderSPO
	}
	if !listener.Notify("sorting triples", 0, 100) {
		return hdt.ErrCancelled
	}
	sort.Slice(l.arr, func(i, j int) bool {
		return order.Compare(l.arr[i], l.arr[j]) < 0
	})
	l.order = order
	l.sorted = true
	listener.Notify("sorting triples", 100, 100)
	return nil
}

// RemoveDuplicates collapses equal adjacent triples. Requires a prior Sort.
func (l *TriplesList) RemoveDuplicates(listener hdt.ProgressListener) error {
	if !l.sorted {
		return fmt.Errorf("triples list: remove duplicates: %w", hdt.ErrNotSorted)
	}
	if !listener.Notify("removing duplicates", 0, 100) {
		return hdt.ErrCancelled
	}
	if len(l.arr) > 1 {
		out := l.arr[:1]
		for _, t := range l.arr[1:] {
			if t != out[len(out)-1] {
				out = append(out, t)
			}
		}
		l.arr = out
	}
	listener.Notify("removing duplicates", 100, 100)
	return nil
}

// Search returns an iterator over triples matching the pattern. When the
// list is sorted and the pattern binds a prefix of the component order,
// the scan is narrowed to the matching range by binary search.
func (l *TriplesList) Search(pattern hdt.TripleID) hdt.TripleIDIterator {
	lo, hi := 0, len(l.arr)
	if l.sorted && l.order != hdt.OrderUnknown {
		lo, hi = prefixRange(l.arr, l.order, pattern)
	}
	return newSliceIterator(l.arr[lo:hi], pattern)
}

// prefixRange narrows [0, n) to the run of triples whose order-leading
// bound components equal the pattern's. An unbound leading component keeps
// the full range.
func prefixRange(arr []hdt.TripleID, order hdt.Order, pattern hdt.TripleID) (int, int) {
	pa, pb, pc := order.Permute(pattern)

	// Length of the bound prefix under the order.
	var prefix int
	switch {
	case pa == 0:
		return 0, len(arr)
	case pb == 0:
		prefix = 1
	case pc == 0:
		prefix = 2
	default:
		prefix = 3
	}

	cmp := func(t hdt.TripleID) int {
		a, b, c := order.Permute(t)
		if a != pa {
			return int(int64(a) - int64(pa))
		}
		if prefix >= 2 && b != pb {
			return int(int64(b) - int64(pb))
		}
		if prefix >= 3 && c != pc {
			return int(int64(c) - int64(pc))
		}
		return 0
	}

	lo := sort.Search(len(arr), func(i int) bool { return cmp(arr[i]) >= 0 })
	hi := sort.Search(len(arr), func(i int) bool { return cmp(arr[i]) > 0 })
	return lo, hi
}

// NumberOfElements returns the triple count.
func (l *TriplesList) NumberOfElements() uint64 {
	return uint64(len(l.arr))
}

// Size returns the in-memory footprint in bytes.
func (l *TriplesList) Size() uint64 {
	return uint64(len(l.arr)) * 12
}

// Order returns the order established by the last Sort, or OrderUnknown.
func (l *TriplesList) Order() hdt.Order {
	return l.order
}

// Type returns the implementation tag.
func (l *TriplesList) Type() string {
	return hdt.TriplesTypeList
}

// Save writes the triples as little-endian u32 records preceded by a
// control block.
func (l *TriplesList) Save(w io.Writer, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	var payload bytes.Buffer
	payload.Grow(len(l.arr) * 12)
	var rec [12]byte
	for _, t := range l.arr {
		binary.LittleEndian.PutUint32(rec[0:4], t.Subject)
		binary.LittleEndian.PutUint32(rec[4:8], t.Predicate)
		binary.LittleEndian.PutUint32(rec[8:12], t.Object)
		payload.Write(rec[:])
	}

	ci.Kind = hdt.ControlTriples
	ci.SetFormat(hdt.TriplesTypeList)
	ci.Set(hdt.PropOrder, l.order.String())
	ci.SetUint(hdt.PropNumTriples, uint64(len(l.arr)))
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

// Load reads the record stream written by Save.
func (l *TriplesList) Load(r io.Reader, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	if ci.Format() != hdt.TriplesTypeList {
		return fmt.Errorf("%w: triples tag %q", hdt.ErrFormat, ci.Format())
	}
	n := ci.GetUint(hdt.PropNumTriples)

	l.StartProcessing()
	l.arr = make([]hdt.TripleID, 0, n)
	var rec [12]byte
	for i := uint64(0); i < n; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return fmt.Errorf("reading triple record: %w", err)
		}
		l.arr = append(l.arr, hdt.TripleID{
			Subject:   binary.LittleEndian.Uint32(rec[0:4]),
			Predicate: binary.LittleEndian.Uint32(rec[4:8]),
			Object:    binary.LittleEndian.Uint32(rec[8:12]),
		})
		if i%100000 == 0 && !listener.Notify("loading triples", i, n) {
			return hdt.ErrCancelled
		}
	}

	l.order = hdt.ParseOrder(ci.Get(hdt.PropOrder))
	l.sorted = l.order != hdt.OrderUnknown
	return nil
}

// PopulateHeader inserts the triples statistics under rootNode.
func (l *TriplesList) PopulateHeader(h hdt.Header, rootNode string) {
	h.Insert(rootNode, hdt.RDFType, l.Type())
	h.InsertUint(rootNode, hdt.TriplesNumTriples, l.NumberOfElements())
	h.Insert(rootNode, hdt.TriplesOrder, `"`+l.order.String()+`"`)
}
