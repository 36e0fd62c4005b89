package triples

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
)

// testGraph is a deterministic triple set with shared prefixes at every
// level so group boundaries are exercised.
func testGraph() []hdt.TripleID {
	var out []hdt.TripleID
	for s := uint32(1); s <= 5; s++ {
		for p := uint32(1); p <= 3; p++ {
			for o := uint32(1); o <= 4; o++ {
				if (s+p+o)%2 == 0 {
					out = append(out, hdt.NewTripleID(s, p, o))
				}
			}
		}
		// Keep every subject and object id populated so the first level
		// stays dense in all orders.
		out = append(out, hdt.NewTripleID(s, 1, s))
	}
	return out
}

func sortedList(t *testing.T, order hdt.Order, triples []hdt.TripleID) *TriplesList {
	t.Helper()
	l := NewTriplesList()
	for _, tr := range triples {
		require.NoError(t, l.Insert(tr))
	}
	require.NoError(t, l.Sort(order, nil))
	require.NoError(t, l.RemoveDuplicates(nil))
	return l
}

func filterSet(triples []hdt.TripleID, pattern hdt.TripleID) map[hdt.TripleID]bool {
	out := make(map[hdt.TripleID]bool)
	for _, tr := range triples {
		if tr.Match(pattern) {
			out[tr] = true
		}
	}
	return out
}

func toSet(triples []hdt.TripleID) map[hdt.TripleID]bool {
	out := make(map[hdt.TripleID]bool)
	for _, tr := range triples {
		out[tr] = true
	}
	return out
}

// every pattern shape over a fixed probe triple plus full wildcards.
func patternShapes(probe hdt.TripleID) []hdt.TripleID {
	return []hdt.TripleID{
		{},
		{Subject: probe.Subject},
		{Predicate: probe.Predicate},
		{Object: probe.Object},
		{Subject: probe.Subject, Predicate: probe.Predicate},
		{Subject: probe.Subject, Object: probe.Object},
		{Predicate: probe.Predicate, Object: probe.Object},
		probe,
	}
}

func TestBitmapTriplesSearchCompleteness(t *testing.T) {
	graph := testGraph()
	probe := hdt.NewTripleID(2, 1, 3)

	for _, order := range []hdt.Order{hdt.OrderSPO, hdt.OrderPOS, hdt.OrderOPS} {
		l := sortedList(t, order, graph)

		bt := NewBitmapTriples()
		require.NoError(t, bt.LoadFrom(l, nil))
		require.Equal(t, l.NumberOfElements(), bt.NumberOfElements())
		require.Equal(t, order, bt.Order())

		for _, pattern := range patternShapes(probe) {
			want := filterSet(graph, pattern)
			got := collect(bt.Search(pattern))
			require.Equal(t, want, toSet(got), "order %s pattern %v", order, pattern)
		}
	}
}

func TestBitmapTriplesIterationOrder(t *testing.T) {
	l := sortedList(t, hdt.OrderSPO, testGraph())

	bt := NewBitmapTriples()
	require.NoError(t, bt.LoadFrom(l, nil))

	// A compatible pattern iterates in the stored order.
	got := collect(bt.Search(hdt.NewTripleID(2, 0, 0)))
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		require.Negative(t, hdt.OrderSPO.Compare(got[i-1], got[i]))
	}
}

func TestBitmapTriplesOutOfRangeSubject(t *testing.T) {
	l := sortedList(t, hdt.OrderSPO, testGraph())

	bt := NewBitmapTriples()
	require.NoError(t, bt.LoadFrom(l, nil))

	require.Empty(t, collect(bt.Search(hdt.NewTripleID(99, 0, 0))))
}

func TestBitmapTriplesS1(t *testing.T) {
	l := sortedList(t, hdt.OrderSPO, []hdt.TripleID{
		hdt.NewTripleID(1, 1, 2),
		hdt.NewTripleID(1, 1, 3),
		hdt.NewTripleID(2, 2, 1),
	})

	bt := NewBitmapTriples()
	require.NoError(t, bt.LoadFrom(l, nil))
	require.Equal(t, uint64(3), bt.NumberOfElements())

	require.Equal(t, []hdt.TripleID{
		hdt.NewTripleID(1, 1, 2),
		hdt.NewTripleID(1, 1, 3),
	}, collect(bt.Search(hdt.NewTripleID(1, 0, 0))))

	require.Equal(t, []hdt.TripleID{
		hdt.NewTripleID(2, 2, 1),
	}, collect(bt.Search(hdt.NewTripleID(2, 2, 0))))
}

func TestBitmapTriplesSaveLoad(t *testing.T) {
	l := sortedList(t, hdt.OrderSPO, testGraph())

	bt := NewBitmapTriples()
	require.NoError(t, bt.LoadFrom(l, nil))

	var buf bytes.Buffer
	ci := hdt.NewControlInformation(hdt.ControlTriples)
	require.NoError(t, bt.Save(&buf, ci, nil))
	require.Equal(t, hdt.TriplesTypeBitmap, ci.Format())
	require.Equal(t, "SPO", ci.Get(hdt.PropOrder))

	loadCI := hdt.NewControlInformation(0)
	require.NoError(t, loadCI.Load(&buf))

	loaded := NewBitmapTriples()
	require.NoError(t, loaded.Load(&buf, loadCI, nil))
	require.Zero(t, buf.Len())

	require.Equal(t, bt.NumberOfElements(), loaded.NumberOfElements())
	require.Equal(t, collect(bt.Search(hdt.TripleID{})), collect(loaded.Search(hdt.TripleID{})))
}

func TestBitmapTriplesRequiresSortedSource(t *testing.T) {
	l := NewTriplesList()
	require.NoError(t, l.Insert(hdt.NewTripleID(1, 1, 1)))

	bt := NewBitmapTriples()
	require.ErrorIs(t, bt.LoadFrom(l, nil), hdt.ErrNotSorted)
}

func TestBitmapTriplesEmpty(t *testing.T) {
	l := NewTriplesList()
	require.NoError(t, l.Sort(hdt.OrderSPO, nil))

	bt := NewBitmapTriples()
	require.NoError(t, bt.LoadFrom(l, nil))
	require.Zero(t, bt.NumberOfElements())
	require.Empty(t, collect(bt.Search(hdt.TripleID{})))
}
