package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
	"github.com/aleksaelezovic/hdtgo/pkg/rdf"
)

const s1Input = `<a> <p> <b> .
<a> <p> <c> .
<b> <q> <a> .
`

func buildS1(t *testing.T, spec hdt.Spec) *HDT {
	t.Helper()
	h := NewHDT(spec)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, h.LoadFromRDF(rdf.NewParser(s1Input), "<http://example.org/dataset>", nil))
	return h
}

func collectStrings(it *StringIterator) []rdf.TripleString {
	var out []rdf.TripleString
	for it.Next() {
		out = append(out, it.Triple())
	}
	return out
}

func TestIngestS1(t *testing.T) {
	h := buildS1(t, nil)

	d := h.Dictionary()
	require.Equal(t, uint32(2), d.NumShared())
	require.Equal(t, uint32(2), d.NumSubjects())
	require.Equal(t, uint32(3), d.NumObjects())
	require.Equal(t, uint32(2), d.NumPredicates())

	require.Equal(t, uint32(1), d.StringToID("<a>", hdt.RoleSubject))
	require.Equal(t, uint32(2), d.StringToID("<b>", hdt.RoleSubject))
	require.Equal(t, uint32(3), d.StringToID("<c>", hdt.RoleObject))
	require.Equal(t, uint32(1), d.StringToID("<p>", hdt.RolePredicate))
	require.Equal(t, uint32(2), d.StringToID("<q>", hdt.RolePredicate))

	require.Equal(t, uint64(3), h.Triples().NumberOfElements())
	require.Equal(t, hdt.OrderSPO, h.Triples().Order())
	require.Equal(t, hdt.TriplesTypeBitmap, h.Triples().Type())

	var ids []hdt.TripleID
	it := h.Triples().Search(hdt.TripleID{})
	for it.Next() {
		ids = append(ids, it.Triple())
	}
	require.Equal(t, []hdt.TripleID{
		hdt.NewTripleID(1, 1, 2),
		hdt.NewTripleID(1, 1, 3),
		hdt.NewTripleID(2, 2, 1),
	}, ids)

	require.NotZero(t, h.Header().NumberOfElements())
}

func TestSearchBoundSubject(t *testing.T) {
	h := buildS1(t, nil)

	got := collectStrings(h.Search("<a>", "", ""))
	require.Equal(t, []rdf.TripleString{
		rdf.NewTripleString("<a>", "<p>", "<b>"),
		rdf.NewTripleString("<a>", "<p>", "<c>"),
	}, got)
}

func TestSearchBoundPredicate(t *testing.T) {
	h := buildS1(t, nil)

	got := collectStrings(h.Search("", "<p>", ""))
	require.Equal(t, []rdf.TripleString{
		rdf.NewTripleString("<a>", "<p>", "<b>"),
		rdf.NewTripleString("<a>", "<p>", "<c>"),
	}, got)
}

func TestSearchUnknownComponent(t *testing.T) {
	h := buildS1(t, nil)

	require.Empty(t, collectStrings(h.Search("<x>", "", "")))
	require.Empty(t, collectStrings(h.Search("", "", "<nope>")))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	h := buildS1(t, nil)

	var first bytes.Buffer
	require.NoError(t, h.SaveToHDT(&first, nil))

	loaded := NewHDT(nil)
	t.Cleanup(func() { _ = loaded.Close() })
	require.NoError(t, loaded.LoadFromHDT(bytes.NewReader(first.Bytes()), nil))

	got := collectStrings(loaded.Search("<a>", "", ""))
	require.Equal(t, []rdf.TripleString{
		rdf.NewTripleString("<a>", "<p>", "<b>"),
		rdf.NewTripleString("<a>", "<p>", "<c>"),
	}, got)

	// Byte-identical second save.
	var second bytes.Buffer
	require.NoError(t, loaded.SaveToHDT(&second, nil))
	require.Equal(t, first.Bytes(), second.Bytes())
}

func TestIngestRemovesDuplicates(t *testing.T) {
	input := `<a> <p> <b> .
<a> <p> <b> .
<a> <p> <b> .
<b> <q> <a> .
`
	h := NewHDT(nil)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, h.LoadFromRDF(rdf.NewParser(input), "", nil))
	require.Equal(t, uint64(2), h.Triples().NumberOfElements())
}

func TestNoHeader(t *testing.T) {
	spec := hdt.NewSpec()
	spec.Set(hdt.SpecNoHeader, "true")

	h := buildS1(t, spec)
	require.Zero(t, h.Header().NumberOfElements())

	var buf bytes.Buffer
	require.NoError(t, h.SaveToHDT(&buf, nil))

	loaded := NewHDT(nil)
	t.Cleanup(func() { _ = loaded.Close() })
	require.NoError(t, loaded.LoadFromHDT(&buf, nil))
	require.Equal(t, hdt.HeaderTypeEmpty, loaded.Header().Type())
	require.Len(t, collectStrings(loaded.Search("<a>", "", "")), 2)
}

func TestConfigVariants(t *testing.T) {
	tests := []struct {
		name string
		conf map[string]string
	}{
		{"pfc dictionary", map[string]string{hdt.SpecDictionaryType: "pfc"}},
		{"list triples", map[string]string{hdt.SpecTriplesType: "list"}},
		{"plain triples", map[string]string{hdt.SpecTriplesType: "plain"}},
		{"compact triples", map[string]string{hdt.SpecTriplesType: "compact"}},
		{"pos order", map[string]string{hdt.SpecTriplesOrder: "POS"}},
		{"pfc compact ops", map[string]string{
			hdt.SpecDictionaryType: "pfc",
			hdt.SpecTriplesType:    "compact",
			hdt.SpecTriplesOrder:   "OPS",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := hdt.NewSpec()
			for k, v := range tt.conf {
				spec.Set(k, v)
			}
			h := buildS1(t, spec)

			require.ElementsMatch(t, []rdf.TripleString{
				rdf.NewTripleString("<a>", "<p>", "<b>"),
				rdf.NewTripleString("<a>", "<p>", "<c>"),
			}, collectStrings(h.Search("<a>", "", "")))

			// Full round trip through the container.
			var buf bytes.Buffer
			require.NoError(t, h.SaveToHDT(&buf, nil))
			loaded := NewHDT(nil)
			t.Cleanup(func() { _ = loaded.Close() })
			require.NoError(t, loaded.LoadFromHDT(&buf, nil))
			require.ElementsMatch(t,
				collectStrings(h.Search("", "", "")),
				collectStrings(loaded.Search("", "", "")))
		})
	}
}

func TestDiskTriplesIngest(t *testing.T) {
	spec := hdt.NewSpec()
	spec.Set(hdt.SpecTriplesType, "disk")
	spec.Set(hdt.SpecDiskLocation, t.TempDir())

	h := buildS1(t, spec)
	require.Equal(t, hdt.TriplesTypeListDisk, h.Triples().Type())
	require.Equal(t, uint64(3), h.Triples().NumberOfElements())

	require.Equal(t, []rdf.TripleString{
		rdf.NewTripleString("<a>", "<p>", "<b>"),
		rdf.NewTripleString("<a>", "<p>", "<c>"),
	}, collectStrings(h.Search("<a>", "", "")))
}

func TestFileAndMapRoundTrip(t *testing.T) {
	h := buildS1(t, nil)

	path := filepath.Join(t.TempDir(), "s1.hdt")
	require.NoError(t, h.SaveFile(path, nil))

	loaded := NewHDT(nil)
	t.Cleanup(func() { _ = loaded.Close() })
	require.NoError(t, loaded.LoadFile(path, nil))
	require.Len(t, collectStrings(loaded.Search("<a>", "", "")), 2)

	mapped := NewHDT(nil)
	t.Cleanup(func() { _ = mapped.Close() })
	require.NoError(t, mapped.MapFile(path, nil))
	require.Len(t, collectStrings(mapped.Search("<a>", "", "")), 2)
}

func TestSaveToRDF(t *testing.T) {
	h := buildS1(t, nil)

	var buf bytes.Buffer
	require.NoError(t, h.SaveToRDF(&buf, nil))

	parser := rdf.NewParser(buf.String())
	h2 := NewHDT(nil)
	t.Cleanup(func() { _ = h2.Close() })
	require.NoError(t, h2.LoadFromRDF(parser, "", nil))
	require.Equal(t, uint64(3), h2.Triples().NumberOfElements())
}

func TestCancelledIngest(t *testing.T) {
	h := NewHDT(nil)
	t.Cleanup(func() { _ = h.Close() })

	abort := hdt.ProgressListener(func(stage string, done, total uint64) bool {
		return false
	})
	err := h.LoadFromRDF(rdf.NewParser(s1Input), "", abort)
	require.ErrorIs(t, err, hdt.ErrCancelled)

	// The façade is reset and stays usable.
	require.Empty(t, collectStrings(h.Search("", "", "")))
	require.NoError(t, h.LoadFromRDF(rdf.NewParser(s1Input), "", nil))
	require.Len(t, collectStrings(h.Search("", "", "")), 3)
}

func TestParseErrorResets(t *testing.T) {
	h := NewHDT(nil)
	t.Cleanup(func() { _ = h.Close() })

	err := h.LoadFromRDF(rdf.NewParser("<a> <p> oops-no-dot"), "", nil)
	require.ErrorIs(t, err, hdt.ErrParse)
	require.Zero(t, h.Triples().NumberOfElements())

	require.NoError(t, h.LoadFromRDF(rdf.NewParser(s1Input), "", nil))
	require.Equal(t, uint64(3), h.Triples().NumberOfElements())
}

func TestLoadBadContainer(t *testing.T) {
	h := NewHDT(nil)
	t.Cleanup(func() { _ = h.Close() })

	err := h.LoadFromHDT(bytes.NewReader([]byte("not an hdt file")), nil)
	require.ErrorIs(t, err, hdt.ErrParse)
	require.Zero(t, h.Triples().NumberOfElements())
}

func TestConvertNotImplemented(t *testing.T) {
	h := buildS1(t, nil)
	require.True(t, errors.Is(h.Convert(hdt.NewSpec()), hdt.ErrNotImplemented))
}
