package dict

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
	"github.com/aleksaelezovic/hdtgo/pkg/rdf"
)

// buildS1 inserts the roles of the three scenario triples
// (<a>,<p>,<b>), (<a>,<p>,<c>), (<b>,<q>,<a>).
func buildS1(t *testing.T) *PlainDictionary {
	t.Helper()
	d := NewPlainDictionary()

	for _, ts := range []rdf.TripleString{
		rdf.NewTripleString("<a>", "<p>", "<b>"),
		rdf.NewTripleString("<a>", "<p>", "<c>"),
		rdf.NewTripleString("<b>", "<q>", "<a>"),
	} {
		_, err := d.Insert(ts.Subject, hdt.RoleSubject)
		require.NoError(t, err)
		_, err = d.Insert(ts.Predicate, hdt.RolePredicate)
		require.NoError(t, err)
		_, err = d.Insert(ts.Object, hdt.RoleObject)
		require.NoError(t, err)
	}
	return d
}

func TestPlainDictionaryPartitions(t *testing.T) {
	d := buildS1(t)
	require.NoError(t, d.StopProcessing(nil))

	require.Equal(t, uint32(2), d.NumShared())
	require.Equal(t, uint32(2), d.NumSubjects())
	require.Equal(t, uint32(3), d.NumObjects())
	require.Equal(t, uint32(2), d.NumPredicates())
	require.Equal(t, uint64(5), d.NumberOfElements())
}

func TestPlainDictionaryFinalIDs(t *testing.T) {
	d := buildS1(t)
	require.NoError(t, d.StopProcessing(nil))

	require.Equal(t, uint32(1), d.StringToID("<a>", hdt.RoleSubject))
	require.Equal(t, uint32(1), d.StringToID("<a>", hdt.RoleObject))
	require.Equal(t, uint32(2), d.StringToID("<b>", hdt.RoleSubject))
	require.Equal(t, uint32(2), d.StringToID("<b>", hdt.RoleObject))
	require.Equal(t, uint32(3), d.StringToID("<c>", hdt.RoleObject))
	require.Equal(t, uint32(1), d.StringToID("<p>", hdt.RolePredicate))
	require.Equal(t, uint32(2), d.StringToID("<q>", hdt.RolePredicate))

	// Unknown strings and roles yield the wildcard id.
	require.Zero(t, d.StringToID("<x>", hdt.RoleSubject))
	require.Zero(t, d.StringToID("<c>", hdt.RoleSubject))
	require.Zero(t, d.StringToID("<p>", hdt.RoleSubject))
}

func TestPlainDictionaryRoundTrip(t *testing.T) {
	d := buildS1(t)
	require.NoError(t, d.StopProcessing(nil))

	for _, tc := range []struct {
		s    string
		role hdt.Role
	}{
		{"<a>", hdt.RoleSubject}, {"<b>", hdt.RoleSubject},
		{"<a>", hdt.RoleObject}, {"<b>", hdt.RoleObject}, {"<c>", hdt.RoleObject},
		{"<p>", hdt.RolePredicate}, {"<q>", hdt.RolePredicate},
	} {
		id := d.StringToID(tc.s, tc.role)
		require.NotZero(t, id)
		got, err := d.IDToString(id, tc.role)
		require.NoError(t, err)
		require.Equal(t, tc.s, got)
	}
}

func TestPlainDictionaryUnknownID(t *testing.T) {
	d := buildS1(t)
	require.NoError(t, d.StopProcessing(nil))

	_, err := d.IDToString(0, hdt.RoleSubject)
	require.ErrorIs(t, err, hdt.ErrUnknownID)
	_, err = d.IDToString(3, hdt.RoleSubject)
	require.ErrorIs(t, err, hdt.ErrUnknownID)
	_, err = d.IDToString(4, hdt.RoleObject)
	require.ErrorIs(t, err, hdt.ErrUnknownID)
	_, err = d.IDToString(3, hdt.RolePredicate)
	require.ErrorIs(t, err, hdt.ErrUnknownID)
}

func TestPlainDictionaryAlreadyFrozen(t *testing.T) {
	d := buildS1(t)
	require.NoError(t, d.StopProcessing(nil))

	_, err := d.Insert("<z>", hdt.RoleSubject)
	require.ErrorIs(t, err, hdt.ErrAlreadyFrozen)

	err = d.StopProcessing(nil)
	require.ErrorIs(t, err, hdt.ErrAlreadyFrozen)
}

func TestPlainDictionaryWorkingIDsStable(t *testing.T) {
	d := NewPlainDictionary()

	// <a> used as subject first, later promoted to shared by an object use.
	sid, err := d.Insert("<a>", hdt.RoleSubject)
	require.NoError(t, err)
	sid2, err := d.Insert("<b>", hdt.RoleSubject)
	require.NoError(t, err)
	oid, err := d.Insert("<a>", hdt.RoleObject)
	require.NoError(t, err)

	// The subject id survives the promotion.
	again, err := d.Insert("<a>", hdt.RoleSubject)
	require.NoError(t, err)
	require.Equal(t, sid, again)
	require.NotEqual(t, sid, sid2)

	s, err := d.IDToString(sid, hdt.RoleSubject)
	require.NoError(t, err)
	require.Equal(t, "<a>", s)
	o, err := d.IDToString(oid, hdt.RoleObject)
	require.NoError(t, err)
	require.Equal(t, "<a>", o)
}

func TestPlainDictionaryTripleTranslation(t *testing.T) {
	d := buildS1(t)
	require.NoError(t, d.StopProcessing(nil))

	tid := d.TripleStringToTripleID(rdf.NewTripleString("<a>", "<p>", "<b>"))
	require.Equal(t, hdt.NewTripleID(1, 1, 2), tid)

	// Unknown components become wildcards so patterns stay usable.
	pattern := d.TripleStringToTripleID(rdf.NewTripleString("<a>", "", "<missing>"))
	require.Equal(t, hdt.NewTripleID(1, 0, 0), pattern)

	ts, err := d.TripleIDToTripleString(hdt.NewTripleID(2, 2, 1))
	require.NoError(t, err)
	require.Equal(t, rdf.NewTripleString("<b>", "<q>", "<a>"), ts)
}

func TestPlainDictionarySaveLoad(t *testing.T) {
	d := buildS1(t)
	require.NoError(t, d.StopProcessing(nil))

	var buf bytes.Buffer
	ci := hdt.NewControlInformation(hdt.ControlDictionary)
	require.NoError(t, d.Save(&buf, ci, nil))
	require.Equal(t, hdt.DictionaryTypePlain, ci.Format())

	loadCI := hdt.NewControlInformation(0)
	require.NoError(t, loadCI.Load(&buf))

	loaded := NewPlainDictionary()
	require.NoError(t, loaded.Load(&buf, loadCI, nil))

	require.Equal(t, d.NumShared(), loaded.NumShared())
	require.Equal(t, d.NumSubjects(), loaded.NumSubjects())
	require.Equal(t, d.NumObjects(), loaded.NumObjects())
	require.Equal(t, d.NumPredicates(), loaded.NumPredicates())
	require.Equal(t, uint32(1), loaded.StringToID("<a>", hdt.RoleSubject))
	require.Equal(t, uint32(3), loaded.StringToID("<c>", hdt.RoleObject))
}

func TestPlainDictionaryThawKeepsIDs(t *testing.T) {
	d := buildS1(t)
	require.NoError(t, d.StopProcessing(nil))
	require.NoError(t, d.Thaw())

	// After thawing the working ids match the final partitioned ids.
	require.Equal(t, uint32(1), d.StringToID("<a>", hdt.RoleSubject))
	require.Equal(t, uint32(2), d.StringToID("<b>", hdt.RoleObject))
	require.Equal(t, uint32(3), d.StringToID("<c>", hdt.RoleObject))
	require.Equal(t, uint32(2), d.StringToID("<q>", hdt.RolePredicate))

	// And the dictionary accepts inserts again.
	id, err := d.Insert("<z>", hdt.RoleSubject)
	require.NoError(t, err)
	require.Equal(t, uint32(3), id)
}

func TestPlainDictionarySnapshot(t *testing.T) {
	d := buildS1(t)

	snap, remap, err := d.Snapshot()
	require.NoError(t, err)
	require.NotNil(t, remap)

	// Snapshot is finalized; receiver stays mutable.
	require.True(t, snap.Frozen())
	require.False(t, d.Frozen())
	_, err = d.Insert("<new>", hdt.RoleSubject)
	require.NoError(t, err)

	// Remap translates each working id to the snapshot's final id.
	for _, s := range []string{"<a>", "<b>"} {
		working := d.StringToID(s, hdt.RoleSubject)
		require.Equal(t, snap.StringToID(s, hdt.RoleSubject), remap.Subjects[working])
	}
	workingC := d.StringToID("<c>", hdt.RoleObject)
	require.Equal(t, snap.StringToID("<c>", hdt.RoleObject), remap.Objects[workingC])
	workingQ := d.StringToID("<q>", hdt.RolePredicate)
	require.Equal(t, snap.StringToID("<q>", hdt.RolePredicate), remap.Predicates[workingQ])
}
