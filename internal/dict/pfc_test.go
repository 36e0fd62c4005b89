package dict

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
)

func buildPFC(t *testing.T, spec hdt.Spec) (*PlainDictionary, *PFCDictionary) {
	t.Helper()
	plain := NewPlainDictionary()

	// Enough strings with shared prefixes to fill several buckets.
	for i := 0; i < 100; i++ {
		_, err := plain.Insert(fmt.Sprintf("<http://example.org/subject/%03d>", i), hdt.RoleSubject)
		require.NoError(t, err)
		_, err = plain.Insert(fmt.Sprintf("<http://example.org/predicate/%02d>", i%7), hdt.RolePredicate)
		require.NoError(t, err)
		_, err = plain.Insert(fmt.Sprintf("<http://example.org/object/%03d>", i), hdt.RoleObject)
		require.NoError(t, err)
	}
	// Some shared subject-objects.
	for i := 0; i < 10; i++ {
		_, err := plain.Insert(fmt.Sprintf("<http://example.org/shared/%02d>", i), hdt.RoleSubject)
		require.NoError(t, err)
		_, err = plain.Insert(fmt.Sprintf("<http://example.org/shared/%02d>", i), hdt.RoleObject)
		require.NoError(t, err)
	}
	require.NoError(t, plain.StopProcessing(nil))

	pfc := NewPFCDictionary(spec)
	require.NoError(t, pfc.Import(plain, nil))
	return plain, pfc
}

func TestPFCImportPreservesIDs(t *testing.T) {
	plain, pfc := buildPFC(t, nil)

	require.Equal(t, plain.NumShared(), pfc.NumShared())
	require.Equal(t, plain.NumSubjects(), pfc.NumSubjects())
	require.Equal(t, plain.NumObjects(), pfc.NumObjects())
	require.Equal(t, plain.NumPredicates(), pfc.NumPredicates())
	require.Equal(t, plain.NumberOfElements(), pfc.NumberOfElements())

	for _, role := range []hdt.Role{hdt.RoleSubject, hdt.RoleObject, hdt.RolePredicate} {
		var max uint32
		switch role {
		case hdt.RoleSubject:
			max = plain.NumSubjects()
		case hdt.RoleObject:
			max = plain.NumObjects()
		case hdt.RolePredicate:
			max = plain.NumPredicates()
		}
		for id := uint32(1); id <= max; id++ {
			want, err := plain.IDToString(id, role)
			require.NoError(t, err)
			got, err := pfc.IDToString(id, role)
			require.NoError(t, err)
			require.Equal(t, want, got, "%s id %d", role, id)
			require.Equal(t, id, pfc.StringToID(want, role), "%s %q", role, want)
		}
	}
}

func TestPFCUnknownLookups(t *testing.T) {
	_, pfc := buildPFC(t, nil)

	require.Zero(t, pfc.StringToID("<http://example.org/unknown>", hdt.RoleSubject))
	require.Zero(t, pfc.StringToID("", hdt.RoleSubject))
	// A string that would sort before every bucket.
	require.Zero(t, pfc.StringToID("<aaa>", hdt.RolePredicate))

	_, err := pfc.IDToString(0, hdt.RoleSubject)
	require.ErrorIs(t, err, hdt.ErrUnknownID)
	_, err = pfc.IDToString(pfc.NumSubjects()+1, hdt.RoleSubject)
	require.ErrorIs(t, err, hdt.ErrUnknownID)
}

func TestPFCBlockSizeSpec(t *testing.T) {
	spec := hdt.NewSpec()
	spec.Set(hdt.SpecPFCBlockSize, "4")

	plain, pfc := buildPFC(t, spec)
	for id := uint32(1); id <= plain.NumSubjects(); id++ {
		want, err := plain.IDToString(id, hdt.RoleSubject)
		require.NoError(t, err)
		got, err := pfc.IDToString(id, hdt.RoleSubject)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestPFCSaveLoad(t *testing.T) {
	plain, pfc := buildPFC(t, nil)

	var buf bytes.Buffer
	ci := hdt.NewControlInformation(hdt.ControlDictionary)
	require.NoError(t, pfc.Save(&buf, ci, nil))
	require.Equal(t, hdt.DictionaryTypePFC, ci.Format())
	require.Equal(t, pfc.NumberOfElements(), ci.GetUint(hdt.PropElements))

	loadCI := hdt.NewControlInformation(0)
	require.NoError(t, loadCI.Load(&buf))

	loaded := NewPFCDictionary(nil)
	require.NoError(t, loaded.Load(&buf, loadCI, nil))
	require.Zero(t, buf.Len(), "load must consume the whole payload")

	for id := uint32(1); id <= plain.NumSubjects(); id++ {
		want, err := pfc.IDToString(id, hdt.RoleSubject)
		require.NoError(t, err)
		got, err := loaded.IDToString(id, hdt.RoleSubject)
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.Equal(t, id, loaded.StringToID(want, hdt.RoleSubject))
	}
}

func TestPFCSectionOrdering(t *testing.T) {
	// Bucket-opening strings must be sorted for the binary search to work;
	// the partitions come sorted out of StopProcessing.
	_, pfc := buildPFC(t, nil)

	var firsts []string
	for i := 0; i < pfc.subjects.offsets.Len(); i++ {
		firsts = append(firsts, pfc.subjects.firstString(i))
	}
	require.True(t, sort.StringsAreSorted(firsts))
}
