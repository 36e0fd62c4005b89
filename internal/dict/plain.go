// Package dict implements the string dictionaries: a hash-backed mutable
// building form and an immutable front-coded compact form. Both share the
// four-partition id layout: shared subject-objects first, then the
// role-only strings, with predicates numbered independently.
package dict

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/aleksaelezovic/hdtgo/internal/bits"
	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
	"github.com/aleksaelezovic/hdtgo/pkg/rdf"
)

type partition uint8

const (
	partShared partition = iota
	partSubjects
	partObjects
	partPredicates
)

// ref locates a string within the frozen partition layout.
type ref struct {
	part partition
	off  uint32
}

// soEntry is one interned subject-or-object string. Working ids are
// assigned per role namespace on first use and stay stable until the
// dictionary is finalized, so promotion to shared never renumbers anything.
type soEntry struct {
	str       string
	subjectID uint32
	objectID  uint32
}

// PlainDictionary is the mutable building form. Strings are interned into
// a hash index keyed by their xxh3 hash with exact-match confirmation, so
// lookups stay constant time without a second copy of every string.
type PlainDictionary struct {
	// building state
	soList    []soEntry
	soIndex   map[uint64][]uint32 // hash -> indexes into soList
	subjByID  []uint32            // working subject id -> soList index
	objByID   []uint32            // working object id -> soList index
	predList  []string
	predIndex map[uint64][]uint32

	// frozen state
	frozen     bool
	shared     []string
	subjects   []string // subject-only
	objects    []string // object-only
	predicates []string
	lookup     map[uint64][]ref

	sizeStrings uint64
}

// NewPlainDictionary creates an empty building dictionary.
func NewPlainDictionary() *PlainDictionary {
	d := &PlainDictionary{}
	d.StartProcessing()
	return d
}

// StartProcessing resets the dictionary to its empty building state.
func (d *PlainDictionary) StartProcessing() {
	d.soList = nil
	d.soIndex = make(map[uint64][]uint32)
	d.subjByID = []uint32{0} // id 0 unused
	d.objByID = []uint32{0}
	d.predList = nil
	d.predIndex = make(map[uint64][]uint32)
	d.frozen = false
	d.shared = nil
	d.subjects = nil
	d.objects = nil
	d.predicates = nil
	d.lookup = nil
	d.sizeStrings = 0
}

func (d *PlainDictionary) internSO(s string) uint32 {
	h := xxh3.HashString(s)
	for _, idx := range d.soIndex[h] {
		if d.soList[idx].str == s {
			return idx
		}
	}
	d.soList = append(d.soList, soEntry{str: s})
	idx := uint32(len(d.soList) - 1)
	d.soIndex[h] = append(d.soIndex[h], idx)
	d.sizeStrings += uint64(len(s))
	return idx
}

// Insert adds a string under the given role and returns its working id.
func (d *PlainDictionary) Insert(s string, role hdt.Role) (uint32, error) {
	if d.frozen {
		return 0, fmt.Errorf("plain dictionary: insert: %w", hdt.ErrAlreadyFrozen)
	}

	switch role {
	case hdt.RoleSubject:
		idx := d.internSO(s)
		if d.soList[idx].subjectID == 0 {
			d.soList[idx].subjectID = uint32(len(d.subjByID))
			d.subjByID = append(d.subjByID, idx)
		}
		return d.soList[idx].subjectID, nil

	case hdt.RoleObject:
		idx := d.internSO(s)
		if d.soList[idx].objectID == 0 {
			d.soList[idx].objectID = uint32(len(d.objByID))
			d.objByID = append(d.objByID, idx)
		}
		return d.soList[idx].objectID, nil

	case hdt.RolePredicate:
		h := xxh3.HashString(s)
		for _, idx := range d.predIndex[h] {
			if d.predList[idx] == s {
				return idx + 1, nil
			}
		}
		d.predList = append(d.predList, s)
		d.predIndex[h] = append(d.predIndex[h], uint32(len(d.predList)-1))
		d.sizeStrings += uint64(len(s))
		return uint32(len(d.predList)), nil
	}
	return 0, fmt.Errorf("plain dictionary: insert: invalid role %d", role)
}

// StopProcessing partitions the strings into shared, subject-only,
// object-only and predicates, sorts each partition by UTF-8 byte order,
// and assigns the final ids. It may be called once.
func (d *PlainDictionary) StopProcessing(listener hdt.ProgressListener) error {
	if d.frozen {
		return fmt.Errorf("plain dictionary: stop processing: %w", hdt.ErrAlreadyFrozen)
	}
	if !listener.Notify("finalizing dictionary", 0, 100) {
		return hdt.ErrCancelled
	}

	for _, e := range d.soList {
		switch {
		case e.subjectID != 0 && e.objectID != 0:
			d.shared = append(d.shared, e.str)
		case e.subjectID != 0:
			d.subjects = append(d.subjects, e.str)
		default:
			d.objects = append(d.objects, e.str)
		}
	}
	d.predicates = append(d.predicates, d.predList...)

	sort.Strings(d.shared)
	sort.Strings(d.subjects)
	sort.Strings(d.objects)
	sort.Strings(d.predicates)

	if !listener.Notify("finalizing dictionary", 50, 100) {
		return hdt.ErrCancelled
	}

	d.lookup = make(map[uint64][]ref, len(d.soList)+len(d.predList))
	addPart := func(part partition, strs []string) {
		for i, s := range strs {
			h := xxh3.HashString(s)
			d.lookup[h] = append(d.lookup[h], ref{part: part, off: uint32(i)})
		}
	}
	addPart(partShared, d.shared)
	addPart(partSubjects, d.subjects)
	addPart(partObjects, d.objects)
	addPart(partPredicates, d.predicates)

	// Building tables are no longer needed.
	d.soList = nil
	d.soIndex = nil
	d.subjByID = nil
	d.objByID = nil
	d.predList = nil
	d.predIndex = nil

	d.frozen = true
	listener.Notify("finalizing dictionary", 100, 100)
	return nil
}

// Frozen reports whether final ids have been assigned.
func (d *PlainDictionary) Frozen() bool {
	return d.frozen
}

func (d *PlainDictionary) findRef(s string, parts ...partition) (ref, bool) {
	h := xxh3.HashString(s)
	for _, r := range d.lookup[h] {
		for _, p := range parts {
			if r.part != p {
				continue
			}
			if d.partitionStrings(r.part)[r.off] == s {
				return r, true
			}
		}
	}
	return ref{}, false
}

func (d *PlainDictionary) partitionStrings(p partition) []string {
	switch p {
	case partShared:
		return d.shared
	case partSubjects:
		return d.subjects
	case partObjects:
		return d.objects
	default:
		return d.predicates
	}
}

// StringToID resolves a string in the namespace of the given role. Unknown
// strings yield 0.
func (d *PlainDictionary) StringToID(s string, role hdt.Role) uint32 {
	if s == "" {
		return 0
	}

	if !d.frozen {
		switch role {
		case hdt.RolePredicate:
			h := xxh3.HashString(s)
			for _, idx := range d.predIndex[h] {
				if d.predList[idx] == s {
					return idx + 1
				}
			}
		default:
			h := xxh3.HashString(s)
			for _, idx := range d.soIndex[h] {
				if d.soList[idx].str != s {
					continue
				}
				if role == hdt.RoleSubject {
					return d.soList[idx].subjectID
				}
				return d.soList[idx].objectID
			}
		}
		return 0
	}

	switch role {
	case hdt.RoleSubject:
		if r, ok := d.findRef(s, partShared, partSubjects); ok {
			if r.part == partShared {
				return r.off + 1
			}
			return uint32(len(d.shared)) + r.off + 1
		}
	case hdt.RoleObject:
		if r, ok := d.findRef(s, partShared, partObjects); ok {
			if r.part == partShared {
				return r.off + 1
			}
			return uint32(len(d.shared)) + r.off + 1
		}
	case hdt.RolePredicate:
		if r, ok := d.findRef(s, partPredicates); ok {
			return r.off + 1
		}
	}
	return 0
}

// IDToString resolves an id in the namespace of the given role.
func (d *PlainDictionary) IDToString(id uint32, role hdt.Role) (string, error) {
	if id == 0 {
		return "", fmt.Errorf("plain dictionary: id 0: %w", hdt.ErrUnknownID)
	}

	if !d.frozen {
		switch role {
		case hdt.RoleSubject:
			if int(id) < len(d.subjByID) {
				return d.soList[d.subjByID[id]].str, nil
			}
		case hdt.RoleObject:
			if int(id) < len(d.objByID) {
				return d.soList[d.objByID[id]].str, nil
			}
		case hdt.RolePredicate:
			if int(id) <= len(d.predList) {
				return d.predList[id-1], nil
			}
		}
		return "", fmt.Errorf("plain dictionary: %s id %d out of range: %w", role, id, hdt.ErrUnknownID)
	}

	shared := uint32(len(d.shared))
	switch role {
	case hdt.RoleSubject:
		if id <= shared {
			return d.shared[id-1], nil
		}
		if id <= shared+uint32(len(d.subjects)) {
			return d.subjects[id-shared-1], nil
		}
	case hdt.RoleObject:
		if id <= shared {
			return d.shared[id-1], nil
		}
		if id <= shared+uint32(len(d.objects)) {
			return d.objects[id-shared-1], nil
		}
	case hdt.RolePredicate:
		if id <= uint32(len(d.predicates)) {
			return d.predicates[id-1], nil
		}
	}
	return "", fmt.Errorf("plain dictionary: %s id %d out of range: %w", role, id, hdt.ErrUnknownID)
}

// TripleStringToTripleID translates a textual triple. Unknown components
// become wildcards.
func (d *PlainDictionary) TripleStringToTripleID(ts rdf.TripleString) hdt.TripleID {
	return hdt.TripleID{
		Subject:   d.StringToID(ts.Subject, hdt.RoleSubject),
		Predicate: d.StringToID(ts.Predicate, hdt.RolePredicate),
		Object:    d.StringToID(ts.Object, hdt.RoleObject),
	}
}

// TripleIDToTripleString translates a stored id triple back to text.
func (d *PlainDictionary) TripleIDToTripleString(t hdt.TripleID) (rdf.TripleString, error) {
	s, err := d.IDToString(t.Subject, hdt.RoleSubject)
	if err != nil {
		return rdf.TripleString{}, err
	}
	p, err := d.IDToString(t.Predicate, hdt.RolePredicate)
	if err != nil {
		return rdf.TripleString{}, err
	}
	o, err := d.IDToString(t.Object, hdt.RoleObject)
	if err != nil {
		return rdf.TripleString{}, err
	}
	return rdf.NewTripleString(s, p, o), nil
}

// NumShared returns the size of the shared partition.
func (d *PlainDictionary) NumShared() uint32 {
	if !d.frozen {
		var n uint32
		for _, e := range d.soList {
			if e.subjectID != 0 && e.objectID != 0 {
				n++
			}
		}
		return n
	}
	return uint32(len(d.shared))
}

// NumSubjects returns the size of the subject namespace (shared plus
// subject-only).
func (d *PlainDictionary) NumSubjects() uint32 {
	if !d.frozen {
		return uint32(len(d.subjByID) - 1)
	}
	return uint32(len(d.shared) + len(d.subjects))
}

// NumObjects returns the size of the object namespace (shared plus
// object-only).
func (d *PlainDictionary) NumObjects() uint32 {
	if !d.frozen {
		return uint32(len(d.objByID) - 1)
	}
	return uint32(len(d.shared) + len(d.objects))
}

// NumPredicates returns the size of the predicate partition.
func (d *PlainDictionary) NumPredicates() uint32 {
	if !d.frozen {
		return uint32(len(d.predList))
	}
	return uint32(len(d.predicates))
}

// NumberOfElements returns the number of distinct strings.
func (d *PlainDictionary) NumberOfElements() uint64 {
	if !d.frozen {
		return uint64(len(d.soList) + len(d.predList))
	}
	return uint64(len(d.shared) + len(d.subjects) + len(d.objects) + len(d.predicates))
}

// Size returns the approximate footprint in bytes.
func (d *PlainDictionary) Size() uint64 {
	return d.sizeStrings + 16*d.NumberOfElements()
}

// Type returns the implementation tag.
func (d *PlainDictionary) Type() string {
	return hdt.DictionaryTypePlain
}

// Save writes the four partitions in fixed order, each as a vbyte count
// followed by length-prefixed strings. The dictionary must be finalized.
func (d *PlainDictionary) Save(w io.Writer, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	if !d.frozen {
		return fmt.Errorf("plain dictionary: save before finalize")
	}

	var payload bytes.Buffer
	for _, part := range [][]string{d.shared, d.subjects, d.objects, d.predicates} {
		if err := bits.WriteVByte(&payload, uint64(len(part))); err != nil {
			return err
		}
		for _, s := range part {
			if err := bits.WriteVByte(&payload, uint64(len(s))); err != nil {
				return err
			}
			if _, err := payload.WriteString(s); err != nil {
				return err
			}
		}
	}

	ci.Kind = hdt.ControlDictionary
	ci.SetFormat(hdt.DictionaryTypePlain)
	ci.SetUint(hdt.PropMapping, 1)
	ci.SetUint(hdt.PropElements, d.NumberOfElements())
	ci.SetUint(hdt.PropSizeStrings, d.sizeStrings)
	ci.SetUint(hdt.PropLength, uint64(payload.Len()))
	if err := ci.Save(w); err != nil {
		return err
	}
	if !listener.Notify("saving dictionary", 50, 100) {
		return hdt.ErrCancelled
	}
	_, err := w.Write(payload.Bytes())
	listener.Notify("saving dictionary", 100, 100)
	return err
}

// Load reads the partitioned form written by Save and leaves the
// dictionary finalized.
func (d *PlainDictionary) Load(r io.Reader, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	if ci.Format() != hdt.DictionaryTypePlain {
		return fmt.Errorf("%w: dictionary tag %q", hdt.ErrFormat, ci.Format())
	}

	d.StartProcessing()
	parts := make([][]string, 4)
	for p := range parts {
		n, err := bits.ReadVByte(r)
		if err != nil {
			return fmt.Errorf("reading dictionary partition size: %w", err)
		}
		parts[p] = make([]string, 0, n)
		for i := uint64(0); i < n; i++ {
			l, err := bits.ReadVByte(r)
			if err != nil {
				return fmt.Errorf("reading dictionary string length: %w", err)
			}
			buf := make([]byte, l)
			if _, err := io.ReadFull(r, buf); err != nil {
				return fmt.Errorf("reading dictionary string: %w", err)
			}
			parts[p] = append(parts[p], string(buf))
			d.sizeStrings += l
		}
		if !listener.Notify("loading dictionary", uint64(p+1), 4) {
			return hdt.ErrCancelled
		}
	}

	d.setPartitions(parts[0], parts[1], parts[2], parts[3])
	return nil
}

// setPartitions installs already-sorted partitions and rebuilds the lookup
// index, leaving the dictionary frozen.
func (d *PlainDictionary) setPartitions(shared, subjects, objects, predicates []string) {
	d.shared = shared
	d.subjects = subjects
	d.objects = objects
	d.predicates = predicates

	d.lookup = make(map[uint64][]ref)
	addPart := func(part partition, strs []string) {
		for i, s := range strs {
			h := xxh3.HashString(s)
			d.lookup[h] = append(d.lookup[h], ref{part: part, off: uint32(i)})
		}
	}
	addPart(partShared, d.shared)
	addPart(partSubjects, d.subjects)
	addPart(partObjects, d.objects)
	addPart(partPredicates, d.predicates)

	d.soList = nil
	d.soIndex = nil
	d.subjByID = nil
	d.objByID = nil
	d.predList = nil
	d.predIndex = nil
	d.frozen = true
}

// Thaw converts a finalized dictionary back into building form while
// keeping every id stable: shared strings re-intern first, then the
// role-only partitions, which reproduces the final numbering in the
// working tables. The mutable façade uses this after loading a container.
func (d *PlainDictionary) Thaw() error {
	if !d.frozen {
		return nil
	}
	shared, subjects, objects, predicates := d.shared, d.subjects, d.objects, d.predicates

	d.StartProcessing()
	for _, s := range shared {
		if _, err := d.Insert(s, hdt.RoleSubject); err != nil {
			return err
		}
		if _, err := d.Insert(s, hdt.RoleObject); err != nil {
			return err
		}
	}
	for _, s := range subjects {
		if _, err := d.Insert(s, hdt.RoleSubject); err != nil {
			return err
		}
	}
	for _, s := range objects {
		if _, err := d.Insert(s, hdt.RoleObject); err != nil {
			return err
		}
	}
	for _, s := range predicates {
		if _, err := d.Insert(s, hdt.RolePredicate); err != nil {
			return err
		}
	}
	return nil
}

// IDRemap carries the working-id to final-id translation produced by
// Snapshot, one table per namespace.
type IDRemap struct {
	Subjects   []uint32
	Objects    []uint32
	Predicates []uint32
}

// Snapshot builds a finalized copy of a building dictionary without
// touching the receiver, together with the id remap from working ids to
// the copy's final ids. The mutable façade serializes through this so it
// stays mutable afterwards.
func (d *PlainDictionary) Snapshot() (*PlainDictionary, *IDRemap, error) {
	if d.frozen {
		return d, nil, nil
	}

	var shared, subjects, objects []string
	for _, e := range d.soList {
		switch {
		case e.subjectID != 0 && e.objectID != 0:
			shared = append(shared, e.str)
		case e.subjectID != 0:
			subjects = append(subjects, e.str)
		default:
			objects = append(objects, e.str)
		}
	}
	predicates := append([]string(nil), d.predList...)

	sort.Strings(shared)
	sort.Strings(subjects)
	sort.Strings(objects)
	sort.Strings(predicates)

	snap := &PlainDictionary{}
	snap.StartProcessing()
	snap.setPartitions(shared, subjects, objects, predicates)
	snap.sizeStrings = d.sizeStrings

	remap := &IDRemap{
		Subjects:   make([]uint32, len(d.subjByID)),
		Objects:    make([]uint32, len(d.objByID)),
		Predicates: make([]uint32, len(d.predList)+1),
	}
	for _, e := range d.soList {
		if e.subjectID != 0 {
			remap.Subjects[e.subjectID] = snap.StringToID(e.str, hdt.RoleSubject)
		}
		if e.objectID != 0 {
			remap.Objects[e.objectID] = snap.StringToID(e.str, hdt.RoleObject)
		}
	}
	for i, s := range d.predList {
		remap.Predicates[i+1] = snap.StringToID(s, hdt.RolePredicate)
	}
	return snap, remap, nil
}

// PopulateHeader inserts the dictionary statistics under rootNode.
func (d *PlainDictionary) PopulateHeader(h hdt.Header, rootNode string) {
	h.Insert(rootNode, hdt.RDFType, d.Type())
	h.InsertUint(rootNode, hdt.DictNumShared, uint64(d.NumShared()))
	h.InsertUint(rootNode, hdt.DictNumSubjects, uint64(d.NumSubjects()))
	h.InsertUint(rootNode, hdt.DictNumPredicates, uint64(d.NumPredicates()))
	h.InsertUint(rootNode, hdt.DictNumObjects, uint64(d.NumObjects()))
	h.InsertUint(rootNode, hdt.DictSizeStrings, d.sizeStrings)
}
