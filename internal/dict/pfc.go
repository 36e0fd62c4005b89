package dict

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/aleksaelezovic/hdtgo/internal/bits"
	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
	"github.com/aleksaelezovic/hdtgo/pkg/rdf"
)

// DefaultBlockSize is the number of strings per front-coding bucket.
const DefaultBlockSize = 16

// pfcSection is one front-coded partition: buckets of blockSize strings
// where the first string of each bucket is verbatim and the rest store a
// shared-prefix length plus a zero-terminated suffix.
type pfcSection struct {
	numStrings int
	blockSize  int
	data       []byte
	offsets    *bits.PackedArray
}

func buildSection(strs []string, blockSize int) pfcSection {
	var data []byte
	var offsets []uint64

	for i, s := range strs {
		if i%blockSize == 0 {
			offsets = append(offsets, uint64(len(data)))
			data = bits.AppendVByte(data, uint64(len(s)))
			data = append(data, s...)
			continue
		}
		prev := strs[i-1]
		lcp := commonPrefix(prev, s)
		data = bits.AppendVByte(data, uint64(lcp))
		data = append(data, s[lcp:]...)
		data = append(data, 0x00)
	}

	packed := bits.NewPackedArray(bits.BitsNeeded(uint64(len(data))))
	for _, off := range offsets {
		packed.Append(off)
	}

	return pfcSection{
		numStrings: len(strs),
		blockSize:  blockSize,
		data:       data,
		offsets:    packed,
	}
}

func commonPrefix(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// firstString returns the verbatim string opening bucket k.
func (s *pfcSection) firstString(k int) string {
	pos := int(s.offsets.Get(k))
	l, n := bits.DecodeVByte(s.data[pos:])
	pos += n
	return string(s.data[pos : pos+int(l)])
}

// extract returns the 1-based id'th string of the section.
func (s *pfcSection) extract(id uint32) (string, error) {
	if id == 0 || int(id) > s.numStrings {
		return "", fmt.Errorf("pfc section: id %d out of range: %w", id, hdt.ErrUnknownID)
	}
	bucket := int(id-1) / s.blockSize
	rank := int(id-1) % s.blockSize

	pos := int(s.offsets.Get(bucket))
	l, n := bits.DecodeVByte(s.data[pos:])
	pos += n
	cur := make([]byte, l)
	copy(cur, s.data[pos:pos+int(l)])
	pos += int(l)

	for i := 0; i < rank; i++ {
		lcp, n := bits.DecodeVByte(s.data[pos:])
		if n == 0 {
			return "", fmt.Errorf("%w: corrupt pfc bucket", hdt.ErrParse)
		}
		pos += n
		end := bytes.IndexByte(s.data[pos:], 0x00)
		if end < 0 {
			return "", fmt.Errorf("%w: unterminated pfc suffix", hdt.ErrParse)
		}
		cur = append(cur[:lcp], s.data[pos:pos+end]...)
		pos += end + 1
	}
	return string(cur), nil
}

// locate returns the 1-based id of str, or 0 if absent. Buckets are binary
// searched on their first string, then scanned linearly.
func (s *pfcSection) locate(str string) uint32 {
	numBuckets := s.offsets.Len()
	if numBuckets == 0 {
		return 0
	}

	// First bucket whose opening string sorts after str.
	bucket := sort.Search(numBuckets, func(i int) bool {
		return s.firstString(i) > str
	}) - 1
	if bucket < 0 {
		return 0
	}

	pos := int(s.offsets.Get(bucket))
	l, n := bits.DecodeVByte(s.data[pos:])
	pos += n
	cur := make([]byte, l)
	copy(cur, s.data[pos:pos+int(l)])
	pos += int(l)
	if string(cur) == str {
		return uint32(bucket*s.blockSize + 1)
	}

	limit := s.blockSize
	if remaining := s.numStrings - bucket*s.blockSize; remaining < limit {
		limit = remaining
	}
	for i := 1; i < limit; i++ {
		lcp, n := bits.DecodeVByte(s.data[pos:])
		if n == 0 {
			return 0
		}
		pos += n
		end := bytes.IndexByte(s.data[pos:], 0x00)
		if end < 0 {
			return 0
		}
		cur = append(cur[:lcp], s.data[pos:pos+end]...)
		pos += end + 1

		switch {
		case string(cur) == str:
			return uint32(bucket*s.blockSize + i + 1)
		case string(cur) > str:
			return 0
		}
	}
	return 0
}

func (s *pfcSection) save(w io.Writer) error {
	if err := bits.WriteVByte(w, uint64(s.numStrings)); err != nil {
		return err
	}
	if err := bits.WriteVByte(w, uint64(s.blockSize)); err != nil {
		return err
	}
	if err := bits.WriteVByte(w, uint64(len(s.data))); err != nil {
		return err
	}
	if _, err := w.Write(s.data); err != nil {
		return err
	}
	return s.offsets.Save(w)
}

func (s *pfcSection) load(r io.Reader) error {
	numStrings, err := bits.ReadVByte(r)
	if err != nil {
		return fmt.Errorf("reading pfc string count: %w", err)
	}
	blockSize, err := bits.ReadVByte(r)
	if err != nil {
		return fmt.Errorf("reading pfc bucket size: %w", err)
	}
	if blockSize == 0 {
		return fmt.Errorf("%w: zero pfc bucket size", hdt.ErrParse)
	}
	totalBytes, err := bits.ReadVByte(r)
	if err != nil {
		return fmt.Errorf("reading pfc byte count: %w", err)
	}

	data := make([]byte, totalBytes)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("reading pfc data: %w", err)
	}

	offsets := bits.NewPackedArray(1)
	if err := offsets.Load(r); err != nil {
		return fmt.Errorf("reading pfc offsets: %w", err)
	}

	s.numStrings = int(numStrings)
	s.blockSize = int(blockSize)
	s.data = data
	s.offsets = offsets
	return nil
}

// PFCDictionary is the immutable front-coded dictionary. It is produced by
// importing a finalized PlainDictionary and preserves its id assignment.
type PFCDictionary struct {
	shared     pfcSection
	subjects   pfcSection
	objects    pfcSection
	predicates pfcSection

	blockSize   int
	sizeStrings uint64
}

// NewPFCDictionary creates an empty dictionary with the configured bucket
// size (spec key pfc.blocksize).
func NewPFCDictionary(spec hdt.Spec) *PFCDictionary {
	blockSize := DefaultBlockSize
	if v := spec.Get(hdt.SpecPFCBlockSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			blockSize = n
		}
	}
	return &PFCDictionary{blockSize: blockSize}
}

// Import front-codes the four partitions of a finalized plain dictionary.
func (d *PFCDictionary) Import(plain *PlainDictionary, listener hdt.ProgressListener) error {
	if !plain.Frozen() {
		return fmt.Errorf("pfc import: source dictionary not finalized")
	}

	parts := []struct {
		dst  *pfcSection
		strs []string
	}{
		{&d.shared, plain.shared},
		{&d.subjects, plain.subjects},
		{&d.objects, plain.objects},
		{&d.predicates, plain.predicates},
	}
	for i, p := range parts {
		*p.dst = buildSection(p.strs, d.blockSize)
		if !listener.Notify("front-coding dictionary", uint64(i+1), 4) {
			return hdt.ErrCancelled
		}
	}
	d.sizeStrings = plain.sizeStrings
	return nil
}

// StringToID resolves a string in the namespace of the given role.
func (d *PFCDictionary) StringToID(s string, role hdt.Role) uint32 {
	if s == "" {
		return 0
	}
	switch role {
	case hdt.RoleSubject:
		if id := d.shared.locate(s); id != 0 {
			return id
		}
		if id := d.subjects.locate(s); id != 0 {
			return uint32(d.shared.numStrings) + id
		}
	case hdt.RoleObject:
		if id := d.shared.locate(s); id != 0 {
			return id
		}
		if id := d.objects.locate(s); id != 0 {
			return uint32(d.shared.numStrings) + id
		}
	case hdt.RolePredicate:
		return d.predicates.locate(s)
	}
	return 0
}

// IDToString resolves an id in the namespace of the given role.
func (d *PFCDictionary) IDToString(id uint32, role hdt.Role) (string, error) {
	if id == 0 {
		return "", fmt.Errorf("pfc dictionary: id 0: %w", hdt.ErrUnknownID)
	}
	shared := uint32(d.shared.numStrings)
	switch role {
	case hdt.RoleSubject:
		if id <= shared {
			return d.shared.extract(id)
		}
		return d.subjects.extract(id - shared)
	case hdt.RoleObject:
		if id <= shared {
			return d.shared.extract(id)
		}
		return d.objects.extract(id - shared)
	case hdt.RolePredicate:
		return d.predicates.extract(id)
	}
	return "", fmt.Errorf("pfc dictionary: invalid role %d: %w", role, hdt.ErrUnknownID)
}

// TripleStringToTripleID translates a textual triple; unknown components
// become wildcards.
func (d *PFCDictionary) TripleStringToTripleID(ts rdf.TripleString) hdt.TripleID {
	return hdt.TripleID{
		Subject:   d.StringToID(ts.Subject, hdt.RoleSubject),
		Predicate: d.StringToID(ts.Predicate, hdt.RolePredicate),
		Object:    d.StringToID(ts.Object, hdt.RoleObject),
	}
}

// TripleIDToTripleString translates a stored id triple back to text.
func (d *PFCDictionary) TripleIDToTripleString(t hdt.TripleID) (rdf.TripleString, error) {
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

func (d *PFCDictionary) NumShared() uint32 {
	return uint32(d.shared.numStrings)
}

func (d *PFCDictionary) NumSubjects() uint32 {
	return uint32(d.shared.numStrings + d.subjects.numStrings)
}

func (d *PFCDictionary) NumObjects() uint32 {
	return uint32(d.shared.numStrings + d.objects.numStrings)
}

func (d *PFCDictionary) NumPredicates() uint32 {
	return uint32(d.predicates.numStrings)
}

// NumberOfElements returns the number of distinct strings.
func (d *PFCDictionary) NumberOfElements() uint64 {
	return uint64(d.shared.numStrings + d.subjects.numStrings +
		d.objects.numStrings + d.predicates.numStrings)
}

// Size returns the compressed footprint in bytes.
func (d *PFCDictionary) Size() uint64 {
	var total uint64
	for _, s := range []*pfcSection{&d.shared, &d.subjects, &d.objects, &d.predicates} {
		total += uint64(len(s.data))
		if s.offsets != nil {
			total += s.offsets.SizeBytes()
		}
	}
	return total
}

// Type returns the implementation tag.
func (d *PFCDictionary) Type() string {
	return hdt.DictionaryTypePFC
}

// Save writes the four front-coded partitions in fixed order, preceded by
// a control block naming the PFC tag.
func (d *PFCDictionary) Save(w io.Writer, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	var payload bytes.Buffer
	for _, s := range []*pfcSection{&d.shared, &d.subjects, &d.objects, &d.predicates} {
		if err := s.save(&payload); err != nil {
			return err
		}
	}

	ci.Kind = hdt.ControlDictionary
	ci.SetFormat(hdt.DictionaryTypePFC)
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

// Load reads the four partitions written by Save.
func (d *PFCDictionary) Load(r io.Reader, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	if ci.Format() != hdt.DictionaryTypePFC {
		return fmt.Errorf("%w: dictionary tag %q", hdt.ErrFormat, ci.Format())
	}

	for i, s := range []*pfcSection{&d.shared, &d.subjects, &d.objects, &d.predicates} {
		if err := s.load(r); err != nil {
			return err
		}
		if !listener.Notify("loading dictionary", uint64(i+1), 4) {
			return hdt.ErrCancelled
		}
	}
	d.sizeStrings = ci.GetUint(hdt.PropSizeStrings)
	return nil
}

// PopulateHeader inserts the dictionary statistics under rootNode.
func (d *PFCDictionary) PopulateHeader(h hdt.Header, rootNode string) {
	h.Insert(rootNode, hdt.RDFType, d.Type())
	h.InsertUint(rootNode, hdt.DictNumShared, uint64(d.NumShared()))
	h.InsertUint(rootNode, hdt.DictNumSubjects, uint64(d.NumSubjects()))
	h.InsertUint(rootNode, hdt.DictNumPredicates, uint64(d.NumPredicates()))
	h.InsertUint(rootNode, hdt.DictNumObjects, uint64(d.NumObjects()))
	h.InsertUint(rootNode, hdt.DictSizeStrings, d.sizeStrings)
}
