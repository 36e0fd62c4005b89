package triples

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
)

// DiskList is a disk-backed building form for imports larger than memory.
// Triples are stored as order-permuted big-endian keys in a badger
// instance under a scratch directory: the LSM keeps keys sorted, so Sort
// reduces to re-keying and iteration comes back in order, and key
// uniqueness removes duplicates on insert.
type DiskList struct {
	db    *badger.DB
	dir   string
	owned bool // scratch dir created here, removed on Close

	order  hdt.Order
	sorted bool
}

// NewDiskList opens a disk-backed list. The scratch location comes from
// the triples.disk.location spec key; when unset a temporary directory is
// created and removed on Close.
func NewDiskList(spec hdt.Spec) (*DiskList, error) {
	dir := spec.Get(hdt.SpecDiskLocation)
	owned := false
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "hdtgo-triples-*")
		if err != nil {
			return nil, fmt.Errorf("creating triples scratch dir: %w", err)
		}
		owned = true
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open triples scratch db: %w", err)
	}

	return &DiskList{
		db:    db,
		dir:   dir,
		owned: owned,
		order: hdt.OrderSPO,
	}, nil
}

// encodeKey builds the 13-byte key: one order tag byte, then the three
// permuted components big-endian so byte order equals triple order.
func encodeKey(order hdt.Order, t hdt.TripleID) []byte {
	a, b, c := order.Permute(t)
	key := make([]byte, 13)
	key[0] = byte(order)
	binary.BigEndian.PutUint32(key[1:5], a)
	binary.BigEndian.PutUint32(key[5:9], b)
	binary.BigEndian.PutUint32(key[9:13], c)
	return key
}

func decodeKey(order hdt.Order, key []byte) hdt.TripleID {
	a := binary.BigEndian.Uint32(key[1:5])
	b := binary.BigEndian.Uint32(key[5:9])
	c := binary.BigEndian.Uint32(key[9:13])
	return order.Unpermute(a, b, c)
}

// StartProcessing drops all stored triples.
func (d *DiskList) StartProcessing() {
	_ = d.db.DropAll()
	d.sorted = false
}

// StopProcessing marks the end of insertion.
func (d *DiskList) StopProcessing() error {
	return nil
}

// Insert stores a triple. Inserting an existing triple is a no-op, so the
// list never holds duplicates.
func (d *DiskList) Insert(t hdt.TripleID) error {
	if !t.IsValid() {
		return fmt.Errorf("disk list: insert of wildcard triple %v", t)
	}
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(d.order, t), nil)
	})
	if err != nil {
		return fmt.Errorf("disk list: insert: %w", err)
	}
	return nil
}

// Remove deletes every triple matching the pattern.
func (d *DiskList) Remove(pattern hdt.TripleID) error {
	var victims [][]byte
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if decodeKey(d.order, key).Match(pattern) {
				victims = append(victims, key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("disk list: remove scan: %w", err)
	}

	for len(victims) > 0 {
		batch := victims
		if len(batch) > 1024 {
			batch = victims[:1024]
		}
		err := d.db.Update(func(txn *badger.Txn) error {
			for _, key := range batch {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("disk list: remove: %w", err)
		}
		victims = victims[len(batch):]
	}
	return nil
}

// Sort establishes the given component order. Keys already sort by the
// current permutation, so only an order change rewrites them.
func (d *DiskList) Sort(order hdt.Order, listener hdt.ProgressListener) error {
	if order == hdt.OrderUnknown {
		order = hdt.OrderSPO
	}
	if !listener.Notify("sorting triples", 0, 100) {
		return hdt.ErrCancelled
	}
	if order == d.order {
		d.sorted = true
		listener.Notify("sorting triples", 100, 100)
		return nil
	}

	// Re-key under the new permutation, then drop the old keyspace.
	oldOrder := d.order
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		wb := d.db.NewWriteBatch()
		defer wb.Cancel()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if key[0] != byte(oldOrder) {
				continue
			}
			t := decodeKey(oldOrder, key)
			if err := wb.Set(encodeKey(order, t), nil); err != nil {
				return err
			}
			if err := wb.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return wb.Flush()
	})
	if err != nil {
		return fmt.Errorf("disk list: re-keying for %s order: %w", order, err)
	}

	d.order = order
	d.sorted = true
	listener.Notify("sorting triples", 100, 100)
	return nil
}

// RemoveDuplicates requires a prior Sort. Keys are unique by construction,
// so nothing is rewritten.
func (d *DiskList) RemoveDuplicates(listener hdt.ProgressListener) error {
	if !d.sorted {
		return fmt.Errorf("disk list: remove duplicates: %w", hdt.ErrNotSorted)
	}
	listener.Notify("removing duplicates", 100, 100)
	return nil
}

// diskIterator streams keys from a read transaction. The transaction is
// discarded when the iteration is exhausted.
type diskIterator struct {
	d       *DiskList
	pattern hdt.TripleID
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	started bool
	done    bool
	cur     hdt.TripleID
}

func (it *diskIterator) Next() bool {
	if it.done {
		return false
	}
	for {
		if !it.started {
			it.it.Seek(it.prefix)
			it.started = true
		} else {
			it.it.Next()
		}
		if !it.it.ValidForPrefix(it.prefix) {
			it.close()
			return false
		}
		t := decodeKey(it.d.order, it.it.Item().Key())
		if t.Match(it.pattern) {
			it.cur = t
			return true
		}
	}
}

func (it *diskIterator) Triple() hdt.TripleID {
	return it.cur
}

func (it *diskIterator) close() {
	if it.done {
		return
	}
	it.it.Close()
	it.txn.Discard()
	it.done = true
}

// Search returns an iterator over triples matching the pattern. Components
// bound along the key order become a key prefix scan.
func (d *DiskList) Search(pattern hdt.TripleID) hdt.TripleIDIterator {
	prefix := []byte{byte(d.order)}
	pa, pb, pc := d.order.Permute(pattern)
	if pa != 0 {
		prefix = binary.BigEndian.AppendUint32(prefix, pa)
		if pb != 0 {
			prefix = binary.BigEndian.AppendUint32(prefix, pb)
			if pc != 0 {
				prefix = binary.BigEndian.AppendUint32(prefix, pc)
			}
		}
	}

	txn := d.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	return &diskIterator{
		d:       d,
		pattern: pattern,
		txn:     txn,
		it:      txn.NewIterator(opts),
		prefix:  prefix,
	}
}

// NumberOfElements counts the stored triples.
func (d *DiskList) NumberOfElements() uint64 {
	var n uint64
	_ = d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n
}

// Size returns the on-disk key footprint in bytes.
func (d *DiskList) Size() uint64 {
	lsm, vlog := d.db.Size()
	return uint64(lsm + vlog)
}

// Order returns the current key order.
func (d *DiskList) Order() hdt.Order {
	if !d.sorted {
		return hdt.OrderUnknown
	}
	return d.order
}

// Type returns the implementation tag.
func (d *DiskList) Type() string {
	return hdt.TriplesTypeListDisk
}

// Save streams the triples in key order as little-endian u32 records.
func (d *DiskList) Save(w io.Writer, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	n := d.NumberOfElements()

	ci.Kind = hdt.ControlTriples
	ci.SetFormat(hdt.TriplesTypeListDisk)
	ci.Set(hdt.PropOrder, d.Order().String())
	ci.SetUint(hdt.PropNumTriples, n)
	ci.SetUint(hdt.PropLength, n*12)
	if err := ci.Save(w); err != nil {
		return err
	}

	var done uint64
	var rec [12]byte
	it := d.Search(hdt.TripleID{})
	for it.Next() {
		t := it.Triple()
		binary.LittleEndian.PutUint32(rec[0:4], t.Subject)
		binary.LittleEndian.PutUint32(rec[4:8], t.Predicate)
		binary.LittleEndian.PutUint32(rec[8:12], t.Object)
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
		done++
		if done%100000 == 0 && !listener.Notify("saving triples", done, n) {
			return hdt.ErrCancelled
		}
	}
	listener.Notify("saving triples", n, n)
	return nil
}

// Load reads a record stream written by Save or by TriplesList.
func (d *DiskList) Load(r io.Reader, ci *hdt.ControlInformation, listener hdt.ProgressListener) error {
	if tag := ci.Format(); tag != hdt.TriplesTypeListDisk && tag != hdt.TriplesTypeList {
		return fmt.Errorf("%w: triples tag %q", hdt.ErrFormat, tag)
	}
	n := ci.GetUint(hdt.PropNumTriples)

	d.StartProcessing()
	if o := hdt.ParseOrder(ci.Get(hdt.PropOrder)); o != hdt.OrderUnknown {
		d.order = o
		d.sorted = true
	}

	var rec [12]byte
	for i := uint64(0); i < n; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return fmt.Errorf("reading triple record: %w", err)
		}
		t := hdt.TripleID{
			Subject:   binary.LittleEndian.Uint32(rec[0:4]),
			Predicate: binary.LittleEndian.Uint32(rec[4:8]),
			Object:    binary.LittleEndian.Uint32(rec[8:12]),
		}
		if err := d.Insert(t); err != nil {
			return err
		}
		if i%100000 == 0 && !listener.Notify("loading triples", i, n) {
			return hdt.ErrCancelled
		}
	}
	return nil
}

// PopulateHeader inserts the triples statistics under rootNode.
func (d *DiskList) PopulateHeader(h hdt.Header, rootNode string) {
	h.Insert(rootNode, hdt.RDFType, d.Type())
	h.InsertUint(rootNode, hdt.TriplesNumTriples, d.NumberOfElements())
	h.Insert(rootNode, hdt.TriplesOrder, `"`+d.Order().String()+`"`)
}

// Close releases the scratch database, removing the directory when it was
// created by NewDiskList.
func (d *DiskList) Close() error {
	err := d.db.Close()
	if d.owned {
		if rmErr := os.RemoveAll(d.dir); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}
