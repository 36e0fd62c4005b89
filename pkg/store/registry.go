// Package store composes the header, dictionary and triples components
// into the two façades: HDT, immutable once built, and MutableHDT, which
// keeps the building forms and accepts inserts and removals.
package store

import (
	"fmt"

	"github.com/aleksaelezovic/hdtgo/internal/dict"
	"github.com/aleksaelezovic/hdtgo/internal/header"
	"github.com/aleksaelezovic/hdtgo/internal/triples"
	"github.com/aleksaelezovic/hdtgo/pkg/hdt"
)

// Registry resolves spec values and control block tags to concrete
// component implementations. A façade builds one at creation instead of
// relying on package-level factories.
type Registry struct {
	spec hdt.Spec
}

// NewRegistry creates a registry bound to a spec.
func NewRegistry(spec hdt.Spec) Registry {
	if spec == nil {
		spec = hdt.NewSpec()
	}
	return Registry{spec: spec}
}

// dictionaryTag normalizes a spec value to a dictionary type tag.
func (r Registry) dictionaryTag() string {
	switch r.spec.Get(hdt.SpecDictionaryType) {
	case hdt.DictionaryTypePFC, "pfc":
		return hdt.DictionaryTypePFC
	default:
		return hdt.DictionaryTypePlain
	}
}

// triplesTag normalizes a spec value to a triples type tag. The bitmap
// layout is the default, as in the binary format's common profile.
func (r Registry) triplesTag() string {
	switch r.spec.Get(hdt.SpecTriplesType) {
	case hdt.TriplesTypeList, "list":
		return hdt.TriplesTypeList
	case hdt.TriplesTypeListDisk, "disk":
		return hdt.TriplesTypeListDisk
	case hdt.TriplesTypePlain, "plain":
		return hdt.TriplesTypePlain
	case hdt.TriplesTypeCompact, "compact":
		return hdt.TriplesTypeCompact
	default:
		return hdt.TriplesTypeBitmap
	}
}

// NewHeader builds the configured header: empty when the noheader flag is
// set, plain otherwise.
func (r Registry) NewHeader() hdt.Header {
	if r.spec.Bool(hdt.SpecNoHeader) {
		return header.NewEmptyHeader()
	}
	return header.NewPlainHeader()
}

// NewModifiableTriples builds the building form for ingest: the in-memory
// list, or the badger-backed spill list when triples.type selects it.
func (r Registry) NewModifiableTriples() (hdt.ModifiableTriples, error) {
	if r.triplesTag() == hdt.TriplesTypeListDisk {
		return triples.NewDiskList(r.spec)
	}
	return triples.NewTriplesList(), nil
}

// ReadHeader selects a header implementation for a loaded control block.
func (r Registry) ReadHeader(ci *hdt.ControlInformation) (hdt.Header, error) {
	switch ci.Format() {
	case hdt.HeaderTypePlain:
		return header.NewPlainHeader(), nil
	case hdt.HeaderTypeEmpty:
		return header.NewEmptyHeader(), nil
	default:
		return nil, fmt.Errorf("%w: header tag %q", hdt.ErrFormat, ci.Format())
	}
}

// ReadDictionary selects a dictionary implementation for a loaded control
// block.
func (r Registry) ReadDictionary(ci *hdt.ControlInformation) (hdt.Dictionary, error) {
	switch ci.Format() {
	case hdt.DictionaryTypePlain:
		return dict.NewPlainDictionary(), nil
	case hdt.DictionaryTypePFC:
		return dict.NewPFCDictionary(r.spec), nil
	default:
		return nil, fmt.Errorf("%w: dictionary tag %q", hdt.ErrFormat, ci.Format())
	}
}

// ReadTriples selects a triples implementation for a loaded control block.
func (r Registry) ReadTriples(ci *hdt.ControlInformation) (hdt.Triples, error) {
	switch ci.Format() {
	case hdt.TriplesTypeList:
		return triples.NewTriplesList(), nil
	case hdt.TriplesTypeListDisk:
		return triples.NewDiskList(r.spec)
	case hdt.TriplesTypePlain:
		return triples.NewPlainTriples(), nil
	case hdt.TriplesTypeCompact:
		return triples.NewCompactTriples(), nil
	case hdt.TriplesTypeBitmap:
		return triples.NewBitmapTriples(), nil
	default:
		return nil, fmt.Errorf("%w: triples tag %q", hdt.ErrFormat, ci.Format())
	}
}
