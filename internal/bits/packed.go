package bits

import (
	"fmt"
	"io"
	"math/bits"
)

// PackedArray is a sequence of unsigned integers stored at a fixed bit
// width, LSB-first within little-endian 64-bit words. Random access is
// constant time.
type PackedArray struct {
	width uint
	n     int
	words []uint64
}

// BitsNeeded returns the width required to represent max, with a minimum of
// one bit so a packed array never degenerates to zero width.
func BitsNeeded(max uint64) uint {
	if max == 0 {
		return 1
	}
	return uint(bits.Len64(max))
}

// NewPackedArray creates an empty array with the given bit width.
func NewPackedArray(width uint) *PackedArray {
	if width == 0 {
		width = 1
	}
	if width > 64 {
		width = 64
	}
	return &PackedArray{width: width}
}

// Width returns the bit width per element.
func (a *PackedArray) Width() uint {
	return a.width
}

// Len returns the number of elements.
func (a *PackedArray) Len() int {
	return a.n
}

// SizeBytes returns the size of the packed data in bytes.
func (a *PackedArray) SizeBytes() uint64 {
	return uint64(len(a.words)) * 8
}

// Append adds a value at the end. Values wider than the configured width
// are truncated to it.
func (a *PackedArray) Append(v uint64) {
	if a.width < 64 {
		v &= (1 << a.width) - 1
	}
	bitPos := uint(a.n) * a.width
	word := int(bitPos >> 6)
	off := bitPos & 63

	for word+1 >= len(a.words) {
		a.words = append(a.words, 0)
	}
	a.words[word] |= v << off
	if off+a.width > 64 {
		a.words[word+1] |= v >> (64 - off)
	}
	a.n++
}

// Get returns the element at index i.
func (a *PackedArray) Get(i int) uint64 {
	bitPos := uint(i) * a.width
	word := bitPos >> 6
	off := bitPos & 63

	v := a.words[word] >> off
	if off+a.width > 64 {
		v |= a.words[word+1] << (64 - off)
	}
	if a.width < 64 {
		v &= (1 << a.width) - 1
	}
	return v
}

// Save writes the array as one width byte, a vbyte element count, and the
// packed payload rounded up to whole bytes.
func (a *PackedArray) Save(w io.Writer) error {
	if _, err := w.Write([]byte{byte(a.width)}); err != nil {
		return err
	}
	if err := WriteVByte(w, uint64(a.n)); err != nil {
		return err
	}

	numBytes := (uint(a.n)*a.width + 7) / 8
	buf := make([]byte, numBytes)
	for i := range buf {
		buf[i] = byte(a.words[i>>3] >> ((i & 7) * 8))
	}
	_, err := w.Write(buf)
	return err
}

// Load reads an array in the format written by Save.
func (a *PackedArray) Load(r io.Reader) error {
	var widthBuf [1]byte
	if _, err := io.ReadFull(r, widthBuf[:]); err != nil {
		return fmt.Errorf("reading packed array width: %w", err)
	}
	if widthBuf[0] == 0 || widthBuf[0] > 64 {
		return fmt.Errorf("invalid packed array width %d", widthBuf[0])
	}

	n, err := ReadVByte(r)
	if err != nil {
		return fmt.Errorf("reading packed array length: %w", err)
	}

	width := uint(widthBuf[0])
	numBytes := (uint(n)*width + 7) / 8
	buf := make([]byte, numBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("reading packed array payload: %w", err)
	}

	words := make([]uint64, (numBytes+7)/8+1)
	for i, b := range buf {
		words[i>>3] |= uint64(b) << ((i & 7) * 8)
	}

	a.width = width
	a.n = int(n)
	a.words = words
	return nil
}
