package rdmproto

import (
	"bytes"
	"errors"
)

// ErrPdlTooLarge is returned when parameter data exceeds MaxPDL bytes.
var ErrPdlTooLarge = errors.New("rdmproto: parameter data exceeds 231 bytes")

// DataPack is a fixed-capacity, heap-free byte sequence holding RDM
// parameter data. Its capacity is the RDM PDL limit (231 bytes); it never
// allocates and never exposes its backing array directly.
type DataPack struct {
	buf [MaxPDL]byte
	n   int
}

// NewDataPack returns an empty DataPack.
func NewDataPack() DataPack {
	return DataPack{}
}

// DataPackFromSlice copies src into a new DataPack, failing if src is larger
// than the PDL limit.
func DataPackFromSlice(src []byte) (DataPack, error) {
	var d DataPack
	if err := d.SetBytes(src); err != nil {
		return DataPack{}, err
	}
	return d, nil
}

// SetBytes replaces the contents of d with src, failing if src overflows the
// capacity.
func (d *DataPack) SetBytes(src []byte) error {
	if len(src) > MaxPDL {
		return ErrPdlTooLarge
	}
	copy(d.buf[:], src)
	d.n = len(src)
	return nil
}

// Append adds src to the end of d, failing without modifying d if the
// result would overflow the capacity.
func (d *DataPack) Append(src []byte) error {
	if d.n+len(src) > MaxPDL {
		return ErrPdlTooLarge
	}
	copy(d.buf[d.n:], src)
	d.n += len(src)
	return nil
}

// Len returns the number of bytes currently stored.
func (d DataPack) Len() int { return d.n }

// Bytes returns the stored bytes as a slice view over the internal array.
// Callers must not retain the slice past the next mutation of d.
func (d *DataPack) Bytes() []byte { return d.buf[:d.n] }

// Equal reports whether two DataPacks hold identical bytes.
func (d DataPack) Equal(other DataPack) bool {
	return bytes.Equal(d.buf[:d.n], other.buf[:other.n])
}
