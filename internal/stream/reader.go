// Package stream provides a little-endian cursor over PDB stream bytes.
package stream

import (
	"encoding/binary"
	"errors"
	"strconv"
)

var (
	ErrUnexpectedEOF  = errors.New("stream: unexpected end of data")
	ErrNegativeOffset = errors.New("stream: negative offset")
	ErrInvalidNumeric = errors.New("stream: invalid numeric encoding")
)

// Reader reads little-endian values from a byte slice. Reads never copy
// unless the method says so.
type Reader struct {
	data   []byte
	offset int
}

// NewReader creates a Reader from a byte slice.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.offset }

// SetOffset sets the read position.
func (r *Reader) SetOffset(offset int) error {
	if offset < 0 {
		return ErrNegativeOffset
	}
	r.offset = offset
	return nil
}

// Remaining returns the number of bytes remaining.
func (r *Reader) Remaining() int {
	if r.offset >= len(r.data) {
		return 0
	}
	return len(r.data) - r.offset
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.offset+n > len(r.data) {
		return ErrUnexpectedEOF
	}
	r.offset += n
	return nil
}

func (r *Reader) ReadU8() (uint8, error) {
	if r.offset >= len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := r.data[r.offset]
	r.offset++
	return v, nil
}

func (r *Reader) ReadU16() (uint16, error) {
	if r.offset+2 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	if r.offset+4 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v, nil
}

func (r *Reader) ReadU64() (uint64, error) {
	if r.offset+8 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return v, nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadBytesRef returns a reference to the next n bytes without copying.
func (r *Reader) ReadBytesRef(n int) ([]byte, error) {
	if n < 0 || r.offset+n > len(r.data) {
		return nil, ErrUnexpectedEOF
	}
	v := r.data[r.offset : r.offset+n]
	r.offset += n
	return v, nil
}

// ReadCString reads a null-terminated string.
func (r *Reader) ReadCString() (string, error) {
	start := r.offset
	for i := start; i < len(r.data); i++ {
		if r.data[i] == 0 {
			r.offset = i + 1
			return string(r.data[start:i]), nil
		}
	}
	return "", ErrUnexpectedEOF
}

// ReadGUID reads a 16-byte GUID.
func (r *Reader) ReadGUID() ([16]byte, error) {
	var guid [16]byte
	b, err := r.ReadBytesRef(16)
	if err != nil {
		return guid, err
	}
	copy(guid[:], b)
	return guid, nil
}

// Numeric is a decoded CodeView numeric leaf. Signed leaves keep their sign
// so that negative enumerator values render correctly.
type Numeric struct {
	Bits   uint64
	Signed bool
}

// Uint64 returns the value reinterpreted as unsigned.
func (n Numeric) Uint64() uint64 { return n.Bits }

// Int64 returns the value reinterpreted as signed.
func (n Numeric) Int64() int64 { return int64(n.Bits) }

func (n Numeric) String() string {
	if n.Signed {
		return strconv.FormatInt(int64(n.Bits), 10)
	}
	return strconv.FormatUint(n.Bits, 10)
}

// ReadNumeric reads a CodeView variable-length numeric and returns its value
// as unsigned. Use ReadNumericValue when the sign matters.
func (r *Reader) ReadNumeric() (uint64, error) {
	n, err := r.ReadNumericValue()
	return n.Bits, err
}

// ReadNumericValue reads a CodeView variable-length numeric.
func (r *Reader) ReadNumericValue() (Numeric, error) {
	leaf, err := r.ReadU16()
	if err != nil {
		return Numeric{}, err
	}

	// Values below LF_NUMERIC are stored inline.
	if leaf < 0x8000 {
		return Numeric{Bits: uint64(leaf)}, nil
	}

	switch leaf {
	case 0x8000: // LF_CHAR
		v, err := r.ReadU8()
		return Numeric{Bits: uint64(int64(int8(v))), Signed: true}, err
	case 0x8001: // LF_SHORT
		v, err := r.ReadU16()
		return Numeric{Bits: uint64(int64(int16(v))), Signed: true}, err
	case 0x8002: // LF_USHORT
		v, err := r.ReadU16()
		return Numeric{Bits: uint64(v)}, err
	case 0x8003: // LF_LONG
		v, err := r.ReadI32()
		return Numeric{Bits: uint64(int64(v)), Signed: true}, err
	case 0x8004: // LF_ULONG
		v, err := r.ReadU32()
		return Numeric{Bits: uint64(v)}, err
	case 0x8009: // LF_QUADWORD
		v, err := r.ReadU64()
		return Numeric{Bits: v, Signed: true}, err
	case 0x800a: // LF_UQUADWORD
		v, err := r.ReadU64()
		return Numeric{Bits: v}, err
	default:
		return Numeric{}, ErrInvalidNumeric
	}
}

// SkipPadding skips LF_PAD bytes (0xF0-0xFF) that align field list entries.
// The low nibble of the first pad byte is the distance to the next entry.
func (r *Reader) SkipPadding() error {
	if r.offset >= len(r.data) {
		return nil
	}
	b := r.data[r.offset]
	if b < 0xF0 {
		return nil
	}
	n := int(b & 0x0F)
	if n == 0 {
		n = 1
	}
	if r.offset+n > len(r.data) {
		r.offset = len(r.data)
		return nil
	}
	r.offset += n
	return nil
}

// SubReader returns a Reader over the next length bytes and advances past them.
func (r *Reader) SubReader(length int) (*Reader, error) {
	b, err := r.ReadBytesRef(length)
	if err != nil {
		return nil, err
	}
	return NewReader(b), nil
}
