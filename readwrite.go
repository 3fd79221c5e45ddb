package relnet

import (
	"encoding/binary"
	"errors"
	"math"
)

var le = binary.LittleEndian

// ErrShortRead is reported by a Reader that ran past the end of its buffer.
var ErrShortRead = errors.New("relnet: short read")

// A Reader reads little-endian values from a byte slice starting at a cursor.
// The first failed read sets a sticky error; later reads return zero values.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader over buf starting at off.
func NewReader(buf []byte, off int) *Reader {
	r := &Reader{buf: buf, off: off}
	if off < 0 || off > len(buf) {
		r.err = ErrShortRead
	}
	return r
}

// Offset returns the cursor, i.e. the index of the next unread byte.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if r.err != nil {
		return 0
	}
	return len(r.buf) - r.off
}

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = ErrShortRead
		return nil
	}

	b := r.buf[r.off : r.off+n]
	r.off += n

	return b
}

func (r *Reader) ReadUint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return le.Uint16(b)
}

func (r *Reader) ReadUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return le.Uint32(b)
}

func (r *Reader) ReadInt32() int32 { return int32(r.ReadUint32()) }

func (r *Reader) ReadFloat32() float32 { return math.Float32frombits(r.ReadUint32()) }

func (r *Reader) ReadFloat64() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(le.Uint64(b))
}

// ReadBytes16 reads a uint16 length followed by that many bytes.
// The returned slice aliases the underlying buffer.
func (r *Reader) ReadBytes16() []byte {
	n := r.ReadUint16()
	return r.take(int(n))
}

// ReadString reads a string written by OutboundMessage.WriteString.
func (r *Reader) ReadString() string { return string(r.ReadBytes16()) }

// StringSize returns the number of bytes WriteString uses for s.
func StringSize(s string) int { return 2 + len(s) }
