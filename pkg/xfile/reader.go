package xfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// binReader reads primitive values from a byte slice. Every read returns
// ErrTruncatedInput instead of panicking when it would run past the end,
// and the caller propagates the error.
type binReader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

func newBinReader(data []byte) *binReader {
	return &binReader{data: data, order: binary.LittleEndian}
}

func newBinReaderBE(data []byte) *binReader {
	return &binReader{data: data, order: binary.BigEndian}
}

func (r *binReader) remaining() int { return len(r.data) - r.pos }

func (r *binReader) atEnd() bool { return r.pos >= len(r.data) }

func (r *binReader) canRead(n int) bool { return r.pos+n <= len(r.data) }

func (r *binReader) need(n int) error {
	if !r.canRead(n) {
		return fmt.Errorf("%w: need %d bytes at offset %d of %d", ErrTruncatedInput, n, r.pos, len(r.data))
	}
	return nil
}

func (r *binReader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

func (r *binReader) seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return fmt.Errorf("%w: seek to %d of %d", ErrTruncatedInput, pos, len(r.data))
	}
	r.pos = pos
	return nil
}

func (r *binReader) readUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *binReader) readUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.order.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *binReader) readUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.order.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *binReader) readInt32() (int32, error) {
	v, err := r.readUint32()
	return int32(v), err
}

func (r *binReader) readFloat32() (float32, error) {
	v, err := r.readUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *binReader) readFloat64() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.order.Uint64(r.data[r.pos:])
	r.pos += 8
	return math.Float64frombits(v), nil
}

func (r *binReader) readBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// readString reads n raw bytes as a string.
func (r *binReader) readString(n int) (string, error) {
	b, err := r.readBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readCString reads up to the next null byte. The terminator is consumed.
func (r *binReader) readCString() (string, error) {
	start := r.pos
	for r.pos < len(r.data) && r.data[r.pos] != 0 {
		r.pos++
	}
	s := string(r.data[start:r.pos])
	if r.pos < len(r.data) {
		r.pos++
	}
	return s, nil
}

// readPrefixedString reads a uint32 length followed by that many bytes.
func (r *binReader) readPrefixedString() (string, error) {
	n, err := r.readUint32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	return r.readString(int(n))
}

func (r *binReader) readFloat32Array(count int) ([]float32, error) {
	if err := r.need(count * 4); err != nil {
		return nil, err
	}
	out := make([]float32, count)
	for i := range out {
		v, err := r.readFloat32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *binReader) readUint32Array(count int) ([]uint32, error) {
	if err := r.need(count * 4); err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		v, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
