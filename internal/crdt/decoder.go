package crdt

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// maxChunk bounds a single length-prefixed read so a corrupt length cannot
// force a huge allocation.
const maxChunk = 64 << 20

var errOverflow = errors.New("varint overflows 64 bits")

// decoder reads lib0 primitives from a stream.
type decoder struct {
	r *bufio.Reader
}

func newDecoder(r io.Reader) *decoder {
	if br, ok := r.(*bufio.Reader); ok {
		return &decoder{r: br}
	}
	return &decoder{r: bufio.NewReaderSize(r, 32<<10)}
}

func (d *decoder) readUint8() (uint8, error) {
	return d.r.ReadByte()
}

func (d *decoder) readVarUint() (uint64, error) {
	var n uint64
	var shift uint
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift > 63 || (shift == 63 && b&0x7f > 1) {
			return 0, errOverflow
		}
		n |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return n, nil
		}
		shift += 7
	}
}

// readVarInt reads a signed varint: the first byte carries a sign bit and
// six value bits.
func (d *decoder) readVarInt() (int64, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}
	n := uint64(b & 0x3f)
	negative := b&0x40 != 0
	shift := uint(6)
	for b&0x80 != 0 {
		if b, err = d.r.ReadByte(); err != nil {
			return 0, err
		}
		if shift > 62 {
			return 0, errOverflow
		}
		n |= uint64(b&0x7f) << shift
		shift += 7
	}
	if negative {
		return -int64(n), nil
	}
	return int64(n), nil
}

func (d *decoder) readBytes() ([]byte, error) {
	n, err := d.readVarUint()
	if err != nil {
		return nil, err
	}
	if n > maxChunk {
		return nil, fmt.Errorf("chunk of %d bytes exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *decoder) readString() (string, error) {
	b, err := d.readBytes()
	return string(b), err
}

func (d *decoder) readFixed(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := io.ReadFull(d.r, buf)
	return buf, err
}

func (d *decoder) readID() (ID, error) {
	client, err := d.readVarUint()
	if err != nil {
		return ID{}, err
	}
	clock, err := d.readVarUint()
	if err != nil {
		return ID{}, err
	}
	return ID{Client: client, Clock: clock}, nil
}

func (d *decoder) readJSON() (any, error) {
	s, err := d.readString()
	if err != nil {
		return nil, err
	}
	if s == "undefined" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("embedded json: %w", err)
	}
	return v, nil
}

// readAny decodes a lib0 "any" value. Type tags count down from 127.
func (d *decoder) readAny() (any, error) {
	tag, err := d.readUint8()
	if err != nil {
		return nil, err
	}

	switch tag {
	case 127, 126: // undefined, null
		return nil, nil
	case 125:
		return d.readVarInt()
	case 124:
		b, err := d.readFixed(4)
		if err != nil {
			return nil, err
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
	case 123:
		b, err := d.readFixed(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case 122:
		b, err := d.readFixed(8)
		if err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case 121:
		return false, nil
	case 120:
		return true, nil
	case 119:
		return d.readString()
	case 118:
		n, err := d.readVarUint()
		if err != nil {
			return nil, err
		}
		obj := make(map[string]any)
		for i := uint64(0); i < n; i++ {
			key, err := d.readString()
			if err != nil {
				return nil, err
			}
			if obj[key], err = d.readAny(); err != nil {
				return nil, err
			}
		}
		return obj, nil
	case 117:
		n, err := d.readVarUint()
		if err != nil {
			return nil, err
		}
		arr := make([]any, 0, min(n, 1024))
		for i := uint64(0); i < n; i++ {
			v, err := d.readAny()
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case 116:
		return d.readBytes()
	default:
		return nil, fmt.Errorf("unknown any tag %d", tag)
	}
}
