package crdt

import (
	"fmt"
	"unicode/utf16"
)

// content is the payload of an item. splice keeps the first offset units in
// the receiver and returns the remainder.
type content interface {
	length() uint64
	splice(offset uint64) content
}

type contentDeleted struct{ n uint64 }

func (c *contentDeleted) length() uint64 { return c.n }
func (c *contentDeleted) splice(offset uint64) content {
	right := &contentDeleted{n: c.n - offset}
	c.n = offset
	return right
}

type contentJSON struct{ values []any }

func (c *contentJSON) length() uint64 { return uint64(len(c.values)) }
func (c *contentJSON) splice(offset uint64) content {
	right := &contentJSON{values: c.values[offset:]}
	c.values = c.values[:offset]
	return right
}

type contentAny struct{ values []any }

func (c *contentAny) length() uint64 { return uint64(len(c.values)) }
func (c *contentAny) splice(offset uint64) content {
	right := &contentAny{values: c.values[offset:]}
	c.values = c.values[:offset]
	return right
}

// contentString holds UTF-16 code units; clocks count units, not runes.
type contentString struct{ units []uint16 }

func newContentString(s string) *contentString {
	return &contentString{units: utf16.Encode([]rune(s))}
}

func (c *contentString) length() uint64 { return uint64(len(c.units)) }
func (c *contentString) splice(offset uint64) content {
	left := append([]uint16(nil), c.units[:offset]...)
	right := append([]uint16(nil), c.units[offset:]...)
	// a split surrogate pair becomes two replacement characters
	if n := len(left); n > 0 && left[n-1] >= 0xd800 && left[n-1] <= 0xdbff && len(right) > 0 {
		left[len(left)-1] = 0xfffd
		right[0] = 0xfffd
	}
	c.units = left
	return &contentString{units: right}
}

func (c *contentString) String() string {
	return string(utf16.Decode(c.units))
}

type contentBinary struct{ data []byte }

func (c *contentBinary) length() uint64          { return 1 }
func (c *contentBinary) splice(uint64) content { panic("binary content cannot be split") }

type contentEmbed struct{ value any }

func (c *contentEmbed) length() uint64          { return 1 }
func (c *contentEmbed) splice(uint64) content { panic("embed content cannot be split") }

type contentFormat struct {
	key   string
	value any
}

func (c *contentFormat) length() uint64          { return 1 }
func (c *contentFormat) splice(uint64) content { panic("format content cannot be split") }

type contentType struct{ t *ytype }

func (c *contentType) length() uint64          { return 1 }
func (c *contentType) splice(uint64) content { panic("type content cannot be split") }

type contentDoc struct{ guid string }

func (c *contentDoc) length() uint64          { return 1 }
func (c *contentDoc) splice(uint64) content { panic("doc content cannot be split") }

// item content refs, the low five bits of the info byte
const (
	refGC      = 0
	refDeleted = 1
	refJSON    = 2
	refBinary  = 3
	refString  = 4
	refEmbed   = 5
	refFormat  = 6
	refType    = 7
	refAny     = 8
	refDoc     = 9
	refSkip    = 10
)

func (d *decoder) readContent(info uint8) (content, error) {
	switch info & 0x1f {
	case refDeleted:
		n, err := d.readVarUint()
		return &contentDeleted{n: n}, err
	case refJSON:
		n, err := d.readVarUint()
		if err != nil {
			return nil, err
		}
		c := &contentJSON{values: make([]any, 0, min(n, 1024))}
		for i := uint64(0); i < n; i++ {
			v, err := d.readJSON()
			if err != nil {
				return nil, err
			}
			c.values = append(c.values, v)
		}
		return c, nil
	case refBinary:
		b, err := d.readBytes()
		return &contentBinary{data: b}, err
	case refString:
		s, err := d.readString()
		return newContentString(s), err
	case refEmbed:
		v, err := d.readJSON()
		return &contentEmbed{value: v}, err
	case refFormat:
		key, err := d.readString()
		if err != nil {
			return nil, err
		}
		v, err := d.readJSON()
		return &contentFormat{key: key, value: v}, err
	case refType:
		t, err := d.readType()
		return &contentType{t: t}, err
	case refAny:
		n, err := d.readVarUint()
		if err != nil {
			return nil, err
		}
		c := &contentAny{values: make([]any, 0, min(n, 1024))}
		for i := uint64(0); i < n; i++ {
			v, err := d.readAny()
			if err != nil {
				return nil, err
			}
			c.values = append(c.values, v)
		}
		return c, nil
	case refDoc:
		guid, err := d.readString()
		if err != nil {
			return nil, err
		}
		if _, err := d.readAny(); err != nil {
			return nil, err
		}
		return &contentDoc{guid: guid}, nil
	default:
		return nil, fmt.Errorf("unknown content ref %d", info&0x1f)
	}
}

// shared type refs
const (
	typeArray = iota
	typeMap
	typeText
	typeXMLElement
	typeXMLFragment
	typeXMLHook
	typeXMLText
)

func (d *decoder) readType() (*ytype, error) {
	ref, err := d.readVarUint()
	if err != nil {
		return nil, err
	}
	t := newType(int(ref))
	switch ref {
	case typeXMLElement, typeXMLHook:
		if t.name, err = d.readString(); err != nil {
			return nil, err
		}
	case typeArray, typeMap, typeText, typeXMLFragment, typeXMLText:
	default:
		return nil, fmt.Errorf("unknown type ref %d", ref)
	}
	return t, nil
}
