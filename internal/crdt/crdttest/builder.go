// Package crdttest writes small Yjs v1 updates by hand for tests. It covers
// only the struct kinds the XML projection reads.
package crdttest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"sort"
	"unicode/utf16"
)

// content refs and shared type refs as written on the wire
const (
	refString = 4
	refFormat = 6
	refType   = 7
	refAny    = 8

	typeXMLElement = 3
	typeXMLText    = 6

	flagParentSub   = 0x20
	flagRightOrigin = 0x40
	flagOrigin      = 0x80
)

// ID mirrors a Yjs struct id.
type ID struct {
	Client uint64
	Clock  uint64
}

// At returns the id offset units after id.
func (id ID) At(offset uint64) *ID {
	return &ID{Client: id.Client, Clock: id.Clock + offset}
}

// Ref returns a pointer to a copy of id.
func Ref(id ID) *ID { return &id }

// Parent is either a root type name or the id of the item holding the type.
type Parent struct {
	root string
	id   *ID
}

// Root names a root-level shared type.
func Root(name string) Parent { return Parent{root: name} }

// Under names the type created by the item with the given id.
func Under(id ID) Parent { return Parent{id: &id} }

// After marks items whose parent is copied from their origin.
var After = Parent{}

type encoder struct{ bytes.Buffer }

func (e *encoder) varUint(n uint64) {
	for n >= 0x80 {
		e.WriteByte(byte(n) | 0x80)
		n >>= 7
	}
	e.WriteByte(byte(n))
}

func (e *encoder) varString(s string) {
	e.varUint(uint64(len(s)))
	e.WriteString(s)
}

func (e *encoder) id(id ID) {
	e.varUint(id.Client)
	e.varUint(id.Clock)
}

type clientWriter struct {
	enc   encoder
	n     uint64
	clock uint64
}

// Builder accumulates structs per client and a delete set.
type Builder struct {
	clients map[uint64]*clientWriter
	deletes map[uint64][][2]uint64
}

func NewBuilder() *Builder {
	return &Builder{clients: map[uint64]*clientWriter{}, deletes: map[uint64][][2]uint64{}}
}

func (b *Builder) writer(client uint64) *clientWriter {
	w, ok := b.clients[client]
	if !ok {
		w = &clientWriter{}
		b.clients[client] = w
	}
	return w
}

func (b *Builder) write(client uint64, ref uint8, origin, rightOrigin *ID, p Parent, sub string, length uint64, body func(*encoder)) ID {
	w := b.writer(client)
	id := ID{Client: client, Clock: w.clock}

	info := ref
	if origin != nil {
		info |= flagOrigin
	}
	if rightOrigin != nil {
		info |= flagRightOrigin
	}
	if sub != "" {
		info |= flagParentSub
	}
	w.enc.WriteByte(info)
	if origin != nil {
		w.enc.id(*origin)
	}
	if rightOrigin != nil {
		w.enc.id(*rightOrigin)
	}
	if origin == nil && rightOrigin == nil {
		if p.id == nil {
			w.enc.varUint(1)
			w.enc.varString(p.root)
		} else {
			w.enc.varUint(0)
			w.enc.id(*p.id)
		}
		if sub != "" {
			w.enc.varString(sub)
		}
	}
	body(&w.enc)

	w.n++
	w.clock += length
	return id
}

// Element inserts an XML element. With a nil origin it becomes the first
// child of p.
func (b *Builder) Element(client uint64, p Parent, origin *ID, tag string) ID {
	return b.write(client, refType, origin, nil, p, "", 1, func(e *encoder) {
		e.varUint(typeXMLElement)
		e.varString(tag)
	})
}

// XMLText inserts an XML text node.
func (b *Builder) XMLText(client uint64, p Parent, origin *ID) ID {
	return b.write(client, refType, origin, nil, p, "", 1, func(e *encoder) {
		e.varUint(typeXMLText)
	})
}

// Text inserts a string run. Its clock length counts UTF-16 units.
func (b *Builder) Text(client uint64, p Parent, origin, rightOrigin *ID, s string) ID {
	return b.write(client, refString, origin, rightOrigin, p, "", uint64(len(utf16.Encode([]rune(s)))), func(e *encoder) {
		e.varString(s)
	})
}

// Format inserts a formatting mark into a text run.
func (b *Builder) Format(client uint64, p Parent, origin *ID, key string, value any) ID {
	return b.write(client, refFormat, origin, nil, p, "", 1, func(e *encoder) {
		e.varString(key)
		raw, _ := json.Marshal(value)
		e.varString(string(raw))
	})
}

// Attr sets a string attribute on elem. prev is the id of the value it
// overwrites, if any.
func (b *Builder) Attr(client uint64, elem ID, prev *ID, key, value string) ID {
	return b.write(client, refAny, prev, nil, Under(elem), key, 1, func(e *encoder) {
		e.varUint(1)
		e.WriteByte(119)
		e.varString(value)
	})
}

// Delete adds a range to the delete set.
func (b *Builder) Delete(client, clock, length uint64) {
	b.deletes[client] = append(b.deletes[client], [2]uint64{clock, length})
}

// Bytes encodes the update. Clients are written in descending order, as Yjs does.
func (b *Builder) Bytes() []byte {
	var out encoder

	clients := make([]uint64, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i] > clients[j] })

	out.varUint(uint64(len(clients)))
	for _, c := range clients {
		w := b.clients[c]
		out.varUint(w.n)
		out.varUint(c)
		out.varUint(0)
		out.Write(w.enc.Bytes())
	}

	deleted := make([]uint64, 0, len(b.deletes))
	for c := range b.deletes {
		deleted = append(deleted, c)
	}
	sort.Slice(deleted, func(i, j int) bool { return deleted[i] < deleted[j] })

	out.varUint(uint64(len(deleted)))
	for _, c := range deleted {
		out.varUint(c)
		out.varUint(uint64(len(b.deletes[c])))
		for _, r := range b.deletes[c] {
			out.varUint(r[0])
			out.varUint(r[1])
		}
	}
	return out.Bytes()
}

// Base64 returns the update the way content blobs store it.
func (b *Builder) Base64() string {
	return base64.StdEncoding.EncodeToString(b.Bytes())
}

// Images returns an update whose "document-store" fragment holds one <img>
// per src, followed by a paragraph with the given text.
func Images(text string, srcs ...string) *Builder {
	b := NewBuilder()
	var prev *ID
	for _, src := range srcs {
		img := b.Element(1, Root("document-store"), prev, "img")
		b.Attr(1, img, nil, "src", src)
		prev = Ref(img)
	}
	if text != "" {
		p := b.Element(1, Root("document-store"), prev, "paragraph")
		t := b.XMLText(1, Under(p), nil)
		b.Text(1, Under(t), nil, nil, text)
	}
	return b
}
