package crdt

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

// info byte flags
const (
	flagParentSub   = 0x20
	flagRightOrigin = 0x40
	flagOrigin      = 0x80
)

type clientRefs struct {
	refs []*item
	i    int
}

// ApplyUpdate replays a Yjs update (format v1) into an empty document.
// The update is read incrementally from r.
func ApplyUpdate(r io.Reader) (doc *Doc, err error) {
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, fmt.Errorf("corrupt update: %v", p)
		}
	}()

	dec := newDecoder(r)
	refs, err := dec.readStructRefs()
	if err != nil {
		return nil, fmt.Errorf("read structs: %w", err)
	}

	doc = newDoc()
	if err := doc.integrate(refs); err != nil {
		return nil, fmt.Errorf("integrate: %w", err)
	}
	if err := doc.readDeleteSet(dec); err != nil {
		return nil, fmt.Errorf("read delete set: %w", err)
	}
	return doc, nil
}

func (d *decoder) readStructRefs() (map[uint64]*clientRefs, error) {
	numClients, err := d.readVarUint()
	if err != nil {
		return nil, err
	}

	refs := make(map[uint64]*clientRefs)
	for i := uint64(0); i < numClients; i++ {
		numStructs, err := d.readVarUint()
		if err != nil {
			return nil, err
		}
		client, err := d.readVarUint()
		if err != nil {
			return nil, err
		}
		clock, err := d.readVarUint()
		if err != nil {
			return nil, err
		}

		cr := refs[client]
		if cr == nil {
			cr = &clientRefs{}
			refs[client] = cr
		}
		for j := uint64(0); j < numStructs; j++ {
			info, err := d.readUint8()
			if err != nil {
				return nil, err
			}

			id := ID{Client: client, Clock: clock}
			var it *item
			switch info & 0x1f {
			case refGC, refSkip:
				n, err := d.readVarUint()
				if err != nil {
					return nil, err
				}
				it = &item{id: id, length: n, gc: info&0x1f == refGC, skip: info&0x1f == refSkip}
			default:
				if it, err = d.readItem(id, info); err != nil {
					return nil, err
				}
			}
			if it.length == 0 {
				return nil, fmt.Errorf("empty struct at %d:%d", client, clock)
			}
			cr.refs = append(cr.refs, it)
			clock += it.length
		}
	}
	return refs, nil
}

func (d *decoder) readItem(id ID, info uint8) (*item, error) {
	it := &item{id: id}

	if info&flagOrigin != 0 {
		o, err := d.readID()
		if err != nil {
			return nil, err
		}
		it.origin = &o
	}
	if info&flagRightOrigin != 0 {
		ro, err := d.readID()
		if err != nil {
			return nil, err
		}
		it.rightOrigin = &ro
	}

	// parent info is only written when it cannot be copied from a neighbour
	if info&(flagOrigin|flagRightOrigin) == 0 {
		isRoot, err := d.readVarUint()
		if err != nil {
			return nil, err
		}
		if isRoot == 1 {
			name, err := d.readString()
			if err != nil {
				return nil, err
			}
			it.parentRoot = &name
		} else {
			pid, err := d.readID()
			if err != nil {
				return nil, err
			}
			it.parentID = &pid
		}
		if info&flagParentSub != 0 {
			sub, err := d.readString()
			if err != nil {
				return nil, err
			}
			it.parentSub = &sub
		}
	}

	c, err := d.readContent(info)
	if err != nil {
		return nil, err
	}
	it.content = c
	it.length = c.length()
	return it, nil
}

// integrate applies struct refs in causal order. Structs whose dependencies
// are absent from the update are dropped.
func (d *Doc) integrate(refs map[uint64]*clientRefs) error {
	clients := make([]uint64, 0, len(refs))
	for c := range refs {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i] < clients[j] })

	next := func() *clientRefs {
		for len(clients) > 0 {
			cr := refs[clients[len(clients)-1]]
			if cr.i < len(cr.refs) {
				return cr
			}
			clients = clients[:len(clients)-1]
		}
		return nil
	}

	cur := next()
	if cur == nil {
		return nil
	}
	head := cur.refs[cur.i]
	cur.i++

	var stack []*item
	state := make(map[uint64]uint64)
	for {
		if !head.skip {
			local, ok := state[head.id.Client]
			if !ok {
				local = d.state(head.id.Client)
				state[head.id.Client] = local
			}

			switch {
			case local < head.id.Clock:
				// a struct from the same client is missing
				stack = stack[:0]
			default:
				missing, ok, err := d.missing(head)
				if err != nil {
					return err
				}
				if ok {
					stack = append(stack, head)
					if cr := refs[missing]; cr != nil && cr.i < len(cr.refs) {
						head = cr.refs[cr.i]
						cr.i++
						continue
					}
					stack = stack[:0]
				} else if offset := local - head.id.Clock; offset < head.length {
					if err := d.integrateItem(head, offset); err != nil {
						return err
					}
					state[head.id.Client] = head.id.Clock + head.length
				}
			}
		}

		switch {
		case len(stack) > 0:
			head = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		case cur != nil && cur.i < len(cur.refs):
			head = cur.refs[cur.i]
			cur.i++
		default:
			if cur = next(); cur == nil {
				return nil
			}
			head = cur.refs[cur.i]
			cur.i++
		}
	}
}

// missing reports a client whose structs must be integrated first. When none
// are missing it resolves the item's neighbours and parent.
func (d *Doc) missing(it *item) (uint64, bool, error) {
	if it.gc {
		return 0, false, nil
	}
	for _, dep := range []*ID{it.origin, it.rightOrigin, it.parentID} {
		if dep != nil && dep.Client != it.id.Client && dep.Clock >= d.state(dep.Client) {
			return dep.Client, true, nil
		}
	}

	if it.origin != nil {
		left, err := d.getItemCleanEnd(*it.origin)
		if err != nil {
			return 0, false, err
		}
		it.left = left
		o := left.lastID()
		it.origin = &o
	}
	if it.rightOrigin != nil {
		right, err := d.getItemCleanStart(*it.rightOrigin)
		if err != nil {
			return 0, false, err
		}
		it.right = right
		ro := right.id
		it.rightOrigin = &ro
	}

	switch {
	case (it.left != nil && it.left.gc) || (it.right != nil && it.right.gc):
		it.parent = nil
	case it.parentRoot != nil:
		it.parent = d.root(*it.parentRoot)
	case it.parentID != nil:
		p, err := d.getItem(*it.parentID)
		if err != nil {
			return 0, false, err
		}
		if ct, ok := p.content.(*contentType); ok && !p.gc {
			it.parent = ct.t
		} else {
			it.parent = nil
		}
	case it.left != nil:
		it.parent, it.parentSub = it.left.parent, it.left.parentSub
	case it.right != nil:
		it.parent, it.parentSub = it.right.parent, it.right.parentSub
	}
	return 0, false, nil
}

func sameID(a, b *ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (d *Doc) integrateItem(it *item, offset uint64) error {
	if it.gc {
		it.id.Clock += offset
		it.length -= offset
		return d.addStruct(it)
	}

	if offset > 0 {
		it.id.Clock += offset
		left, err := d.getItemCleanEnd(ID{Client: it.id.Client, Clock: it.id.Clock - 1})
		if err != nil {
			return err
		}
		it.left = left
		o := left.lastID()
		it.origin = &o
		it.content = it.content.splice(offset)
		it.length -= offset
	}

	p := it.parent
	if p == nil {
		return d.addStruct(&item{id: it.id, length: it.length, gc: true})
	}

	if (it.left == nil && (it.right == nil || it.right.left != nil)) || (it.left != nil && it.left.right != it.right) {
		left := it.left
		var o *item
		switch {
		case left != nil:
			o = left.right
		case it.parentSub != nil:
			o = p.mapping[*it.parentSub]
			for o != nil && o.left != nil {
				o = o.left
			}
		default:
			o = p.start
		}

		conflicting := make(map[*item]bool)
		beforeOrigin := make(map[*item]bool)
		for o != nil && o != it.right {
			beforeOrigin[o] = true
			conflicting[o] = true
			if sameID(it.origin, o.origin) {
				if o.id.Client < it.id.Client {
					left = o
					clear(conflicting)
				} else if sameID(it.rightOrigin, o.rightOrigin) {
					break
				}
			} else if o.origin != nil {
				oo, err := d.getItem(*o.origin)
				if err != nil || !beforeOrigin[oo] {
					break
				}
				if !conflicting[oo] {
					left = o
					clear(conflicting)
				}
			} else {
				break
			}
			o = o.right
		}
		it.left = left
	}

	if it.left != nil {
		it.right = it.left.right
		it.left.right = it
	} else {
		var r *item
		if it.parentSub != nil {
			r = p.mapping[*it.parentSub]
			for r != nil && r.left != nil {
				r = r.left
			}
		} else {
			r = p.start
			p.start = it
		}
		it.right = r
	}

	if it.right != nil {
		it.right.left = it
	} else if it.parentSub != nil {
		p.mapping[*it.parentSub] = it
		if it.left != nil {
			it.left.deleted = true
		}
	}

	if err := d.addStruct(it); err != nil {
		return err
	}

	switch c := it.content.(type) {
	case *contentType:
		c.t.item = it
	case *contentDeleted:
		it.deleted = true
	}
	if (p.item != nil && p.item.deleted) || (it.parentSub != nil && it.right != nil) {
		it.deleted = true
	}
	return nil
}

func (d *Doc) readDeleteSet(dec *decoder) error {
	numClients, err := dec.readVarUint()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	for i := uint64(0); i < numClients; i++ {
		client, err := dec.readVarUint()
		if err != nil {
			return err
		}
		n, err := dec.readVarUint()
		if err != nil {
			return err
		}
		for j := uint64(0); j < n; j++ {
			clock, err := dec.readVarUint()
			if err != nil {
				return err
			}
			length, err := dec.readVarUint()
			if err != nil {
				return err
			}
			d.deleteRange(client, clock, length)
		}
	}
	return nil
}

func (d *Doc) deleteRange(client, clock, length uint64) {
	if clock >= d.state(client) {
		return
	}
	i, err := d.findIndex(ID{Client: client, Clock: clock})
	if err != nil {
		return
	}

	end := clock + length
	if it := d.clients[client][i]; !it.deleted && !it.gc && it.id.Clock < clock {
		d.split(client, i, clock-it.id.Clock)
		i++
	}
	for ; i < len(d.clients[client]); i++ {
		it := d.clients[client][i]
		if it.id.Clock >= end {
			break
		}
		if it.deleted || it.gc {
			continue
		}
		if end < it.id.Clock+it.length {
			d.split(client, i, end-it.id.Clock)
		}
		it.deleted = true
	}
}
