// Package crdt reconstructs the state of a Yjs document from a binary update
// and projects its XML fragments. It only reads updates; it never produces them.
package crdt

import (
	"errors"
	"fmt"
	"sort"
)

var errMissingStruct = errors.New("referenced struct not in store")

// ID identifies the clock-th unit inserted by a client.
type ID struct {
	Client uint64
	Clock  uint64
}

type item struct {
	id     ID
	length uint64
	gc     bool
	skip   bool

	origin      *ID
	rightOrigin *ID
	left, right *item

	parent     *ytype
	parentID   *ID    // unresolved parent item
	parentRoot *string // root type name, when the parent is a root type
	parentSub  *string

	content content
	deleted bool
}

func (it *item) lastID() ID {
	return ID{Client: it.id.Client, Clock: it.id.Clock + it.length - 1}
}

// ytype is a shared type: a sequence (start) plus a key-value map.
type ytype struct {
	ref     int
	name    string
	item    *item
	start   *item
	mapping map[string]*item
}

func newType(ref int) *ytype {
	return &ytype{ref: ref, mapping: make(map[string]*item)}
}

// Doc is the read-only state reconstructed from an update.
type Doc struct {
	clients map[uint64][]*item
	roots   map[string]*ytype
}

func newDoc() *Doc {
	return &Doc{
		clients: make(map[uint64][]*item),
		roots:   make(map[string]*ytype),
	}
}

func (d *Doc) root(name string) *ytype {
	t, ok := d.roots[name]
	if !ok {
		t = newType(-1)
		d.roots[name] = t
	}
	return t
}

func (d *Doc) state(client uint64) uint64 {
	list := d.clients[client]
	if len(list) == 0 {
		return 0
	}
	last := list[len(list)-1]
	return last.id.Clock + last.length
}

func (d *Doc) findIndex(id ID) (int, error) {
	list := d.clients[id.Client]
	i := sort.Search(len(list), func(i int) bool {
		return id.Clock < list[i].id.Clock+list[i].length
	})
	if i == len(list) || list[i].id.Clock > id.Clock {
		return 0, fmt.Errorf("%d:%d: %w", id.Client, id.Clock, errMissingStruct)
	}
	return i, nil
}

func (d *Doc) addStruct(it *item) error {
	if s := d.state(it.id.Client); s != it.id.Clock {
		return fmt.Errorf("struct %d:%d out of order, state is %d", it.id.Client, it.id.Clock, s)
	}
	d.clients[it.id.Client] = append(d.clients[it.id.Client], it)
	return nil
}

func (d *Doc) getItem(id ID) (*item, error) {
	i, err := d.findIndex(id)
	if err != nil {
		return nil, err
	}
	return d.clients[id.Client][i], nil
}

// getItemCleanStart returns the struct starting exactly at id, splitting if needed.
func (d *Doc) getItemCleanStart(id ID) (*item, error) {
	i, err := d.findIndex(id)
	if err != nil {
		return nil, err
	}
	it := d.clients[id.Client][i]
	if it.id.Clock < id.Clock && !it.gc {
		return d.split(id.Client, i, id.Clock-it.id.Clock), nil
	}
	return it, nil
}

// getItemCleanEnd returns the struct ending exactly at id, splitting if needed.
func (d *Doc) getItemCleanEnd(id ID) (*item, error) {
	i, err := d.findIndex(id)
	if err != nil {
		return nil, err
	}
	it := d.clients[id.Client][i]
	if id.Clock != it.id.Clock+it.length-1 && !it.gc {
		d.split(id.Client, i, id.Clock-it.id.Clock+1)
	}
	return it, nil
}

// split cuts the client's struct at index i after diff units and returns the
// right half.
func (d *Doc) split(client uint64, i int, diff uint64) *item {
	left := d.clients[client][i]
	right := &item{
		id:          ID{Client: left.id.Client, Clock: left.id.Clock + diff},
		length:      left.length - diff,
		origin:      &ID{Client: left.id.Client, Clock: left.id.Clock + diff - 1},
		left:        left,
		right:       left.right,
		rightOrigin: left.rightOrigin,
		parent:      left.parent,
		parentSub:   left.parentSub,
		content:     left.content.splice(diff),
		deleted:     left.deleted,
	}
	left.length = diff
	left.right = right
	if right.right != nil {
		right.right.left = right
	}
	if right.parentSub != nil && right.right == nil && right.parent != nil {
		right.parent.mapping[*right.parentSub] = right
	}

	list := append(d.clients[client], nil)
	copy(list[i+2:], list[i+1:])
	list[i+1] = right
	d.clients[client] = list
	return right
}
