package forest

import (
	"sort"
	"sync"

	"docforest/internal/mpath"
)

// LockSet names the advisory locks a write holds. Writes that change the
// root level hold it exclusively; every other write holds it shared plus an
// exclusive lock per touched tree, keyed by the tree's root label.
type LockSet struct {
	RootLevel bool
	Trees     []string
}

// WriteLocks returns the locks for a write landing under targetParent and
// touching the trees of paths. targetParent is "" for the root level.
func WriteLocks(codec *mpath.Codec, targetParent string, paths ...string) LockSet {
	if targetParent == "" {
		return LockSet{RootLevel: true}
	}

	seen := map[string]bool{codec.Root(targetParent): true}
	for _, p := range paths {
		if p != "" {
			seen[codec.Root(p)] = true
		}
	}

	trees := make([]string, 0, len(seen))
	for k := range seen {
		trees = append(trees, k)
	}
	sort.Strings(trees)
	return LockSet{Trees: trees}
}

// TreeLocks is the in-process counterpart of per-tree advisory locks.
type TreeLocks struct {
	rootLevel sync.RWMutex

	mu    sync.Mutex
	trees map[string]*treeLock
}

type treeLock struct {
	mu   sync.Mutex
	refs int
}

// NewTreeLocks creates an empty lock table.
func NewTreeLocks() *TreeLocks {
	return &TreeLocks{trees: make(map[string]*treeLock)}
}

// Acquire blocks until every lock in ls is held and returns the release func.
// Tree locks are taken in sorted order.
func (l *TreeLocks) Acquire(ls LockSet) func() {
	if ls.RootLevel {
		l.rootLevel.Lock()
		return l.rootLevel.Unlock
	}

	l.rootLevel.RLock()
	held := make([]*treeLock, 0, len(ls.Trees))
	for _, key := range ls.Trees {
		tl := l.ref(key)
		tl.mu.Lock()
		held = append(held, tl)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.unref(ls.Trees[i])
		}
		l.rootLevel.RUnlock()
	}
}

func (l *TreeLocks) ref(key string) *treeLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	tl, ok := l.trees[key]
	if !ok {
		tl = &treeLock{}
		l.trees[key] = tl
	}
	tl.refs++
	return tl
}

func (l *TreeLocks) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tl := l.trees[key]
	tl.refs--
	if tl.refs == 0 {
		delete(l.trees, key)
	}
}

// Covers reports whether holding ls also holds every lock in other.
func (ls LockSet) Covers(other LockSet) bool {
	if ls.RootLevel {
		return true
	}
	if other.RootLevel {
		return false
	}
	held := make(map[string]bool, len(ls.Trees))
	for _, t := range ls.Trees {
		held[t] = true
	}
	for _, t := range other.Trees {
		if !held[t] {
			return false
		}
	}
	return true
}

// MaxLockAttempts bounds how often a write re-resolves its targets after
// they moved to another tree while it waited for locks.
const MaxLockAttempts = 3
