// Package memory is an in-process forest store. The server falls back to it
// when no database is configured, and tests use it as a fast reference.
package memory

import (
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	"docforest/internal/forest"
	"docforest/internal/mpath"
)

type favorite struct {
	createdAt time.Time
	seq       uint64
}

// Store holds documents, accesses and favorites behind one mutex. Writes that
// re-path documents additionally hold the per-tree locks.
type Store struct {
	codec  *mpath.Codec
	locks  *forest.TreeLocks
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	docs      map[string]*models.Document
	byPath    map[string]string
	rootSeq   uint64
	access    map[string]map[string]models.Access // document id -> user id
	favorites map[string]map[string]favorite      // user id -> document id
	favSeq    uint64
}

// NewStore creates an empty store.
func NewStore(codec *mpath.Codec, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		codec:     codec,
		locks:     forest.NewTreeLocks(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		docs:      make(map[string]*models.Document),
		byPath:    make(map[string]string),
		access:    make(map[string]map[string]models.Access),
		favorites: make(map[string]map[string]favorite),
	}
}

func live(d *models.Document) bool {
	return d.AncestorsDeletedAt == nil
}

func clone(d *models.Document) models.Document {
	c := *d
	c.Attachments = slices.Clone(d.Attachments)
	if c.Attachments == nil {
		c.Attachments = []string{}
	}
	return c
}

// liveDoc returns the document if it exists and is visible. Callers hold mu.
func (s *Store) liveDoc(id string) (*models.Document, error) {
	d, ok := s.docs[id]
	if !ok || !live(d) {
		return nil, &domain.NotFoundError{Resource: "document", ID: id}
	}
	return d, nil
}

// byPrefix returns the documents whose path starts with prefix, in path
// order, deleted or not. Callers hold mu.
func (s *Store) byPrefix(prefix string) []*models.Document {
	out := make([]*models.Document, 0)
	for p, id := range s.byPath {
		if len(p) >= len(prefix) && p[:len(prefix)] == prefix {
			out = append(out, s.docs[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// level loads the children of parent, deleted ones included, since their
// labels stay allocated. Callers hold mu.
func (s *Store) level(parent string) forest.Level {
	lvl := forest.Level{Parent: parent, Siblings: []string{}}
	depth := len(parent)/s.codec.StepLen + 1
	for p, id := range s.byPath {
		d := s.docs[id]
		if d.Depth == depth && len(p) > len(parent) && p[:len(parent)] == parent {
			lvl.Siblings = append(lvl.Siblings, p)
		}
	}
	sort.Strings(lvl.Siblings)

	if parent == "" {
		lvl.ChildSeq = s.rootSeq
	} else if id, ok := s.byPath[parent]; ok {
		lvl.ChildSeq = s.docs[id].ChildSeq
	}
	return lvl
}

// relabel re-paths a subtree. Callers hold mu.
func (s *Store) relabel(r forest.Relabel) {
	moved := s.byPrefix(r.From)
	for _, d := range moved {
		delete(s.byPath, d.Path)
	}
	for _, d := range moved {
		d.Path, _ = r.Apply(d.Path)
		d.Depth = len(d.Path) / s.codec.StepLen
		s.byPath[d.Path] = d.ID
	}
}

// setChildSeq records the high-water mark of parent. Callers hold mu.
func (s *Store) setChildSeq(parent string, seq uint64) {
	if parent == "" {
		s.rootSeq = max(s.rootSeq, seq)
		return
	}
	if id, ok := s.byPath[parent]; ok {
		d := s.docs[id]
		d.ChildSeq = max(d.ChildSeq, seq)
	}
}

// adjustNumChild changes the numchild of the document at path, if any.
// Callers hold mu.
func (s *Store) adjustNumChild(path string, delta int) {
	if path == "" {
		return
	}
	if id, ok := s.byPath[path]; ok {
		s.docs[id].NumChild += delta
	}
}

// roleFor returns the strongest role of userID along path. Callers hold mu.
func (s *Store) roleFor(userID, path string) models.Role {
	var roles []models.Role
	for _, p := range s.codec.Lineage(path) {
		id, ok := s.byPath[p]
		if !ok {
			continue
		}
		if a, ok := s.access[id][userID]; ok {
			roles = append(roles, a.Role)
		}
	}
	return models.Strongest(roles...)
}
