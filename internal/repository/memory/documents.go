package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	repos "docforest/internal/domain/repositories/docsystem"
	"docforest/internal/forest"
)

type documentRepository struct {
	s *Store
}

// NewDocumentRepository returns the forest store view of s.
func NewDocumentRepository(s *Store) repos.DocumentRepository {
	return &documentRepository{s: s}
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, err := r.s.liveDoc(id)
	if err != nil {
		return nil, err
	}
	out := clone(d)
	return &out, nil
}

func (r *documentRepository) Children(ctx context.Context, id string) ([]models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, err := r.s.liveDoc(id)
	if err != nil {
		return nil, err
	}
	out := make([]models.Document, 0, d.NumChild)
	for _, c := range r.s.byPrefix(d.Path) {
		if c.Depth == d.Depth+1 && live(c) {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

func (r *documentRepository) Descendants(ctx context.Context, id string, filters models.DescendantFilters, opts models.ListOptions) (*models.DocumentPage, error) {
	opts.ApplyDefaults()

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, err := r.s.liveDoc(id)
	if err != nil {
		return nil, err
	}

	var matches []*models.Document
	for _, c := range r.s.byPrefix(d.Path) {
		if c.ID == d.ID || !live(c) || !forest.TitleMatches(c.Title, filters.Title) {
			continue
		}
		matches = append(matches, c)
	}

	page := &models.DocumentPage{Count: len(matches), Results: []models.Document{}}
	for i := opts.Offset; i < len(matches) && i < opts.Offset+opts.Limit; i++ {
		page.Results = append(page.Results, clone(matches[i]))
	}
	return page, nil
}

func (r *documentRepository) Ancestors(ctx context.Context, id string) ([]models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, err := r.s.liveDoc(id)
	if err != nil {
		return nil, err
	}
	lineage := r.s.codec.Lineage(d.Path)
	out := make([]models.Document, 0, len(lineage))
	for _, p := range lineage[:len(lineage)-1] {
		if aid, ok := r.s.byPath[p]; ok {
			out = append(out, clone(r.s.docs[aid]))
		}
	}
	return out, nil
}

func (r *documentRepository) Subtree(ctx context.Context, id string) ([]models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, err := r.s.liveDoc(id)
	if err != nil {
		return nil, err
	}
	var out []models.Document
	for _, c := range r.s.byPrefix(d.Path) {
		if live(c) {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

func (r *documentRepository) Insert(ctx context.Context, doc *models.Document, referenceID *string, pos models.Position) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	for attempt := 0; attempt < forest.MaxLockAttempts; attempt++ {
		ls, err := r.insertLocks(referenceID, pos)
		if err != nil {
			return err
		}

		release := r.s.locks.Acquire(ls)
		retry, err := r.insertLocked(doc, referenceID, pos, ls)
		release()
		if !retry {
			return err
		}
	}
	return &domain.ConflictError{Message: "target tree kept changing, retry the insert", ResourceType: "document", ResourceID: doc.ID}
}

func (r *documentRepository) insertTarget(referenceID *string, pos models.Position) (*models.Document, string, error) {
	var reference *models.Document
	if referenceID != nil {
		d, err := r.s.liveDoc(*referenceID)
		if err != nil {
			return nil, "", err
		}
		reference = d
	}
	parent, err := forest.TargetParent(r.s.codec, nil, reference, pos)
	return reference, parent, err
}

func (r *documentRepository) insertLocks(referenceID *string, pos models.Position) (forest.LockSet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, parent, err := r.insertTarget(referenceID, pos)
	if err != nil {
		return forest.LockSet{}, err
	}
	return forest.WriteLocks(r.s.codec, parent), nil
}

func (r *documentRepository) insertLocked(doc *models.Document, referenceID *string, pos models.Position, held forest.LockSet) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.docs[doc.ID]; exists {
		return false, &domain.ConflictError{Message: "document already exists", ResourceType: "document", ResourceID: doc.ID}
	}

	reference, parent, err := r.insertTarget(referenceID, pos)
	if err != nil {
		return false, err
	}
	if !held.Covers(forest.WriteLocks(r.s.codec, parent)) {
		return true, nil
	}

	refPath := ""
	if reference != nil {
		refPath = reference.Path
	}
	plan, err := forest.PlanPlacement(r.s.codec, "", refPath, pos, r.s.level(parent))
	if err != nil {
		return false, err
	}

	now := r.s.now()
	for _, rl := range plan.Relabels {
		r.s.relabel(rl)
	}

	d := &models.Document{
		ID:          doc.ID,
		Path:        plan.Path,
		Depth:       len(plan.Path) / r.s.codec.StepLen,
		Title:       forest.CanonicalTitle(doc.Title),
		ContentRef:  doc.ContentRef,
		Attachments: slices.Clone(doc.Attachments),
		CreatorID:   doc.CreatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.s.docs[d.ID] = d
	r.s.byPath[d.Path] = d.ID
	r.s.adjustNumChild(parent, 1)
	r.s.setChildSeq(parent, plan.ChildSeq)

	*doc = clone(d)
	return false, nil
}

func (r *documentRepository) Move(ctx context.Context, subjectID, referenceID string, pos models.Position) (*models.Document, error) {
	for attempt := 0; attempt < forest.MaxLockAttempts; attempt++ {
		ls, err := r.moveLocks(subjectID, referenceID, pos)
		if err != nil {
			return nil, err
		}

		release := r.s.locks.Acquire(ls)
		doc, retry, err := r.moveLocked(subjectID, referenceID, pos, ls)
		release()
		if !retry {
			return doc, err
		}
	}
	return nil, &domain.ConflictError{Message: "target tree kept changing, retry the move", ResourceType: "document", ResourceID: subjectID}
}

func (r *documentRepository) moveTarget(subjectID, referenceID string, pos models.Position) (*models.Document, *models.Document, string, error) {
	subject, err := r.s.liveDoc(subjectID)
	if err != nil {
		return nil, nil, "", err
	}
	reference, err := r.s.liveDoc(referenceID)
	if err != nil {
		return nil, nil, "", err
	}
	parent, err := forest.TargetParent(r.s.codec, subject, reference, pos)
	return subject, reference, parent, err
}

func (r *documentRepository) moveLocks(subjectID, referenceID string, pos models.Position) (forest.LockSet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	subject, _, parent, err := r.moveTarget(subjectID, referenceID, pos)
	if err != nil {
		return forest.LockSet{}, err
	}
	return forest.WriteLocks(r.s.codec, parent, subject.Path), nil
}

func (r *documentRepository) moveLocked(subjectID, referenceID string, pos models.Position, held forest.LockSet) (*models.Document, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	subject, reference, parent, err := r.moveTarget(subjectID, referenceID, pos)
	if err != nil {
		return nil, false, err
	}
	if !held.Covers(forest.WriteLocks(r.s.codec, parent, subject.Path)) {
		return nil, true, nil
	}

	oldParent := r.s.codec.ParentOrRoot(subject.Path)
	oldParentID := r.s.byPath[oldParent]

	plan, err := forest.PlanPlacement(r.s.codec, subject.Path, reference.Path, pos, r.s.level(parent))
	if err != nil {
		return nil, false, err
	}
	if plan.NoOp {
		out := clone(subject)
		return &out, false, nil
	}

	now := r.s.now()
	for _, rl := range plan.Relabels {
		r.s.relabel(rl)
	}
	r.s.relabel(forest.Relabel{From: plan.SubjectFrom, To: plan.Path})
	subject.UpdatedAt = now

	if oldParent != parent {
		if oldParentID != "" {
			r.s.docs[oldParentID].NumChild--
		}
		r.s.adjustNumChild(parent, 1)
	}
	r.s.setChildSeq(parent, plan.ChildSeq)

	r.s.logger.Debug("document moved", "id", subjectID, "from", plan.SubjectFrom, "to", plan.Path, "relabels", len(plan.Relabels))
	out := clone(subject)
	return &out, false, nil
}

func (r *documentRepository) SetContent(ctx context.Context, id, contentRef string, attachments []string) (*models.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, err := r.s.liveDoc(id)
	if err != nil {
		return nil, err
	}
	d.ContentRef = &contentRef
	d.Attachments = slices.Clone(attachments)
	d.UpdatedAt = r.s.now()
	out := clone(d)
	return &out, nil
}

func (r *documentRepository) UpdateTitle(ctx context.Context, id string, title *string) (*models.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, err := r.s.liveDoc(id)
	if err != nil {
		return nil, err
	}
	d.Title = forest.CanonicalTitle(title)
	d.UpdatedAt = r.s.now()
	out := clone(d)
	return &out, nil
}

// subtreeLocks locks the tree holding id.
func (r *documentRepository) subtreeLocks(id string) (forest.LockSet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, err := r.s.liveDoc(id)
	if err != nil {
		return forest.LockSet{}, err
	}
	return forest.WriteLocks(r.s.codec, d.Path), nil
}

func (r *documentRepository) SoftDelete(ctx context.Context, id string) error {
	ls, err := r.subtreeLocks(id)
	if err != nil {
		return err
	}
	release := r.s.locks.Acquire(ls)
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, err := r.s.liveDoc(id)
	if err != nil {
		return err
	}
	now := r.s.now()
	d.DeletedAt = &now
	for _, c := range r.s.byPrefix(d.Path) {
		if c.AncestorsDeletedAt == nil {
			c.AncestorsDeletedAt = &now
		}
	}
	return nil
}

func (r *documentRepository) HardDelete(ctx context.Context, id string) error {
	r.s.mu.RLock()
	d, ok := r.s.docs[id]
	var ls forest.LockSet
	if ok {
		ls = forest.WriteLocks(r.s.codec, d.Path)
	}
	r.s.mu.RUnlock()
	if !ok {
		return &domain.NotFoundError{Resource: "document", ID: id}
	}

	release := r.s.locks.Acquire(ls)
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok = r.s.docs[id]
	if !ok {
		return &domain.NotFoundError{Resource: "document", ID: id}
	}
	for _, c := range r.s.byPrefix(d.Path) {
		delete(r.s.byPath, c.Path)
		delete(r.s.docs, c.ID)
		delete(r.s.access, c.ID)
		for _, favs := range r.s.favorites {
			delete(favs, c.ID)
		}
	}
	r.s.adjustNumChild(r.s.codec.ParentOrRoot(d.Path), -1)
	return nil
}

func (r *documentRepository) ListIDs(ctx context.Context, after string, limit int) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]string, 0, len(r.s.docs))
	for id := range r.s.docs {
		if id > after {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *documentRepository) CanonicalizeTitles(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	changed := 0
	for _, d := range r.s.docs {
		if d.Title != nil && forest.CanonicalTitle(d.Title) == nil {
			d.Title = nil
			changed++
		}
	}
	return changed, nil
}
