package memory

import (
	"context"
	"sort"

	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	repos "docforest/internal/domain/repositories/docsystem"
)

type accessRepository struct {
	s *Store
}

func NewAccessRepository(s *Store) repos.AccessRepository {
	return &accessRepository{s: s}
}

func (r *accessRepository) Grant(ctx context.Context, access *models.Access) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.docs[access.DocumentID]; !ok {
		return &domain.NotFoundError{Resource: "document", ID: access.DocumentID}
	}
	if access.CreatedAt.IsZero() {
		access.CreatedAt = r.s.now()
	}
	users, ok := r.s.access[access.DocumentID]
	if !ok {
		users = make(map[string]models.Access)
		r.s.access[access.DocumentID] = users
	}
	users[access.UserID] = *access
	return nil
}

func (r *accessRepository) Revoke(ctx context.Context, documentID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.access[documentID], userID)
	return nil
}

func (r *accessRepository) ListGranted(ctx context.Context, userID string) ([]models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	granted := make([]models.Document, 0)
	for docID, users := range r.s.access {
		if _, ok := users[userID]; !ok {
			continue
		}
		if d, err := r.s.liveDoc(docID); err == nil {
			granted = append(granted, clone(d))
		}
	}
	sort.Slice(granted, func(i, j int) bool { return granted[i].Path < granted[j].Path })
	return granted, nil
}

func (r *accessRepository) RoleFor(ctx context.Context, userID string, doc *models.Document) (models.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.roleFor(userID, doc.Path), nil
}
