package memory

import (
	"context"
	"sort"

	models "docforest/internal/domain/models/docsystem"
	repos "docforest/internal/domain/repositories/docsystem"
)

type favoriteRepository struct {
	s *Store
}

func NewFavoriteRepository(s *Store) repos.FavoriteRepository {
	return &favoriteRepository{s: s}
}

func (r *favoriteRepository) Add(ctx context.Context, userID, documentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.s.liveDoc(documentID); err != nil {
		return err
	}
	favs, ok := r.s.favorites[userID]
	if !ok {
		favs = make(map[string]favorite)
		r.s.favorites[userID] = favs
	}
	if _, ok := favs[documentID]; ok {
		return nil
	}
	r.s.favSeq++
	favs[documentID] = favorite{createdAt: r.s.now(), seq: r.s.favSeq}
	return nil
}

func (r *favoriteRepository) Remove(ctx context.Context, userID, documentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.favorites[userID], documentID)
	return nil
}

func (r *favoriteRepository) IsFavorite(ctx context.Context, userID, documentID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.favorites[userID][documentID]
	return ok, nil
}

func (r *favoriteRepository) ListAccessible(ctx context.Context, userID string, opts models.ListOptions) (*models.DocumentPage, error) {
	opts.ApplyDefaults()

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type entry struct {
		doc *models.Document
		seq uint64
	}
	var entries []entry
	for id, fav := range r.s.favorites[userID] {
		d, ok := r.s.docs[id]
		if !ok || !live(d) || r.s.roleFor(userID, d.Path) == "" {
			continue
		}
		entries = append(entries, entry{doc: d, seq: fav.seq})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })

	page := &models.DocumentPage{Count: len(entries), Results: []models.Document{}}
	for i := opts.Offset; i < len(entries) && i < opts.Offset+opts.Limit; i++ {
		page.Results = append(page.Results, clone(entries[i].doc))
	}
	return page, nil
}
