package docsystem

import (
	"context"
	"log/slog"

	models "docforest/internal/domain/models/docsystem"
	docsysRepo "docforest/internal/domain/repositories/docsystem"
	docsysSvc "docforest/internal/domain/services/docsystem"
)

type favoriteService struct {
	favRepo docsysRepo.FavoriteRepository
	guard   *accessGuard
	logger  *slog.Logger
}

// NewFavoriteService creates a new favorite service
func NewFavoriteService(
	docRepo docsysRepo.DocumentRepository,
	accessRepo docsysRepo.AccessRepository,
	favRepo docsysRepo.FavoriteRepository,
	logger *slog.Logger,
) docsysSvc.FavoriteService {
	return &favoriteService{
		favRepo: favRepo,
		guard:   &accessGuard{docs: docRepo, access: accessRepo},
		logger:  logger,
	}
}

func (s *favoriteService) AddFavorite(ctx context.Context, userID, documentID string) error {
	if _, err := s.guard.load(ctx, userID, documentID, models.RoleReader); err != nil {
		return err
	}
	return s.favRepo.Add(ctx, userID, documentID)
}

// RemoveFavorite works without access, so revoked documents can be unmarked.
func (s *favoriteService) RemoveFavorite(ctx context.Context, userID, documentID string) error {
	return s.favRepo.Remove(ctx, userID, documentID)
}

func (s *favoriteService) ListFavorites(ctx context.Context, userID string, opts models.ListOptions) (*models.DocumentPage, error) {
	return s.favRepo.ListAccessible(ctx, userID, opts)
}
