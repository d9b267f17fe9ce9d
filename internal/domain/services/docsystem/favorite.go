package docsystem

import (
	"context"

	"docforest/internal/domain/models/docsystem"
)

// FavoriteService manages per-user favorite marks
type FavoriteService interface {
	// AddFavorite marks a document the user can read
	AddFavorite(ctx context.Context, userID, documentID string) error

	// RemoveFavorite unmarks a document
	RemoveFavorite(ctx context.Context, userID, documentID string) error

	// ListFavorites lists favorites the user still has access to
	ListFavorites(ctx context.Context, userID string, opts docsystem.ListOptions) (*docsystem.DocumentPage, error)
}
