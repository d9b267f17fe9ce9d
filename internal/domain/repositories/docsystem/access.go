package docsystem

import (
	"context"

	"docforest/internal/domain/models/docsystem"
)

// AccessRepository stores user roles on documents. A role on a document
// applies to its whole subtree.
type AccessRepository interface {
	// Grant creates or replaces a user's role on a document
	Grant(ctx context.Context, access *docsystem.Access) error

	// Revoke removes a user's role on a document
	Revoke(ctx context.Context, documentID, userID string) error

	// RoleFor returns the strongest role the user holds on doc or any of its
	// ancestors, or "" when there is none
	RoleFor(ctx context.Context, userID string, doc *docsystem.Document) (docsystem.Role, error)

	// ListGranted lists the live documents the user holds a role on directly,
	// in path order
	ListGranted(ctx context.Context, userID string) ([]docsystem.Document, error)
}

// FavoriteRepository stores per-user favorite marks.
type FavoriteRepository interface {
	// Add marks a document as favorite (idempotent)
	Add(ctx context.Context, userID, documentID string) error

	// Remove unmarks a document (idempotent)
	Remove(ctx context.Context, userID, documentID string) error

	// IsFavorite reports whether the user marked the document
	IsFavorite(ctx context.Context, userID, documentID string) (bool, error)

	// ListAccessible lists the user's favorites that are live and still
	// accessible to the user, most recently marked first
	ListAccessible(ctx context.Context, userID string, opts docsystem.ListOptions) (*docsystem.DocumentPage, error)
}
