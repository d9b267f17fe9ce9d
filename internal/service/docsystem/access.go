package docsystem

import (
	"context"
	"fmt"

	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	docsysRepo "docforest/internal/domain/repositories/docsystem"
)

// accessGuard resolves documents on behalf of a user. A user without any
// role on a document gets NotFound, so existence does not leak.
type accessGuard struct {
	docs   docsysRepo.DocumentRepository
	access docsysRepo.AccessRepository
}

// load returns the document when userID holds at least min on it.
func (g *accessGuard) load(ctx context.Context, userID, documentID string, min models.Role) (*models.Document, error) {
	doc, err := g.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := g.require(ctx, userID, doc, min); err != nil {
		return nil, err
	}
	return doc, nil
}

func (g *accessGuard) require(ctx context.Context, userID string, doc *models.Document, min models.Role) error {
	role, err := g.access.RoleFor(ctx, userID, doc)
	if err != nil {
		return fmt.Errorf("resolve role: %w", err)
	}
	if role == "" {
		return &domain.NotFoundError{Resource: "document", ID: doc.ID}
	}
	if !role.AtLeast(min) {
		return fmt.Errorf("%w: %s role required on document %s", domain.ErrForbidden, min, doc.ID)
	}
	return nil
}

// requireAt checks the role userID holds at path, the way it would apply to
// a new child of the document at path.
func (g *accessGuard) requireAt(ctx context.Context, userID, path string, min models.Role) error {
	role, err := g.access.RoleFor(ctx, userID, &models.Document{Path: path})
	if err != nil {
		return fmt.Errorf("resolve role: %w", err)
	}
	if !role.AtLeast(min) {
		return fmt.Errorf("%w: %s role required on the target parent", domain.ErrForbidden, min)
	}
	return nil
}
