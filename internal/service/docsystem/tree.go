package docsystem

import (
	"context"
	"fmt"
	"log/slog"

	models "docforest/internal/domain/models/docsystem"
	docsysRepo "docforest/internal/domain/repositories/docsystem"
	docsysSvc "docforest/internal/domain/services/docsystem"
	"docforest/internal/forest"
)

// treeService implements the TreeService interface
type treeService struct {
	docRepo docsysRepo.DocumentRepository
	access  docsysRepo.AccessRepository
	guard   *accessGuard
	logger  *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(
	docRepo docsysRepo.DocumentRepository,
	accessRepo docsysRepo.AccessRepository,
	logger *slog.Logger,
) docsysSvc.TreeService {
	return &treeService{
		docRepo: docRepo,
		access:  accessRepo,
		guard:   &accessGuard{docs: docRepo, access: accessRepo},
		logger:  logger,
	}
}

func (s *treeService) Roots(ctx context.Context, userID string) ([]models.Document, error) {
	granted, err := s.access.ListGranted(ctx, userID)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]models.Document, len(granted))
	paths := make([]string, 0, len(granted))
	for _, d := range granted {
		byPath[d.Path] = d
		paths = append(paths, d.Path)
	}

	roots := forest.FilterRootPaths(paths, false)
	out := make([]models.Document, 0, len(roots))
	for _, p := range roots {
		out = append(out, byPath[p])
	}
	return out, nil
}

func (s *treeService) Children(ctx context.Context, userID, documentID string) ([]models.Document, error) {
	if _, err := s.guard.load(ctx, userID, documentID, models.RoleReader); err != nil {
		return nil, err
	}
	return s.docRepo.Children(ctx, documentID)
}

func (s *treeService) Descendants(ctx context.Context, userID, documentID string, filters models.DescendantFilters, opts models.ListOptions) (*models.DocumentPage, error) {
	if _, err := s.guard.load(ctx, userID, documentID, models.RoleReader); err != nil {
		return nil, err
	}
	return s.docRepo.Descendants(ctx, documentID, filters, opts)
}

// Ancestors omits ancestors above the highest level the user has a role on.
func (s *treeService) Ancestors(ctx context.Context, userID, documentID string) ([]models.Document, error) {
	if _, err := s.guard.load(ctx, userID, documentID, models.RoleReader); err != nil {
		return nil, err
	}
	ancestors, err := s.docRepo.Ancestors(ctx, documentID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Document, 0, len(ancestors))
	for i := range ancestors {
		role, err := s.access.RoleFor(ctx, userID, &ancestors[i])
		if err != nil {
			return nil, fmt.Errorf("resolve role: %w", err)
		}
		if role != "" {
			visible = append(visible, ancestors[i])
		}
	}
	return visible, nil
}

func (s *treeService) Tree(ctx context.Context, userID, documentID string) (*models.TreeNode, error) {
	if _, err := s.guard.load(ctx, userID, documentID, models.RoleReader); err != nil {
		return nil, err
	}
	docs, err := s.docRepo.Subtree(ctx, documentID)
	if err != nil {
		return nil, err
	}

	tree, err := forest.NestTree(docs)
	if err != nil {
		s.logger.Error("subtree does not nest", "id", documentID, "documents", len(docs), "error", err)
		return nil, err
	}
	return tree, nil
}
