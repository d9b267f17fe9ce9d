package docsystem

import (
	"context"

	"docforest/internal/domain/models/docsystem"
)

// TreeService serves read-only views of the forest
type TreeService interface {
	// Roots lists the top-most documents the user can access: granted
	// documents that do not sit under another granted document
	Roots(ctx context.Context, userID string) ([]docsystem.Document, error)

	// Children lists direct children in sibling order
	Children(ctx context.Context, userID, documentID string) ([]docsystem.Document, error)

	// Descendants lists strict descendants in path order, filtered and paginated
	Descendants(ctx context.Context, userID, documentID string, filters docsystem.DescendantFilters, opts docsystem.ListOptions) (*docsystem.DocumentPage, error)

	// Ancestors lists strict ancestors the user can see, root first
	Ancestors(ctx context.Context, userID, documentID string) ([]docsystem.Document, error)

	// Tree returns the document's subtree nested under it
	Tree(ctx context.Context, userID, documentID string) (*docsystem.TreeNode, error)
}
