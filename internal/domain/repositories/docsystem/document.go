package docsystem

import (
	"context"

	"docforest/internal/domain/models/docsystem"
)

// DocumentRepository is the forest store. It owns path, depth, numchild and
// child_seq and keeps them consistent across every mutation. Reads never
// return soft-deleted documents or documents under a soft-deleted ancestor.
type DocumentRepository interface {
	// GetByID retrieves a live document by ID
	GetByID(ctx context.Context, id string) (*docsystem.Document, error)

	// Children lists the direct children of a document in sibling order
	Children(ctx context.Context, id string) ([]docsystem.Document, error)

	// Descendants lists the strict descendants of a document in path order.
	// Unset filter fields do not filter.
	Descendants(ctx context.Context, id string, filters docsystem.DescendantFilters, opts docsystem.ListOptions) (*docsystem.DocumentPage, error)

	// Ancestors lists the strict ancestors of a document, root first
	Ancestors(ctx context.Context, id string) ([]docsystem.Document, error)

	// Subtree returns a document followed by all its descendants in path order
	Subtree(ctx context.Context, id string) ([]docsystem.Document, error)

	// Insert places doc at pos relative to referenceID. A nil reference with a
	// child position creates a new root. Path, depth and timestamps are filled in.
	Insert(ctx context.Context, doc *docsystem.Document, referenceID *string, pos docsystem.Position) error

	// Move re-paths the subject's subtree to pos relative to referenceID
	Move(ctx context.Context, subjectID, referenceID string, pos docsystem.Position) (*docsystem.Document, error)

	// SetContent records the content blob and its attachment keys in one update
	SetContent(ctx context.Context, id, contentRef string, attachments []string) (*docsystem.Document, error)

	// UpdateTitle sets (or clears, with nil) the title
	UpdateTitle(ctx context.Context, id string, title *string) (*docsystem.Document, error)

	// SoftDelete hides a document and its subtree without touching paths
	SoftDelete(ctx context.Context, id string) error

	// HardDelete removes a document's subtree and decrements its parent's numchild
	HardDelete(ctx context.Context, id string) error

	// ListIDs pages through all document IDs, deleted or not, in ascending order
	ListIDs(ctx context.Context, after string, limit int) ([]string, error)

	// CanonicalizeTitles clears placeholder titles and returns how many changed
	CanonicalizeTitles(ctx context.Context) (int, error)
}
