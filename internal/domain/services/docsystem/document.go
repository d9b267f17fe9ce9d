package docsystem

import (
	"context"

	"docforest/internal/domain/models/docsystem"
)

// DocumentService handles document lifecycle and placement
type DocumentService interface {
	// CreateDocument inserts a document relative to a reference, or as a new
	// root when the reference is empty. The creator becomes its owner.
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*docsystem.Document, error)

	// GetDocument retrieves a document the user can read
	GetDocument(ctx context.Context, userID, documentID string) (*docsystem.Document, error)

	// UpdateDocument applies a partial update
	UpdateDocument(ctx context.Context, userID, documentID string, req *UpdateDocumentRequest) (*docsystem.Document, error)

	// DeleteDocument soft-deletes a document and hides its subtree
	DeleteDocument(ctx context.Context, userID, documentID string) error

	// MoveDocument moves a subtree to a position relative to a reference
	MoveDocument(ctx context.Context, userID string, req *MoveDocumentRequest) (*docsystem.Document, error)
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	UserID    string             `json:"-"` // Set by handler from auth context
	Reference string             `json:"reference,omitempty"`
	Position  docsystem.Position `json:"position"`
	Title     *string            `json:"title"`
}

// UpdateDocumentRequest represents a partial document update. Title is a
// tri-state: absent leaves it, null clears it, a string sets it.
type UpdateDocumentRequest struct {
	Title OptionalString
}

// MoveDocumentRequest moves Subject to Position relative to Reference
type MoveDocumentRequest struct {
	Subject   string             `json:"subject"`
	Reference string             `json:"reference"`
	Position  docsystem.Position `json:"position"`
}

// OptionalString distinguishes an absent field from an explicit null.
// Handlers map it from httputil.OptionalString.
type OptionalString struct {
	Set   bool
	Value *string
}
