package docsystem

import (
	"time"
)

// Document is a node of the document forest. Path, Depth and NumChild are
// owned by the store and change only through insert, move and delete.
type Document struct {
	ID          string    `json:"id" db:"id"`
	Path        string    `json:"path" db:"path"`
	Depth       int       `json:"depth" db:"depth"`
	NumChild    int       `json:"numchild" db:"numchild"`
	Title       *string   `json:"title" db:"title"` // NULL = untitled
	ContentRef  *string   `json:"-" db:"content_ref"`
	Attachments []string  `json:"attachments" db:"attachments"`
	CreatorID   string    `json:"creator_id,omitempty" db:"creator_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	DeletedAt          *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	AncestorsDeletedAt *time.Time `json:"-" db:"ancestors_deleted_at"`

	// ChildSeq is the largest child label ever allocated under this document.
	ChildSeq uint64 `json:"-" db:"child_seq"`
}

// IsRoot reports whether the document has no parent.
func (d *Document) IsRoot() bool {
	return d.Depth == 1
}

// ContentKey is the blob key holding the CRDT update of a document.
func ContentKey(documentID string) string {
	return documentID + "/file"
}

// AttachmentPrefix is the blob key prefix of a document's attachments.
func AttachmentPrefix(documentID string) string {
	return documentID + "/attachments/"
}
