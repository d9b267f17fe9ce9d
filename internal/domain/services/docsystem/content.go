package docsystem

import (
	"context"

	"docforest/internal/domain/models/docsystem"
)

// ContentService writes document content and attachments to the blob store
type ContentService interface {
	// PutContent stores a CRDT update (base64), or markdown or HTML converted to one,
	// then records the content ref and extracted attachment keys together
	PutContent(ctx context.Context, userID, documentID string, req *PutContentRequest) (*docsystem.Document, error)

	// UploadAttachment stores a file under the document's attachment prefix
	UploadAttachment(ctx context.Context, userID, documentID string, req *UploadAttachmentRequest) (*Attachment, error)
}

// PutContentRequest carries exactly one of Content, Markdown or HTML
type PutContentRequest struct {
	Content  *string `json:"content,omitempty"`  // base64 CRDT update
	Markdown *string `json:"markdown,omitempty"` // converted by the conversion service
	HTML     *string `json:"html,omitempty"`     // sanitized, turned into markdown, then converted
}

// UploadAttachmentRequest is a file read from a multipart upload
type UploadAttachmentRequest struct {
	Filename string
	Data     []byte
}

// Attachment describes a stored attachment
type Attachment struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Unsafe      bool   `json:"unsafe"`
}
