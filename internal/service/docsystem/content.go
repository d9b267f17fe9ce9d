package docsystem

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"docforest/internal/attachments"
	"docforest/internal/blob"
	"docforest/internal/convert"
	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	docsysRepo "docforest/internal/domain/repositories/docsystem"
	docsysSvc "docforest/internal/domain/services/docsystem"
	"docforest/internal/mediatypes"
)

// contentUploadType is the type every content blob is written with; the
// reconciler corrects it from the stored bytes later.
const contentUploadType = "application/octet-stream"

type contentService struct {
	docRepo   docsysRepo.DocumentRepository
	guard     *accessGuard
	store     blob.Store
	extractor *attachments.Extractor
	types     *mediatypes.Registry
	converter convert.Converter
	html      *convert.HTMLToMarkdown
	logger    *slog.Logger
}

// NewContentService creates a new content service. converter may be nil,
// in which case markdown and HTML uploads report the conversion service
// unavailable.
func NewContentService(
	docRepo docsysRepo.DocumentRepository,
	accessRepo docsysRepo.AccessRepository,
	store blob.Store,
	extractor *attachments.Extractor,
	types *mediatypes.Registry,
	converter convert.Converter,
	logger *slog.Logger,
) docsysSvc.ContentService {
	return &contentService{
		docRepo:   docRepo,
		guard:     &accessGuard{docs: docRepo, access: accessRepo},
		store:     store,
		extractor: extractor,
		types:     types,
		converter: converter,
		html:      convert.NewHTMLToMarkdown(),
		logger:    logger,
	}
}

// PutContent stores the update under the document's content key, then
// records the key and the attachments the update references.
func (s *contentService) PutContent(ctx context.Context, userID, documentID string, req *docsysSvc.PutContentRequest) (*models.Document, error) {
	if err := validateContent(req); err != nil {
		return nil, err
	}
	if _, err := s.guard.load(ctx, userID, documentID, models.RoleEditor); err != nil {
		return nil, err
	}

	encoded, err := s.encodedContent(ctx, req)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: content is not valid base64: %v", domain.ErrDecodeFailed, err)
	}

	key := models.ContentKey(documentID)
	if err := s.store.Put(ctx, key, raw, contentUploadType, map[string]string{"owner": userID}); err != nil {
		return nil, &domain.ServiceUnavailableError{Service: "blob store", Err: err}
	}

	keys := s.extractor.ExtractUpdate(ctx, bytes.NewReader(raw))
	doc, err := s.docRepo.SetContent(ctx, documentID, key, keys)
	if err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}

	s.logger.Info("content stored",
		"id", documentID,
		"bytes", len(raw),
		"attachments", len(keys),
		"markdown", req.Markdown != nil,
		"html", req.HTML != nil,
	)
	return doc, nil
}

func (s *contentService) encodedContent(ctx context.Context, req *docsysSvc.PutContentRequest) (string, error) {
	if req.Content != nil {
		return *req.Content, nil
	}
	if s.converter == nil {
		return "", &domain.ServiceUnavailableError{Service: "conversion service", Err: fmt.Errorf("not configured")}
	}
	if req.HTML != nil {
		markdown, err := s.html.Convert(*req.HTML)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
		}
		return s.converter.Markdown(ctx, markdown)
	}
	return s.converter.Markdown(ctx, *req.Markdown)
}

// UploadAttachment stores a file under the document's attachment prefix.
// Types that must not be served inline get an "-unsafe" key suffix.
func (s *contentService) UploadAttachment(ctx context.Context, userID, documentID string, req *docsysSvc.UploadAttachmentRequest) (*docsysSvc.Attachment, error) {
	if err := validateUpload(req); err != nil {
		return nil, err
	}
	if _, err := s.guard.load(ctx, userID, documentID, models.RoleEditor); err != nil {
		return nil, err
	}

	contentType := s.types.Sniff(req.Data)
	unsafe := s.types.IsUnsafe(contentType)
	name := uuid.New().String()
	if unsafe {
		name += "-unsafe"
	}
	key := models.AttachmentPrefix(documentID) + name + "." + s.types.Extension(contentType)

	if err := s.store.Put(ctx, key, req.Data, contentType, map[string]string{"owner": userID}); err != nil {
		return nil, &domain.ServiceUnavailableError{Service: "blob store", Err: err}
	}

	s.logger.Info("attachment uploaded",
		"id", documentID,
		"key", key,
		"content_type", contentType,
		"unsafe", unsafe,
		"filename", req.Filename,
	)
	return &docsysSvc.Attachment{
		Key:         key,
		URL:         s.extractor.URL(key),
		ContentType: contentType,
		Size:        len(req.Data),
		Unsafe:      unsafe,
	}, nil
}
