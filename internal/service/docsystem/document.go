package docsystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	models "docforest/internal/domain/models/docsystem"
	"docforest/internal/domain/repositories"
	docsysRepo "docforest/internal/domain/repositories/docsystem"
	docsysSvc "docforest/internal/domain/services/docsystem"
	"docforest/internal/forest"
	"docforest/internal/mpath"
)

// documentService implements the DocumentService interface
type documentService struct {
	docRepo   docsysRepo.DocumentRepository
	access    docsysRepo.AccessRepository
	guard     *accessGuard
	txManager repositories.TransactionManager
	codec     *mpath.Codec
	logger    *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo docsysRepo.DocumentRepository,
	accessRepo docsysRepo.AccessRepository,
	txManager repositories.TransactionManager,
	codec *mpath.Codec,
	logger *slog.Logger,
) docsysSvc.DocumentService {
	return &documentService{
		docRepo:   docRepo,
		access:    accessRepo,
		guard:     &accessGuard{docs: docRepo, access: accessRepo},
		txManager: txManager,
		codec:     codec,
		logger:    logger,
	}
}

// CreateDocument inserts a document and grants its creator ownership
func (s *documentService) CreateDocument(ctx context.Context, req *docsysSvc.CreateDocumentRequest) (doc *models.Document, err error) {
	start := time.Now()
	defer func() { observeWrite("insert", start, err) }()

	if err := validateCreate(req); err != nil {
		return nil, err
	}

	var referenceID *string
	if req.Reference != "" {
		reference, err := s.guard.load(ctx, req.UserID, req.Reference, models.RoleReader)
		if err != nil {
			return nil, err
		}
		if err := s.requireTarget(ctx, req.UserID, reference, req.Position); err != nil {
			return nil, err
		}
		referenceID = &reference.ID
	}

	doc = &models.Document{Title: req.Title, CreatorID: req.UserID}
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Insert(txCtx, doc, referenceID, req.Position); err != nil {
			return err
		}
		return s.access.Grant(txCtx, &models.Access{DocumentID: doc.ID, UserID: req.UserID, Role: models.RoleOwner})
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"path", doc.Path,
		"position", req.Position.String(),
		"user_id", req.UserID,
	)
	return doc, nil
}

// requireTarget checks that the user may add a child where pos relative to
// reference lands. New roots only need the reference to be visible.
func (s *documentService) requireTarget(ctx context.Context, userID string, reference *models.Document, pos models.Position) error {
	if pos.IsChild() {
		return s.guard.require(ctx, userID, reference, models.RoleEditor)
	}
	parent := s.codec.ParentOrRoot(reference.Path)
	if parent == "" {
		return nil
	}
	return s.guard.requireAt(ctx, userID, parent, models.RoleEditor)
}

// GetDocument retrieves a document the user can read
func (s *documentService) GetDocument(ctx context.Context, userID, documentID string) (*models.Document, error) {
	return s.guard.load(ctx, userID, documentID, models.RoleReader)
}

// UpdateDocument sets or clears the title
func (s *documentService) UpdateDocument(ctx context.Context, userID, documentID string, req *docsysSvc.UpdateDocumentRequest) (*models.Document, error) {
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	doc, err := s.guard.load(ctx, userID, documentID, models.RoleEditor)
	if err != nil {
		return nil, err
	}
	if !req.Title.Set {
		return doc, nil
	}

	doc, err = s.docRepo.UpdateTitle(ctx, documentID, req.Title.Value)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	s.logger.Info("document updated", "id", documentID, "untitled", doc.Title == nil)
	return doc, nil
}

// DeleteDocument soft-deletes a document the user owns
func (s *documentService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	if _, err := s.guard.load(ctx, userID, documentID, models.RoleOwner); err != nil {
		return err
	}
	if err := s.docRepo.SoftDelete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.logger.Info("document deleted", "id", documentID, "user_id", userID)
	return nil
}

// MoveDocument moves the subject's subtree next to or under the reference
func (s *documentService) MoveDocument(ctx context.Context, userID string, req *docsysSvc.MoveDocumentRequest) (doc *models.Document, err error) {
	start := time.Now()
	defer func() { observeWrite("move", start, err) }()

	if err := validateMove(req); err != nil {
		return nil, err
	}

	subject, err := s.guard.load(ctx, userID, req.Subject, models.RoleEditor)
	if err != nil {
		return nil, err
	}
	reference, err := s.guard.load(ctx, userID, req.Reference, models.RoleReader)
	if err != nil {
		return nil, err
	}
	// structural errors win over the target role check
	if _, err := forest.TargetParent(s.codec, subject, reference, req.Position); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, userID, reference, req.Position); err != nil {
		return nil, err
	}

	doc, err = s.docRepo.Move(ctx, req.Subject, req.Reference, req.Position)
	if err != nil {
		return nil, fmt.Errorf("move document: %w", err)
	}
	return doc, nil
}
