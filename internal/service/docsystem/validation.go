package docsystem

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"docforest/internal/config"
	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	docsysSvc "docforest/internal/domain/services/docsystem"
)

func validPosition(value interface{}) error {
	p, _ := value.(models.Position)
	if !p.Valid() {
		return errors.New("must be one of first-child, last-child, first-sibling, last-sibling, left, right")
	}
	return nil
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	return domain.NewValidationError(err)
}

func validateCreate(req *docsysSvc.CreateDocumentRequest) error {
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Position, validation.By(validPosition)),
		validation.Field(&req.Reference, validation.Required.When(!req.Position.IsChild()).Error("is required for sibling positions")),
		validation.Field(&req.Title, validation.Length(0, config.MaxTitleLength)),
	))
}

func validateUpdate(req *docsysSvc.UpdateDocumentRequest) error {
	return validationError(validation.Validate(req.Title.Value,
		validation.Length(0, config.MaxTitleLength),
	))
}

func validateMove(req *docsysSvc.MoveDocumentRequest) error {
	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.Subject, validation.Required),
		validation.Field(&req.Reference, validation.Required),
		validation.Field(&req.Position, validation.By(validPosition)),
	))
}

func validateContent(req *docsysSvc.PutContentRequest) error {
	given := 0
	for _, v := range []*string{req.Content, req.Markdown, req.HTML} {
		if v != nil {
			given++
		}
	}
	switch given {
	case 0:
		return &domain.ValidationError{Message: "content, markdown or html is required"}
	case 1:
	default:
		return &domain.ValidationError{Message: "content, markdown and html are exclusive"}
	}

	return validationError(validation.ValidateStruct(req,
		validation.Field(&req.Content, validation.Length(0, config.MaxContentSize)),
		validation.Field(&req.Markdown, validation.Length(0, config.MaxMarkdownLength)),
		validation.Field(&req.HTML, validation.Length(0, config.MaxMarkdownLength)),
	))
}

func validateUpload(req *docsysSvc.UploadAttachmentRequest) error {
	if len(req.Data) == 0 {
		return &domain.ValidationError{Message: "file: cannot be empty"}
	}
	if len(req.Data) > config.MaxAttachmentSize {
		return &domain.ValidationError{Message: "file: exceeds the attachment size limit"}
	}
	return nil
}
