package config

const (
	// MaxTitleLength is the maximum length of a document title.
	MaxTitleLength = 255

	// MaxContentSize caps a content write, base64 text included.
	MaxContentSize = 32 << 20

	// MaxAttachmentSize caps a single attachment upload.
	MaxAttachmentSize = 50 << 20

	// MaxMarkdownLength caps markdown sent to the conversion service.
	MaxMarkdownLength = 2 << 20
)
