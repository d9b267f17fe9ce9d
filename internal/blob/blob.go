// Package blob is the object store holding document content and attachments.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"docforest/internal/domain"
)

// ErrNotFound is returned for keys that do not exist.
var ErrNotFound = fmt.Errorf("blob %w", domain.ErrNotFound)

// ObjectInfo is what a HEAD request returns.
type ObjectInfo struct {
	Key         string
	ContentType string
	Size        int64
	Metadata    map[string]string
}

// Page is one page of a listing. Next is empty on the last page.
type Page struct {
	Keys []string
	Next string
}

// Store is a key/value object store with S3 semantics.
type Store interface {
	// List returns up to limit keys under prefix, starting after cursor.
	List(ctx context.Context, prefix, cursor string, limit int) (*Page, error)
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	// GetRange reads the inclusive byte range [start, end]. Short objects
	// return what they have.
	GetRange(ctx context.Context, key string, start, end int64) ([]byte, error)
	// CopyInPlace rewrites the object onto its own key with a new content type
	// and the given user metadata, replacing the old metadata.
	CopyInPlace(ctx context.Context, key, contentType string, metadata map[string]string) error
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// IsDirectory reports whether key is a directory marker.
func IsDirectory(key string) bool {
	return strings.HasSuffix(key, "/")
}

// ListAll pages through every key under prefix.
func ListAll(ctx context.Context, s Store, prefix string, pageSize int) ([]string, error) {
	var keys []string
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return keys, err
		}
		page, err := s.List(ctx, prefix, cursor, pageSize)
		if err != nil {
			return keys, err
		}
		keys = append(keys, page.Keys...)
		if page.Next == "" {
			return keys, nil
		}
		cursor = page.Next
	}
}

func cloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
