// Package attachments finds the blob keys a document's collaborative content
// refers to.
package attachments

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"docforest/internal/crdt"
)

// Fragment is the root XML fragment the editor writes document content into.
const Fragment = "document-store"

const (
	uuidPattern = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`
	keyPattern  = `(?P<pk>` + uuidPattern + `)/(?P<attachment>attachments/` + uuidPattern + `(?:-unsafe)?\.[a-zA-Z0-9]{1,10})`
)

// Extractor matches media URLs rooted at a configured MEDIA_URL.
type Extractor struct {
	mediaURL string
	value    *regexp.Regexp // whole attribute values
	text     *regexp.Regexp // anywhere inside text
	logger   *slog.Logger
}

// New builds an extractor for media URLs starting with mediaURL, e.g. "/media/".
func New(mediaURL string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := regexp.QuoteMeta(mediaURL)
	return &Extractor{
		mediaURL: mediaURL,
		value:    regexp.MustCompile(`^` + prefix + keyPattern + `$`),
		text:     regexp.MustCompile(prefix + keyPattern),
		logger:   logger,
	}
}

// URL returns the media URL serving key.
func (e *Extractor) URL(key string) string {
	return e.mediaURL + key
}

// KeyFromValue returns the blob key of an attribute value, if it is a media URL.
func (e *Extractor) KeyFromValue(v string) (string, bool) {
	m := e.value.FindStringSubmatch(v)
	if m == nil {
		return "", false
	}
	return m[1] + "/" + m[2], true
}

// KeysInText returns the blob keys of every media URL embedded in s.
func (e *Extractor) KeysInText(s string) []string {
	var keys []string
	for _, m := range e.text.FindAllStringSubmatch(s, -1) {
		keys = append(keys, m[1]+"/"+m[2])
	}
	return keys
}

// Extract reads a base64 encoded update from r and returns the attachment
// keys it references, in first-encounter order without duplicates. Decode
// failures yield an empty list.
func (e *Extractor) Extract(ctx context.Context, r io.Reader) []string {
	return e.ExtractUpdate(ctx, base64.NewDecoder(base64.StdEncoding, r))
}

// ExtractString is Extract over an in-memory base64 string.
func (e *Extractor) ExtractString(ctx context.Context, content string) []string {
	return e.Extract(ctx, strings.NewReader(content))
}

// ExtractUpdate is Extract for an update that is already binary.
func (e *Extractor) ExtractUpdate(ctx context.Context, r io.Reader) []string {
	keys := []string{}

	doc, err := crdt.ApplyUpdate(r)
	if err != nil {
		e.logger.Debug("content not decodable, no attachments extracted", "error", err)
		return keys
	}

	seen := make(map[string]bool)
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	err = crdt.Walk(ctx, doc.XMLFragment(Fragment), func(n *crdt.Node) error {
		for _, a := range n.Attrs {
			if key, ok := e.KeyFromValue(a.Value); ok {
				add(key)
			}
		}
		if n.Kind == crdt.TextNode {
			for _, key := range e.KeysInText(n.Text) {
				add(key)
			}
		}
		return nil
	})
	if err != nil {
		e.logger.Debug("attachment walk stopped", "error", err)
		return []string{}
	}
	return keys
}
