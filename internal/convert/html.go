package convert

import (
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
)

// HTMLToMarkdown turns pasted or imported HTML into markdown the conversion
// service accepts. Scripts, event handlers and javascript: URLs are stripped
// before conversion.
//
// Safe for concurrent use.
type HTMLToMarkdown struct {
	policy    *bluemonday.Policy
	converter *md.Converter
}

func NewHTMLToMarkdown() *HTMLToMarkdown {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()

	return &HTMLToMarkdown{
		policy:    policy,
		converter: md.NewConverter("", true, nil),
	}
}

func (h *HTMLToMarkdown) Convert(html string) (string, error) {
	markdown, err := h.converter.ConvertString(h.policy.Sanitize(html))
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return markdown, nil
}
