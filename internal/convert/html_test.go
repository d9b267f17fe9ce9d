package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLToMarkdown(t *testing.T) {
	h := NewHTMLToMarkdown()

	out, err := h.Convert(`<h1>Plan</h1><p>Ship <strong>today</strong></p>`)
	require.NoError(t, err)
	assert.Contains(t, out, "# Plan")
	assert.Contains(t, out, "**today**")
}

func TestHTMLToMarkdown_StripsScripts(t *testing.T) {
	h := NewHTMLToMarkdown()

	out, err := h.Convert(`<p onclick="steal()">hello</p><script>alert(1)</script>`)
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "steal")
}
