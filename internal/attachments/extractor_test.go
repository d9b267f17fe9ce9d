package attachments

import (
	"context"
	"strings"
	"testing"

	"docforest/internal/crdt/crdttest"

	"github.com/stretchr/testify/assert"
)

const (
	uuidA = "0b1d3f2c-6c4e-4d87-9a51-3f1b0a4e7c21"
	uuidB = "5a8e2c40-1f0d-4b6a-8e3f-2d9c7b1a0e55"
	uuidC = "9c7e6a1b-2d3f-4e5a-8b9c-0d1e2f3a4b5c"
	uuidD = "1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"
	uuidE = "e3f1a2b4-c5d6-4e7f-8a9b-c0d1e2f3a4b5"
	uuidF = "f0e1d2c3-b4a5-4968-8776-655443322110"
)

func TestExtract_MediaURLs(t *testing.T) {
	b := crdttest.Images(
		"see /media/"+uuidE+"/attachments/"+uuidF+".png for details",
		"/media/"+uuidA+"/attachments/"+uuidB+".png",
		"http://host/"+uuidC+"/attachments/"+uuidD+".png",
	)

	got := New("/media/", nil).ExtractString(context.Background(), b.Base64())

	assert.Equal(t, []string{
		uuidA + "/attachments/" + uuidB + ".png",
		uuidE + "/attachments/" + uuidF + ".png",
	}, got)
}

func TestExtract_EditorDocument(t *testing.T) {
	key := func(url string) string { return strings.TrimPrefix(url, "/media/") }

	got := New("/media/", nil).ExtractString(context.Background(), crdttest.EditorBase64())

	// overwritten attribute values are gone
	assert.Equal(t, []string{
		key(crdttest.EditorLinkURL),
		key(crdttest.EditorFileURL),
		key(crdttest.EditorImageURL),
	}, got)
	assert.NotContains(t, got, key(crdttest.EditorReplacedURL))
}

func TestExtract_Deduplicates(t *testing.T) {
	src := "/media/" + uuidA + "/attachments/" + uuidB + "-unsafe.exe"
	b := crdttest.Images(src, src, src)

	got := New("/media/", nil).ExtractString(context.Background(), b.Base64())
	assert.Equal(t, []string{uuidA + "/attachments/" + uuidB + "-unsafe.exe"}, got)
}

func TestExtract_DecodeFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "not base64", content: "%%%not base64%%%"},
		{name: "truncated update", content: crdttest.Images("", "/media/"+uuidA+"/attachments/"+uuidB+".png").Base64()[:12]},
		{name: "not an update", content: "aGVsbG8gd29ybGQ="},
	}

	e := New("/media/", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ExtractString(context.Background(), tt.content)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	b := crdttest.Images("", "/media/"+uuidA+"/attachments/"+uuidB+".png", "/media/"+uuidC+"/attachments/"+uuidD+".png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, New("/media/", nil).ExtractString(ctx, b.Base64()))
}

func TestKeyFromValue(t *testing.T) {
	e := New("https://cdn.example.com/media/", nil)

	tests := []struct {
		value string
		want  string
		ok    bool
	}{
		{value: "https://cdn.example.com/media/" + uuidA + "/attachments/" + uuidB + ".pdf", want: uuidA + "/attachments/" + uuidB + ".pdf", ok: true},
		{value: "https://cdn.example.com/media/" + uuidA + "/attachments/" + uuidB + "-unsafe.html", want: uuidA + "/attachments/" + uuidB + "-unsafe.html", ok: true},
		{value: "https://cdn.example.com/media/" + uuidA + "/attachments/" + uuidB + ".png?x=1", ok: false},
		{value: "https://cdn.example.com/media/" + uuidA + "/attachments/" + uuidB + ".toolongextension", ok: false},
		{value: "https://cdn.example.com/media/" + uuidA + "/file", ok: false},
		{value: "https://cdnXexample.com/media/" + uuidA + "/attachments/" + uuidB + ".png", ok: false},
		{value: "prefix https://cdn.example.com/media/" + uuidA + "/attachments/" + uuidB + ".png", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := e.KeyFromValue(tt.value)
			if ok != tt.ok || got != tt.want {
				t.Errorf("KeyFromValue(%q) = %q, %v, want %q, %v", tt.value, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestKeysInText(t *testing.T) {
	e := New("/media/", nil)
	text := strings.Join([]string{
		"![a](/media/" + uuidA + "/attachments/" + uuidB + ".png)",
		"and /media/" + uuidC + "/attachments/" + uuidD + ".jpg.",
	}, " ")

	assert.Equal(t, []string{
		uuidA + "/attachments/" + uuidB + ".png",
		uuidC + "/attachments/" + uuidD + ".jpg",
	}, e.KeysInText(text))
}
