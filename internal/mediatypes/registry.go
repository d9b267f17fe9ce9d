// Package mediatypes detects attachment media types from their leading bytes
// and knows which of them must be neutralised when served.
package mediatypes

import (
	"embed"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"gopkg.in/yaml.v3"
)

// SniffLen is how many leading bytes detection looks at.
const SniffLen = 1024

//go:embed config/mediatypes.yaml
var configFiles embed.FS

// MediaType is one registry entry.
type MediaType struct {
	// MIME is set from the YAML key during unmarshaling
	MIME      string `yaml:"-" json:"mime"`
	Extension string `yaml:"extension" json:"extension"`
	Unsafe    bool   `yaml:"unsafe" json:"unsafe"`
}

// Registry is the parsed media type table, ordered as in the file.
type Registry struct {
	Fallback string      `yaml:"fallback"`
	Types    []MediaType `yaml:"-"`
	byMIME   map[string]*MediaType
}

// UnmarshalYAML keeps the order of the types mapping.
func (r *Registry) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Fallback string               `yaml:"fallback"`
		Types    map[string]MediaType `yaml:"types"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	r.Fallback = raw.Fallback

	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value != "types" {
			continue
		}
		typesNode := node.Content[i+1]
		for j := 0; j < len(typesNode.Content); j += 2 {
			key := typesNode.Content[j].Value
			if t, ok := raw.Types[key]; ok {
				t.MIME = key
				r.Types = append(r.Types, t)
			}
		}
		break
	}
	return nil
}

// Load reads the embedded registry.
func Load() (*Registry, error) {
	data, err := configFiles.ReadFile("config/mediatypes.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read media type registry: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal media type registry: %w", err)
	}
	if r.Fallback == "" {
		r.Fallback = "application/octet-stream"
	}
	r.byMIME = make(map[string]*MediaType, len(r.Types))
	for i := range r.Types {
		r.byMIME[r.Types[i].MIME] = &r.Types[i]
	}
	return &r, nil
}

// Sniff returns the media type of data, without parameters.
func (r *Registry) Sniff(data []byte) string {
	if len(data) > SniffLen {
		data = data[:SniffLen]
	}
	detected := Essence(mimetype.Detect(data).String())
	if detected == "" {
		return r.Fallback
	}
	return detected
}

// IsUnsafe reports whether t must never be served inline.
func (r *Registry) IsUnsafe(t string) bool {
	entry, ok := r.byMIME[Essence(t)]
	return ok && entry.Unsafe
}

// Extension returns the file extension (without dot) for t.
func (r *Registry) Extension(t string) string {
	t = Essence(t)
	if entry, ok := r.byMIME[t]; ok && entry.Extension != "" {
		return entry.Extension
	}
	if m := mimetype.Lookup(t); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	return "bin"
}

// Essence strips parameters and lower-cases a media type.
func Essence(t string) string {
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	base, _, _ := strings.Cut(t, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
