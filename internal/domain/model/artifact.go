package model

import (
	"path/filepath"
	"strings"
)

// Target is a reserved artifact location inside the storage root.
type Target struct {
	Path string
}

// Stem returns the path without its extension.
func (t Target) Stem() string {
	return strings.TrimSuffix(t.Path, filepath.Ext(t.Path))
}

// Ext returns the reserved extension without the leading dot.
func (t Target) Ext() string {
	return strings.TrimPrefix(filepath.Ext(t.Path), ".")
}

// WithExt returns a sibling path that shares the reserved unique stem.
func (t Target) WithExt(ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return t.Stem()
	}
	return t.Stem() + "." + ext
}

// ArtifactDescriptor describes what is about to be stored so the sink can name it.
type ArtifactDescriptor struct {
	Title string
	ID    string
	Ext   string
}
