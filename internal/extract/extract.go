// Package extract turns uploaded document bytes into plain text.
//
// Extractors are registered by filename extension. Formats without a
// registered extractor fall back to plain text decoding, which matches how
// unknown uploads are treated at ingest time.
package extract

import (
	"path/filepath"
	"strings"
	"sync"
)

// Extractor converts raw document bytes into text.
type Extractor interface {
	// Extract returns the document text. filename is the original upload
	// name and is used for diagnostics only.
	Extract(filename string, data []byte) (string, error)

	// Extensions returns the filename extensions this extractor handles,
	// lowercase with leading dot (e.g. ".txt").
	Extensions() []string
}

// Registry maps filename extensions to extractors.
type Registry struct {
	mu       sync.RWMutex
	byExt    map[string]Extractor
	fallback Extractor
}

// NewRegistry creates a registry with the plain text extractor registered for
// .txt and .md and installed as the fallback for unknown extensions.
func NewRegistry() *Registry {
	r := &Registry{
		byExt: make(map[string]Extractor),
	}
	plain := NewPlainText()
	r.Register(plain)
	r.fallback = plain
	return r
}

// Register adds an extractor for its declared extensions, replacing any
// previous registration.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// For returns the extractor for the given filename. Unknown extensions get
// the plain text fallback.
func (r *Registry) For(filename string) Extractor {
	ext := strings.ToLower(filepath.Ext(filename))

	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byExt[ext]; ok {
		return e
	}
	return r.fallback
}

// Extract runs the appropriate extractor for filename.
func (r *Registry) Extract(filename string, data []byte) (string, error) {
	return r.For(filename).Extract(filename, data)
}
