// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Preprocessor turns a file on disk into scannable text. Implementations
// are stateless and safe for concurrent use.
type Preprocessor interface {
	// Name returns the preprocessor identifier (e.g. "plaintext", "pdf").
	Name() string

	// CanProcess reports whether this preprocessor handles the given path,
	// decided by file extension.
	CanProcess(path string) bool

	// Process extracts the text content of the file.
	Process(path string) (string, error)
}

// Registry routes files to preprocessors by extension. The plain-text
// preprocessor acts as the fallback for anything no specialized
// preprocessor claims.
type Registry struct {
	preprocessors []Preprocessor
	fallback      Preprocessor
}

// NewRegistry creates a registry with the default preprocessor set: PDF
// text extraction, image EXIF metadata, and plain text as fallback.
func NewRegistry() *Registry {
	return &Registry{
		preprocessors: []Preprocessor{
			NewPDFPreprocessor(),
			NewImagePreprocessor(),
		},
		fallback: NewPlaintextPreprocessor(),
	}
}

// Register adds a preprocessor ahead of the fallback.
func (r *Registry) Register(p Preprocessor) {
	r.preprocessors = append(r.preprocessors, p)
}

// For returns the preprocessor that handles the given path.
func (r *Registry) For(path string) Preprocessor {
	for _, p := range r.preprocessors {
		if p.CanProcess(path) {
			return p
		}
	}
	return r.fallback
}

// Process extracts text from the file using the routed preprocessor.
func (r *Registry) Process(path string) (string, error) {
	p := r.For(path)
	text, err := p.Process(path)
	if err != nil {
		return "", fmt.Errorf("%s preprocessor: %w", p.Name(), err)
	}
	return text, nil
}

// extensionOf returns the lowercased file extension without the dot.
func extensionOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
