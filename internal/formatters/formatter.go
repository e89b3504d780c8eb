// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"fmt"
	"sort"
	"strings"

	"lichen-scan/internal/core"
)

// Options configures formatter output.
type Options struct {
	// Verbose includes per-match detail in formats that support it.
	Verbose bool

	// NoColor disables colored output.
	NoColor bool

	// ShowSuppressed includes suppressed detections in the output.
	ShowSuppressed bool
}

// Formatter renders scan results in a specific output format.
type Formatter interface {
	// Format renders the per-file results.
	Format(results []core.FileDetections, options Options) (string, error)

	// Name returns the format name used on the command line.
	Name() string

	// Description returns a one-line description of the format.
	Description() string

	// FileExtension returns the recommended output file extension.
	FileExtension() string
}

// Registry holds registered formatters by name.
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{formatters: make(map[string]Formatter)}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(formatter Formatter) {
	r.formatters[formatter.Name()] = formatter
}

// Get retrieves a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	formatter, exists := r.formatters[name]
	return formatter, exists
}

// List returns the registered format names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry; formatter packages
// register themselves into it at init time.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(formatter Formatter) {
	DefaultRegistry.Register(formatter)
}

// Get retrieves a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List returns the format names in the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// Export renders results with the named formatter from the default
// registry.
func Export(format string, results []core.FileDetections, options Options) (string, error) {
	formatter, exists := Get(format)
	if !exists {
		return "", fmt.Errorf("unsupported format %q. Available formats: %s",
			format, strings.Join(List(), ", "))
	}
	return formatter.Format(results, options)
}

// Summary aggregates results for reporting.
type Summary struct {
	Files          int `json:"files"`
	FilesWithHits  int `json:"files_with_detections"`
	Detections     int `json:"detections"`
	Suppressed     int `json:"suppressed"`
	Errors         int `json:"errors"`
	UniqueLicenses int `json:"unique_licenses"`
}

// Summarize computes aggregate counts over per-file results.
func Summarize(results []core.FileDetections) Summary {
	s := Summary{Files: len(results)}
	licenses := make(map[string]struct{})
	for _, result := range results {
		if result.Error != "" {
			s.Errors++
		}
		if len(result.Detections) > 0 {
			s.FilesWithHits++
		}
		s.Detections += len(result.Detections)
		s.Suppressed += len(result.Suppressed)
		for _, det := range result.Detections {
			if det.LicenseExpression != "" {
				licenses[det.LicenseExpression] = struct{}{}
			}
		}
	}
	s.UniqueLicenses = len(licenses)
	return s
}
