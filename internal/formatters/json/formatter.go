// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"
	"fmt"

	"lichen-scan/internal/core"
	"lichen-scan/internal/formatters"
)

// Formatter renders results as indented JSON for programmatic use.
type Formatter struct{}

// NewFormatter creates a JSON formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "json"
}

func (f *Formatter) Description() string {
	return "Structured JSON output for programmatic consumption"
}

func (f *Formatter) FileExtension() string {
	return ".json"
}

type response struct {
	Files   []core.FileDetections `json:"files"`
	Summary formatters.Summary    `json:"summary"`
}

func (f *Formatter) Format(results []core.FileDetections, options formatters.Options) (string, error) {
	files := make([]core.FileDetections, len(results))
	copy(files, results)
	if !options.ShowSuppressed {
		for i := range files {
			files[i].Suppressed = nil
		}
	}
	out := response{
		Files:   files,
		Summary: formatters.Summarize(results),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("formatting JSON: %w", err)
	}
	return string(data), nil
}

func init() {
	formatters.Register(NewFormatter())
}
