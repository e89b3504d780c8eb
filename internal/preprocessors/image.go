// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"fmt"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// imageExtensions lists the formats goexif can decode.
var imageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"tif":  true,
	"tiff": true,
}

// licensingFields are the EXIF tags where licensing statements live.
var licensingFields = []exif.FieldName{
	exif.Copyright,
	exif.Artist,
	exif.ImageDescription,
}

// ImagePreprocessor surfaces licensing statements embedded in image EXIF
// metadata (Copyright, Artist, ImageDescription) as scannable text lines.
type ImagePreprocessor struct{}

// NewImagePreprocessor creates an EXIF metadata preprocessor.
func NewImagePreprocessor() *ImagePreprocessor {
	return &ImagePreprocessor{}
}

func (p *ImagePreprocessor) Name() string {
	return "image"
}

func (p *ImagePreprocessor) CanProcess(path string) bool {
	return imageExtensions[extensionOf(path)]
}

func (p *ImagePreprocessor) Process(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// No EXIF block means nothing to scan, not a failure.
		return "", nil
	}

	var lines []string
	for _, field := range licensingFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		value, err := tag.StringVal()
		if err != nil {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" {
			lines = append(lines, value)
		}
	}
	return strings.Join(lines, "\n"), nil
}
