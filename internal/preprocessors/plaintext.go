// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"bytes"
	"fmt"
	"os"
)

const (
	// maxPlaintextSize caps how much of a file is read for scanning.
	maxPlaintextSize = 50 * 1024 * 1024

	// binarySniffLen is how many leading bytes are inspected to decide
	// whether a file is binary.
	binarySniffLen = 8192
)

// PlaintextPreprocessor reads a file as-is. Binary files yield no text
// rather than an error so a directory scan does not abort on them.
type PlaintextPreprocessor struct{}

// NewPlaintextPreprocessor creates the fallback text preprocessor.
func NewPlaintextPreprocessor() *PlaintextPreprocessor {
	return &PlaintextPreprocessor{}
}

func (p *PlaintextPreprocessor) Name() string {
	return "plaintext"
}

// CanProcess always returns true; plaintext is the fallback.
func (p *PlaintextPreprocessor) CanProcess(path string) bool {
	return true
}

func (p *PlaintextPreprocessor) Process(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > maxPlaintextSize {
		return "", fmt.Errorf("file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if isBinary(data) {
		return "", nil
	}
	return string(data), nil
}

// isBinary reports whether the leading bytes contain a NUL, the usual
// marker for non-text content.
func isBinary(data []byte) bool {
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	return bytes.IndexByte(sniff, 0) >= 0
}
