// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// maxPDFPages limits extraction on very large documents; license notices
// live in the leading pages.
const maxPDFPages = 50

// PDFPreprocessor extracts plain text from PDF documents so embedded
// license statements become scannable. The document is validated with
// pdfcpu before extraction to reject malformed files early.
type PDFPreprocessor struct {
	conf *model.Configuration
}

// NewPDFPreprocessor creates a PDF text preprocessor.
func NewPDFPreprocessor() *PDFPreprocessor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFPreprocessor{conf: conf}
}

func (p *PDFPreprocessor) Name() string {
	return "pdf"
}

func (p *PDFPreprocessor) CanProcess(path string) bool {
	return extensionOf(path) == "pdf"
}

func (p *PDFPreprocessor) Process(path string) (string, error) {
	if err := api.ValidateFile(path, p.conf); err != nil {
		return "", fmt.Errorf("invalid PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return "", fmt.Errorf("page count: %w", err)
	}
	if pageCount > maxPDFPages {
		pageCount = maxPDFPages
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
