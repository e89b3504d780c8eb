// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"time"

	"lichen-scan/internal/detection"
	"lichen-scan/internal/observability"
	"lichen-scan/internal/preprocessors"
	"lichen-scan/internal/suppressions"
)

// FileDetections holds everything detected in one file: the active
// detections, anything a suppression rule removed, and the error if the
// file could not be processed.
type FileDetections struct {
	Path       string                             `json:"path"`
	Detections []*detection.LicenseDetection      `json:"detections,omitempty"`
	Suppressed []suppressions.SuppressedDetection `json:"suppressed,omitempty"`
	Error      string                             `json:"error,omitempty"`
	Duration   time.Duration                      `json:"-"`
}

// Scanner ties the pipeline together for file scanning: preprocess the
// file into text, run detection, apply suppressions. Safe for concurrent
// use; all members are read-only after construction.
type Scanner struct {
	detector     *detection.Detector
	preprocessor *preprocessors.Registry
	suppressions *suppressions.Manager
	observer     *observability.StandardObserver
	minScore     float64
}

// NewScanner assembles a scanner. The suppression manager and observer
// may be nil; a zero minScore keeps every detection.
func NewScanner(detector *detection.Detector, pre *preprocessors.Registry, sm *suppressions.Manager, observer *observability.StandardObserver, minScore float64) *Scanner {
	if pre == nil {
		pre = preprocessors.NewRegistry()
	}
	return &Scanner{
		detector:     detector,
		preprocessor: pre,
		suppressions: sm,
		observer:     observer,
		minScore:     minScore,
	}
}

// ScanFile runs the full pipeline on one file. Errors are recorded on
// the result rather than returned so a directory scan reports per-file
// failures without aborting.
func (s *Scanner) ScanFile(path string) FileDetections {
	start := time.Now()
	result := FileDetections{Path: path}

	var done func(bool, map[string]interface{})
	if s.observer != nil {
		done = s.observer.StartTiming("scanner", "scan_file", path)
	}

	text, err := s.preprocessor.Process(path)
	if err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(start)
		if done != nil {
			done(false, map[string]interface{}{"error": err.Error()})
		}
		return result
	}

	detections := s.detector.Detect(text)
	detections = detection.PostProcess(detections, s.minScore)
	for _, det := range detections {
		if det.FileRegion != nil {
			det.FileRegion.Path = path
		}
	}

	if s.suppressions != nil {
		result.Detections, result.Suppressed = s.suppressions.Apply(path, detections)
	} else {
		result.Detections = detections
	}

	result.Duration = time.Since(start)
	if done != nil {
		done(true, map[string]interface{}{
			"detections": len(result.Detections),
			"suppressed": len(result.Suppressed),
		})
	}
	return result
}

// ScanText runs detection over text that is already in memory, for
// callers that do their own I/O.
func (s *Scanner) ScanText(text string) []*detection.LicenseDetection {
	return detection.PostProcess(s.detector.Detect(text), s.minScore)
}
