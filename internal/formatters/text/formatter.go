// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"lichen-scan/internal/core"
	"lichen-scan/internal/detection"
	"lichen-scan/internal/formatters"
)

// Formatter renders results as human-readable colored text.
type Formatter struct {
	header  *color.Color
	license *color.Color
	good    *color.Color
	warn    *color.Color
	bad     *color.Color
	dim     *color.Color
}

// NewFormatter creates a text formatter.
func NewFormatter() *Formatter {
	return &Formatter{
		header:  color.New(color.FgWhite, color.Bold),
		license: color.New(color.FgCyan),
		good:    color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		bad:     color.New(color.FgRed),
		dim:     color.New(color.Faint),
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(results []core.FileDetections, options formatters.Options) (string, error) {
	if options.NoColor {
		color.NoColor = true
	}

	var sb strings.Builder
	for _, result := range results {
		if result.Error == "" && len(result.Detections) == 0 &&
			(!options.ShowSuppressed || len(result.Suppressed) == 0) {
			continue
		}

		sb.WriteString(f.header.Sprint(result.Path))
		sb.WriteString("\n")

		if result.Error != "" {
			fmt.Fprintf(&sb, "  %s %s\n", f.bad.Sprint("error:"), result.Error)
		}

		for _, det := range result.Detections {
			region := ""
			if det.FileRegion != nil {
				region = fmt.Sprintf(" lines %d-%d", det.FileRegion.StartLine, det.FileRegion.EndLine)
			}
			expr := det.LicenseExpressionSPDX
			if expr == "" {
				expr = det.LicenseExpression
			}
			score := detection.Score(det.Matches)
			fmt.Fprintf(&sb, "  %s %s%s\n",
				f.license.Sprint(expr),
				f.scoreColor(score).Sprintf("%.1f%%", score),
				region)

			if options.Verbose {
				for _, log := range det.DetectionLog {
					fmt.Fprintf(&sb, "    %s\n", f.dim.Sprint(log))
				}
				for _, m := range det.Matches {
					fmt.Fprintf(&sb, "    %s %s (%.1f%% coverage, lines %d-%d)\n",
						f.dim.Sprint(m.Matcher), m.Rule.Identifier, m.MatchCoverage,
						m.StartLine, m.EndLine)
				}
			}
		}

		if options.ShowSuppressed {
			for _, sup := range result.Suppressed {
				reason := sup.Reason
				if reason == "" {
					reason = "suppressed"
				}
				fmt.Fprintf(&sb, "  %s %s (%s, rule %s)\n",
					f.dim.Sprint("suppressed:"),
					sup.Detection.LicenseExpression, reason, sup.RuleID)
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(f.summaryLine(formatters.Summarize(results)))
	return sb.String(), nil
}

func (f *Formatter) summaryLine(s formatters.Summary) string {
	line := fmt.Sprintf("%d files scanned, %d detections in %d files, %d unique licenses",
		s.Files, s.Detections, s.FilesWithHits, s.UniqueLicenses)
	if s.Suppressed > 0 {
		line += fmt.Sprintf(", %d suppressed", s.Suppressed)
	}
	if s.Errors > 0 {
		line += ", " + f.bad.Sprintf("%d errors", s.Errors)
	}
	return line + "\n"
}

func (f *Formatter) scoreColor(score float64) *color.Color {
	switch {
	case score >= 90:
		return f.good
	case score >= 60:
		return f.warn
	default:
		return f.bad
	}
}

func init() {
	formatters.Register(NewFormatter())
}
