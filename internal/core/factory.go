// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"

	"lichen-scan/internal/detection"
	"lichen-scan/internal/index"
	"lichen-scan/internal/licenses"
	"lichen-scan/internal/spdx"
)

// BuildDetector loads the rule corpus from rulesDir and licensesDir and
// compiles it into a detector. The two directories may be the same; full
// license texts are indexed as rules alongside the .RULE corpus.
func BuildDetector(rulesDir, licensesDir string) (*detection.Detector, error) {
	if licensesDir == "" {
		licensesDir = rulesDir
	}

	rules, err := licenses.LoadRulesFromDirectory(rulesDir)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	lics, err := licenses.LoadLicensesFromDirectory(licensesDir)
	if err != nil {
		return nil, fmt.Errorf("loading licenses: %w", err)
	}
	rules = append(rules, licenseTextRules(lics)...)
	if len(rules) == 0 {
		return nil, fmt.Errorf("no rules found under %s", rulesDir)
	}

	idx, err := index.BuildIndex(rules, lics)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	return detection.NewDetector(idx, spdx.NewMapping(lics)), nil
}

// licenseTextRules turns each full license text into an indexable rule.
func licenseTextRules(lics []*licenses.License) []*licenses.Rule {
	var rules []*licenses.Rule
	for _, lic := range lics {
		if lic.Text == "" {
			continue
		}
		rules = append(rules, &licenses.Rule{
			Identifier:        lic.Key + ".LICENSE",
			LicenseExpression: lic.Key,
			Text:              lic.Text,
			Relevance:         100,
			MinimumCoverage:   lic.MinimumCoverage,
			IsLicenseText:     true,
		})
	}
	return rules
}
