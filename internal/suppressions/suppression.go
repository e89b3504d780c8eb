// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package suppressions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lichen-scan/internal/detection"
)

// Rule suppresses detections by path glob and license expression. An
// empty or "*" expression matches any detection on matching paths.
type Rule struct {
	ID                string     `yaml:"id"`
	PathGlob          string     `yaml:"path"`
	LicenseExpression string     `yaml:"license_expression,omitempty"`
	Reason            string     `yaml:"reason,omitempty"`
	Enabled           bool       `yaml:"enabled"`
	CreatedBy         string     `yaml:"created_by,omitempty"`
	CreatedAt         time.Time  `yaml:"created_at,omitempty"`
	ExpiresAt         *time.Time `yaml:"expires_at,omitempty"`
}

// Config is the on-disk suppression file.
type Config struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// SuppressedDetection is a detection removed from the active results,
// kept with the rule that suppressed it so reports stay auditable.
type SuppressedDetection struct {
	Detection *detection.LicenseDetection `json:"detection"`
	Path      string                      `json:"path"`
	Reason    string                      `json:"reason,omitempty"`
	RuleID    string                      `json:"rule_id"`
}

// Manager loads suppression rules and applies them to detections.
type Manager struct {
	configPath string
	config     *Config
	enabled    bool
}

// NewManager creates a manager from the given config path. A missing or
// unreadable file yields an empty rule set rather than an error so scans
// run without a suppression file.
func NewManager(configPath string) *Manager {
	m := &Manager{
		configPath: configPath,
		enabled:    true,
	}
	m.loadConfig()
	return m
}

func (m *Manager) loadConfig() {
	m.config = &Config{Version: "1.0"}
	if m.configPath == "" {
		return
	}

	data, err := os.ReadFile(filepath.Clean(m.configPath))
	if err != nil {
		return
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return
	}
	m.config = &config
}

// ruleMatches reports whether the rule applies to a detection at path.
func ruleMatches(rule *Rule, path string, det *detection.LicenseDetection) bool {
	if !rule.Enabled {
		return false
	}
	if rule.ExpiresAt != nil && time.Now().After(*rule.ExpiresAt) {
		return false
	}
	if !pathMatches(rule.PathGlob, path) {
		return false
	}
	expr := strings.TrimSpace(rule.LicenseExpression)
	if expr == "" || expr == "*" {
		return true
	}
	return strings.EqualFold(expr, det.LicenseExpression) ||
		strings.EqualFold(expr, det.LicenseExpressionSPDX)
}

// pathMatches matches the glob against the slash-normalized path and its
// basename, so "vendor/*" and "LICENSE*" both behave naturally.
func pathMatches(glob, path string) bool {
	if glob == "" || glob == "*" {
		return true
	}
	path = filepath.ToSlash(path)
	if ok, err := filepath.Match(glob, path); err == nil && ok {
		return true
	}
	if ok, err := filepath.Match(glob, filepath.Base(path)); err == nil && ok {
		return true
	}
	// "dir/**" style prefix matching.
	if strings.HasSuffix(glob, "/**") {
		return strings.HasPrefix(path, strings.TrimSuffix(glob, "**"))
	}
	return false
}

// IsSuppressed checks whether any rule suppresses the detection.
func (m *Manager) IsSuppressed(path string, det *detection.LicenseDetection) (bool, *Rule) {
	if !m.enabled || m.config == nil {
		return false, nil
	}
	for i := range m.config.Rules {
		if ruleMatches(&m.config.Rules[i], path, det) {
			return true, &m.config.Rules[i]
		}
	}
	return false, nil
}

// Apply splits detections into active and suppressed lists. Suppressed
// detections are reported, never dropped silently.
func (m *Manager) Apply(path string, dets []*detection.LicenseDetection) ([]*detection.LicenseDetection, []SuppressedDetection) {
	var active []*detection.LicenseDetection
	var suppressed []SuppressedDetection
	for _, det := range dets {
		if ok, rule := m.IsSuppressed(path, det); ok {
			suppressed = append(suppressed, SuppressedDetection{
				Detection: det,
				Path:      path,
				Reason:    rule.Reason,
				RuleID:    rule.ID,
			})
			continue
		}
		active = append(active, det)
	}
	return active, suppressed
}

// Add appends a new suppression rule and saves the config.
func (m *Manager) Add(pathGlob, licenseExpression, reason, createdBy string, expiresAt *time.Time) error {
	if m.config == nil {
		m.config = &Config{Version: "1.0"}
	}

	for _, rule := range m.config.Rules {
		if rule.PathGlob == pathGlob && strings.EqualFold(rule.LicenseExpression, licenseExpression) {
			return fmt.Errorf("suppression rule already exists for %q / %q", pathGlob, licenseExpression)
		}
	}

	rule := Rule{
		ID:                m.nextID(),
		PathGlob:          pathGlob,
		LicenseExpression: licenseExpression,
		Reason:            reason,
		Enabled:           true,
		CreatedBy:         createdBy,
		CreatedAt:         time.Now(),
		ExpiresAt:         expiresAt,
	}
	m.config.Rules = append(m.config.Rules, rule)
	return m.saveConfig()
}

// nextID produces a sequential SUP-%08d identifier.
func (m *Manager) nextID() string {
	maxID := 0
	for _, rule := range m.config.Rules {
		var num int
		if _, err := fmt.Sscanf(rule.ID, "SUP-%08d", &num); err == nil && num > maxID {
			maxID = num
		}
	}
	return fmt.Sprintf("SUP-%08d", maxID+1)
}

// Remove deletes a suppression rule by ID.
func (m *Manager) Remove(id string) error {
	if m.config == nil {
		return fmt.Errorf("no suppression config loaded")
	}
	for i, rule := range m.config.Rules {
		if rule.ID == id {
			m.config.Rules = append(m.config.Rules[:i], m.config.Rules[i+1:]...)
			return m.saveConfig()
		}
	}
	return fmt.Errorf("suppression rule with ID %s not found", id)
}

// List returns all suppression rules.
func (m *Manager) List() []Rule {
	if m.config == nil {
		return nil
	}
	return m.config.Rules
}

// CleanupExpired removes expired rules, returning how many were dropped.
func (m *Manager) CleanupExpired() int {
	if m.config == nil {
		return 0
	}
	now := time.Now()
	var active []Rule
	for _, rule := range m.config.Rules {
		if rule.ExpiresAt == nil || now.Before(*rule.ExpiresAt) {
			active = append(active, rule)
		}
	}
	removed := len(m.config.Rules) - len(active)
	m.config.Rules = active
	if removed > 0 {
		m.saveConfig()
	}
	return removed
}

func (m *Manager) saveConfig() error {
	if m.configPath == "" {
		return fmt.Errorf("no suppression config path set")
	}
	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("marshal suppression config: %w", err)
	}
	if dir := filepath.Dir(m.configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(m.configPath, data, 0o600); err != nil {
		return fmt.Errorf("write suppression config: %w", err)
	}
	return nil
}

// SetEnabled enables or disables suppression entirely.
func (m *Manager) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// IsEnabled reports whether suppression is active.
func (m *Manager) IsEnabled() bool {
	return m.enabled
}

// ConfigPath returns the path of the suppression file.
func (m *Manager) ConfigPath() string {
	return m.configPath
}
