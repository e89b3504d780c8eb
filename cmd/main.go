// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"

	"lichen-scan/internal/config"
	"lichen-scan/internal/core"
	"lichen-scan/internal/formatters"
	_ "lichen-scan/internal/formatters/json"
	_ "lichen-scan/internal/formatters/text"
	"lichen-scan/internal/observability"
	"lichen-scan/internal/parallel"
	"lichen-scan/internal/suppressions"
	"lichen-scan/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	rulesDir := flag.String("rules", "", "Directory containing .RULE and .LICENSE files")
	licensesDir := flag.String("licenses", "", "Directory containing .LICENSE files (default: same as -rules)")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "", "Profile name to use from config file")
	listProfiles := flag.Bool("list-profiles", false, "List available profiles in config file")
	outputFormat := flag.String("format", "", "Output format: text, json (default: text)")
	outputFile := flag.String("output", "", "Path to output file (default: stdout)")
	workers := flag.Int("workers", 0, "Number of parallel workers (default: number of CPUs)")
	minScore := flag.Float64("min-score", 0, "Discard detections scoring below this threshold (0-100)")
	suppressionFile := flag.String("suppression-file", "", "Path to suppression configuration file (YAML)")
	showSuppressed := flag.Bool("show-suppressed", false, "Include suppressed detections in output")
	verbose := flag.Bool("verbose", false, "Display per-match detail for each detection")
	debug := flag.Bool("debug", false, "Emit JSON timing events to stderr")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	recursive := flag.Bool("recursive", false, "Recursively scan directories")
	exclude := flag.String("exclude", "", "Comma-separated glob patterns to skip")
	showVersion := flag.Bool("version", false, "Show version information")
	listFormats := flag.Bool("list-formats", false, "List available output formats")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return 0
	}
	if *listFormats {
		for _, name := range formatters.List() {
			formatter, _ := formatters.Get(name)
			fmt.Printf("%-8s %s\n", name, formatter.Description())
		}
		return 0
	}

	cfg := config.LoadConfigOrDefault(*configFile)
	if *listProfiles {
		names := cfg.ListProfiles()
		sort.Strings(names)
		for _, name := range names {
			profile := cfg.GetProfile(name)
			fmt.Printf("%-16s %s\n", name, profile.Description)
		}
		return 0
	}

	var profile *config.Profile
	if *profileName != "" {
		profile = cfg.GetProfile(*profileName)
		if profile == nil {
			fmt.Fprintf(os.Stderr, "Error: profile %q not found in config\n", *profileName)
			return 2
		}
	}
	settings := cfg.Effective(profile)

	// Flags override config.
	if *rulesDir != "" {
		settings.RulesDir = *rulesDir
	}
	if *licensesDir != "" {
		settings.LicensesDir = *licensesDir
	}
	if *outputFormat != "" {
		settings.Format = *outputFormat
	}
	if *outputFile != "" {
		settings.Output = *outputFile
	}
	if *workers != 0 {
		settings.Workers = *workers
	}
	if *minScore != 0 {
		settings.MinScore = *minScore
	}
	if *suppressionFile != "" {
		settings.SuppressionFile = *suppressionFile
	}
	settings.Verbose = settings.Verbose || *verbose
	settings.Debug = settings.Debug || *debug
	settings.NoColor = settings.NoColor || *noColor
	settings.Recursive = settings.Recursive || *recursive
	settings.ShowSuppressed = settings.ShowSuppressed || *showSuppressed
	if *exclude != "" {
		for _, pattern := range strings.Split(*exclude, ",") {
			if pattern = strings.TrimSpace(pattern); pattern != "" {
				settings.ExcludePatterns = append(settings.ExcludePatterns, pattern)
			}
		}
	}

	if settings.RulesDir == "" {
		fmt.Fprintln(os.Stderr, "Error: -rules is required (or rules_dir in the config file)")
		flag.Usage()
		return 2
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: no files or directories to scan")
		flag.Usage()
		return 2
	}

	if settings.NoColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	paths, err := collectPaths(flag.Args(), settings.Recursive, settings.ExcludePatterns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to scan.")
		return 0
	}

	observerLevel := observability.ObservabilityMetrics
	if settings.Debug {
		observerLevel = observability.ObservabilityDebug
	}
	observer := observability.NewStandardObserver(observerLevel, os.Stderr)

	detector, err := core.BuildDetector(settings.RulesDir, settings.LicensesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	var sm *suppressions.Manager
	if settings.SuppressionFile != "" {
		sm = suppressions.NewManager(settings.SuppressionFile)
	}

	scanner := core.NewScanner(detector, nil, sm, observer, settings.MinScore)
	pool := parallel.NewWorkerPool(settings.Workers, observer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := pool.ScanFiles(ctx, scanner, paths)

	output, err := formatters.Export(settings.Format, results, formatters.Options{
		Verbose:        settings.Verbose,
		NoColor:        settings.NoColor,
		ShowSuppressed: settings.ShowSuppressed,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if settings.Output != "" {
		if err := os.WriteFile(settings.Output, []byte(output), 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			return 2
		}
		printSummary(results)
	} else {
		fmt.Println(output)
	}

	if ctx.Err() != nil {
		return 130
	}
	for _, result := range results {
		if result.Error != "" {
			return 1
		}
	}
	return 0
}

// collectPaths expands the argument list into scannable files. Directory
// arguments are walked when recursive is set, otherwise only their
// immediate files are taken.
func collectPaths(args []string, recursive bool, excludePatterns []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !excluded(arg, excludePatterns) {
				paths = append(paths, arg)
			}
			continue
		}

		if recursive {
			err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if strings.HasPrefix(d.Name(), ".") && path != arg {
						return filepath.SkipDir
					}
					return nil
				}
				if !excluded(path, excludePatterns) {
					paths = append(paths, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(arg, entry.Name())
			if !excluded(path, excludePatterns) {
				paths = append(paths, path)
			}
		}
	}
	return paths, nil
}

// excluded matches patterns against the path and its basename.
func excluded(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

// printSummary writes a short summary to stderr when the full output
// went to a file. The separator adapts to the terminal width.
func printSummary(results []core.FileDetections) {
	width := 60
	if term.IsTerminal(int(os.Stderr.Fd())) {
		if w, _, err := term.GetSize(int(os.Stderr.Fd())); err == nil && w > 0 && w < width {
			width = w
		}
	}
	s := formatters.Summarize(results)
	fmt.Fprintln(os.Stderr, strings.Repeat("-", width))
	line := fmt.Sprintf("%d files scanned, %d detections, %d unique licenses",
		s.Files, s.Detections, s.UniqueLicenses)
	if s.Suppressed > 0 {
		line += fmt.Sprintf(", %d suppressed", s.Suppressed)
	}
	if s.Errors > 0 {
		line += ", " + color.New(color.FgRed).Sprintf("%d errors", s.Errors)
	}
	fmt.Fprintln(os.Stderr, line)
}
