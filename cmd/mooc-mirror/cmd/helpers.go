package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/moocmirror/mooc-mirror/internal/config"
	"github.com/moocmirror/mooc-mirror/internal/download"
)

func defaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".mooc-mirror", "settings.json")
}

// loadSettings reads the settings file and applies global flag
// overrides.
func loadSettings() (*config.Settings, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading settings %s: %w", configPath, err)
	}
	if targetDir != "" {
		settings.TargetDir = targetDir
	}
	return settings, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so an
// interrupted run can flush its ledger and clean partial files.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupted, finishing up...")
		cancel()
	}()
	return ctx, cancel
}

// consoleProgress prints manager progress events to stdout.
func consoleProgress(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !verbose {
		return
	}
	switch event.Level {
	case download.LevelError:
		errorf("%s", event.Message)
	case download.LevelWarning:
		info("! %s", event.Message)
	default:
		info("%s", event.Message)
	}
}

// courseArgs builds the course list for a run: either the positional
// course identifiers or the entries of a --courses file.
func courseArgs(args []string, coursesFile string) ([]config.Course, error) {
	if coursesFile != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("give either course identifiers or --courses, not both")
		}
		list, err := config.LoadCourseList(coursesFile)
		if err != nil {
			return nil, err
		}
		return list.Courses, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("no courses given; pass identifiers or --courses <file>")
	}
	courses := make([]config.Course, 0, len(args))
	for _, id := range args {
		courses = append(courses, config.Course{ID: id})
	}
	return courses, nil
}

// printSummary renders one course's end-of-run report.
func printSummary(summary *download.RunSummary) {
	report := summary.Report
	info("")
	info("%s: %d completed, %d skipped, %d failed",
		summary.Course, len(report.Completed), len(report.Skipped), len(report.Failed))
	if summary.LockedCount > 0 {
		info("  %d items still locked and not downloaded", summary.LockedCount)
	}
	for _, entry := range report.Failed {
		errorf("failed: %s / %s / %s: %s", entry.Course, entry.Section, entry.Item, entry.LastError)
	}
	for _, resErr := range summary.ResolutionErrors {
		errorf("unresolved: %s: %v", resErr.NodeRef, resErr.Cause)
	}
}

// failureCount totals the items that did not finish across summaries.
func failureCount(summaries []*download.RunSummary) int {
	count := 0
	for _, summary := range summaries {
		count += len(summary.Report.Failed) + len(summary.ResolutionErrors)
	}
	return count
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
