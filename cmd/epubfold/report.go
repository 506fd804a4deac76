package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/infracollect/epubfold/internal/runner"
)

type reportSymbols struct {
	processing, success, failure, warning string
}

var (
	emojiSymbols = reportSymbols{processing: "📦 ", success: "✅ ", failure: "❌ ", warning: "⚠️  "}
	plainSymbols = reportSymbols{failure: "ERROR: ", warning: "WARNING: "}
)

// printReport writes the per-folder results and the final tally.
func printReport(w io.Writer, summary runner.Summary, removeOriginal, interactive bool) {
	symbols := plainSymbols
	if interactive {
		symbols = emojiSymbols
	}
	display := func(path string) string {
		if rel, err := filepath.Rel(summary.SourceDir, path); err == nil && filepath.IsLocal(rel) {
			return rel
		}
		return path
	}

	if summary.Total == 0 {
		fmt.Fprintf(w, "No folders ending in .epub found in: %s\n", summary.SourceDir)
		return
	}

	fmt.Fprintf(w, "Found %d folder(s) to process\n", summary.Total)
	fmt.Fprintf(w, "Output directory: %s\n\n", summary.OutputDir)

	if summary.DryRun {
		for _, plan := range summary.Planned {
			fmt.Fprintf(w, "Would process: %s -> %s\n", filepath.Base(plan.Source), display(plan.Destination))
		}
		return
	}

	for _, outcome := range summary.Outcomes {
		name := filepath.Base(outcome.Source)
		if !outcome.Result.OK() {
			fmt.Fprintf(w, "%sError processing %s: %v\n", symbols.failure, name, outcome.Err)
			continue
		}

		fmt.Fprintf(w, "%sProcessed: %s (%d files)\n", symbols.processing, name, outcome.Entries)
		if outcome.PublishErr != nil {
			fmt.Fprintf(w, "%sError publishing %s: %v\n", symbols.failure, name, outcome.PublishErr)
			continue
		}
		if outcome.RemoveErr != nil {
			fmt.Fprintf(w, "%sCould not remove original folder %s: %v\n", symbols.warning, name, outcome.RemoveErr)
		}

		if outcome.Removed {
			fmt.Fprintf(w, "%sCreated: %s (original folder removed)\n", symbols.success, display(outcome.Destination))
		} else {
			fmt.Fprintf(w, "%sCreated: %s\n", symbols.success, display(outcome.Destination))
		}
	}

	fmt.Fprintf(w, "\nComplete: %d/%d converted successfully\n", summary.Succeeded, summary.Total)
	fmt.Fprintf(w, "Files saved to: %s\n", summary.OutputDir)

	if !removeOriginal && summary.Succeeded > 0 {
		fmt.Fprintln(w, "\nNote: Original folders still exist in source directory.")
		fmt.Fprintln(w, "Verify the ePubs work, then run with --remove-original to clean up.")
	}
}
