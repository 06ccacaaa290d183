package scanner

import (
	"fmt"
	"io"
	"time"

	"trianglefinder/logging"

	"github.com/schollz/progressbar/v3"
)

// NewProgressTracker starts consuming results and rendering them to out
func NewProgressTracker(total int, out io.Writer, resultsChan <-chan ProcessImageResult) *ProgressTracker {
	visible := out != nil
	if out == nil {
		out = io.Discard
	}

	tracker := &ProgressTracker{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("Fingerprinting"),
			progressbar.OptionSetVisibility(visible),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
		),
		total: total,
		done:  make(chan struct{}),
	}

	// Start result processor goroutine
	go tracker.processResults(resultsChan)

	return tracker
}

// processResults updates the tracker state based on processing results
func (p *ProgressTracker) processResults(resultsChan <-chan ProcessImageResult) {
	defer close(p.done)

	for result := range resultsChan {
		p.mu.Lock()
		p.processed++
		if result.Success {
			p.fragments += result.Fragments
		} else {
			p.errors++
		}
		p.mu.Unlock()

		logging.LogImageProcessed(result.Path, result.Fragments, result.Error)
		p.bar.Add(1)
	}
}

// Wait blocks until the results channel is closed and drained
func (p *ProgressTracker) Wait() {
	<-p.done
	p.bar.Finish()
}

// Summary returns the counters collected so far
func (p *ProgressTracker) Summary() ScanSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ScanSummary{
		Files:     p.total,
		Processed: p.processed,
		Errors:    p.errors,
		Fragments: p.fragments,
	}
}

// PrintCompletionStats displays statistics after scan completion
func PrintCompletionStats(w io.Writer, summary ScanSummary, elapsed time.Duration) {
	logging.DebugLog("Scan completed in %v. Processed: %d, Errors: %d, Fragments: %d",
		elapsed, summary.Processed, summary.Errors, summary.Fragments)

	fmt.Fprintln(w, "\nIndexing complete.")
	fmt.Fprintf(w, "Processed %d images in %v.\n", summary.Processed, elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Added %d image fragments\n", summary.Fragments)

	if summary.Errors > 0 {
		fmt.Fprintf(w, "Encountered %d errors during indexing.\n", summary.Errors)
		fmt.Fprintln(w, "Check the log file for details.")
	}
}
