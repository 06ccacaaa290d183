package scanner

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// ScanOptions defines the options for scanning
type ScanOptions struct {
	FolderPath string
	DebugMode  bool
	MaxWorkers int       // Optional worker limit
	Progress   io.Writer // Progress bar output, nil hides the bar
}

// ProcessImageResult holds the result of processing an image
type ProcessImageResult struct {
	Path      string
	Fragments int
	Success   bool
	Error     error
}

// ScanSummary is returned once every file has been handled
type ScanSummary struct {
	Files     int
	Processed int
	Errors    int
	Fragments int
}

// ProgressTracker tracks progress of the scan operation
type ProgressTracker struct {
	bar       *progressbar.ProgressBar
	processed int
	errors    int
	fragments int
	total     int
	done      chan struct{}
	mu        sync.Mutex
}
