// Package scanner ingests batches of images into the fingerprint index.
package scanner

import (
	"context"
	"errors"
	"fmt"

	"trianglefinder/index"
	"trianglefinder/logging"
	"trianglefinder/scanner/processor"

	"golang.org/x/sync/errgroup"
)

// ScanAndStoreFolder fingerprints every image below options.FolderPath and inserts it into ix
func ScanAndStoreFolder(ctx context.Context, proc *processor.ImageProcessor, ix *index.Index, options ScanOptions) (ScanSummary, error) {
	files, err := ListImageFiles(options.FolderPath)
	if err != nil {
		return ScanSummary{}, fmt.Errorf("cannot walk %s: %w", options.FolderPath, err)
	}

	if options.DebugMode {
		logging.DebugLog("Starting image scan on folder: %s (%d images)", options.FolderPath, len(files))
	}
	return StoreFiles(ctx, proc, ix, files, options)
}

// StoreFiles fingerprints and inserts files using up to options.MaxWorkers
// goroutines. A file that fails to load or fingerprint is counted and
// skipped; store outages and cancellation abort the whole run.
func StoreFiles(ctx context.Context, proc *processor.ImageProcessor, ix *index.Index, files []string, options ScanOptions) (ScanSummary, error) {
	resultsChan := make(chan ProcessImageResult, 100)
	tracker := NewProgressTracker(len(files), options.Progress, resultsChan)

	group, ctx := errgroup.WithContext(ctx)
	if options.MaxWorkers > 0 {
		group.SetLimit(options.MaxWorkers)
	}

	for _, path := range files {
		path := path
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			result := processAndStoreImage(ctx, proc, ix, path)
			resultsChan <- result
			if result.Error != nil && isFatal(result.Error) {
				return result.Error
			}
			return nil
		})
	}

	err := group.Wait()
	close(resultsChan)
	tracker.Wait()

	return tracker.Summary(), err
}

func processAndStoreImage(ctx context.Context, proc *processor.ImageProcessor, ix *index.Index, path string) ProcessImageResult {
	pairs, err := proc.ProcessImage(ctx, path)
	if err != nil {
		return ProcessImageResult{Path: path, Error: err}
	}

	n, err := ix.Insert(ctx, path, pairs)
	if err != nil {
		return ProcessImageResult{Path: path, Fragments: n, Error: err}
	}

	return ProcessImageResult{Path: path, Fragments: n, Success: true}
}

func isFatal(err error) bool {
	return errors.Is(err, index.ErrStoreUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
