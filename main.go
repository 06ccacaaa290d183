package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"trianglefinder/database"
	"trianglefinder/fingerprint"
	"trianglefinder/imageprocessor"
	"trianglefinder/index"
	"trianglefinder/logging"
	"trianglefinder/scanner"
	"trianglefinder/scanner/processor"
	"trianglefinder/signalhandler"
	"trianglefinder/types"
	"trianglefinder/utils"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := utils.ParseArguments(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		utils.PrintUsage(os.Stderr)
		return 1
	}

	// Set the optimal number of CPUs to use
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())
	if cfg.Workers == 0 {
		cfg.Workers = signalhandler.GetOptimalProcs()
	}
	cfg.Triangles.Workers = cfg.Workers

	if cfg.Debug {
		if err := logging.SetupLogger(cfg.LogFile); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", cfg.LogFile)
		}
		defer logging.CloseLogger()
	}

	ctx, stop := signalhandler.SetupContext(context.Background())
	defer stop()

	store, err := database.Open(cfg.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store %s: %v\n", cfg.Store, err)
		return 1
	}
	defer store.Close()

	ix := index.New(store)
	ix.BatchSize = cfg.BatchSize

	if cfg.Command == "clear" {
		if err := ix.Clear(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing store: %v\n", err)
			return 1
		}
		fmt.Println("Store cleared")
		return 0
	}

	proc, err := newImageProcessor(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	switch cfg.Command {
	case "insert":
		err = handleInsertCommand(ctx, cfg, proc, ix, store)
	case "lookup":
		err = handleLookupCommand(ctx, cfg, proc, ix)
	case "compare":
		err = handleCompareCommand(ctx, cfg, proc, ix)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newImageProcessor(cfg *utils.Config) (*processor.ImageProcessor, error) {
	primitive, err := imageprocessor.NewBitHasher(cfg.Hasher)
	if err != nil {
		return nil, err
	}
	resampler, err := imageprocessor.NewResampler(cfg.Resampler)
	if err != nil {
		return nil, err
	}

	fp := fingerprint.New(
		imageprocessor.NewNormalizer(resampler),
		imageprocessor.NewHasher(primitive),
		cfg.Workers,
	)
	fp.Triangles = cfg.Triangles

	var source processor.KeypointSource = processor.DetectorSource{Detector: imageprocessor.NewContourDetector()}
	if cfg.Keypoints != "" {
		source = processor.FileSource{Path: cfg.Keypoints}
	}

	return processor.NewImageProcessor(imageprocessor.NewImageLoaderRegistry(), source, fp), nil
}

func handleInsertCommand(ctx context.Context, cfg *utils.Config, proc *processor.ImageProcessor, ix *index.Index, store index.Store) error {
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", index.ErrStoreUnavailable, err)
	}

	startTime := time.Now()
	options := scanner.ScanOptions{
		FolderPath: cfg.Folder,
		DebugMode:  cfg.Debug,
		MaxWorkers: cfg.Workers,
		Progress:   os.Stderr,
	}

	files := cfg.Images
	if cfg.Folder != "" {
		found, err := scanner.ListImageFiles(cfg.Folder)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}
	fmt.Printf("Total image files to process: %d\n", len(files))

	summary, err := scanner.StoreFiles(ctx, proc, ix, files, options)
	scanner.PrintCompletionStats(os.Stdout, summary, time.Since(startTime))
	if err != nil {
		return err
	}

	if sp, ok := store.(database.StatsProvider); ok {
		if stats, err := sp.GetScanStats(ctx); err == nil {
			fmt.Printf("\nSummary:\n")
			fmt.Printf("- Total records: %d\n", stats.TotalRecords)
			fmt.Printf("- Unique hashes: %d\n", stats.UniqueHashes)
		}
	}
	if summary.Errors > 0 && summary.Errors == summary.Files {
		return errors.New("no image could be processed")
	}
	return nil
}

func handleLookupCommand(ctx context.Context, cfg *utils.Config, proc *processor.ImageProcessor, ix *index.Index) error {
	for _, path := range cfg.Images {
		startTime := time.Now()

		pairs, err := proc.ProcessImage(ctx, path)
		if err != nil {
			return err
		}

		matches, err := ix.Query(ctx, pairs)
		if err != nil {
			return err
		}

		fmt.Printf("\nMatches for %s (%d fragments):\n", path, len(pairs))
		printMatches(matches)
		fmt.Printf("Total search time: %v\n", time.Since(startTime))
	}
	return nil
}

func handleCompareCommand(ctx context.Context, cfg *utils.Config, proc *processor.ImageProcessor, ix *index.Index) error {
	nameA, nameB := cfg.Images[0], cfg.Images[1]

	pairsA, err := proc.ProcessImage(ctx, nameA)
	if err != nil {
		return err
	}
	pairsB, err := proc.ProcessImage(ctx, nameB)
	if err != nil {
		return err
	}

	matches, err := ix.Compare(ctx, nameA, pairsA, pairsB)
	if err != nil {
		return err
	}

	fmt.Printf("Added %d image fragments\n", len(pairsA))
	fmt.Printf("Matching fragments between %s and %s: %d\n", nameA, nameB, matches[nameA])
	return nil
}

func printMatches(matches types.MatchAggregate) {
	if len(matches) == 0 {
		fmt.Println("No matches found.")
		return
	}
	for i, m := range matches.Sorted() {
		fmt.Printf("%d. %s: %d\n", i+1, m.ImageName, m.Count)
	}
	fmt.Printf("Total matches: %d\n", matches.Total())
}
