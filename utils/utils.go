package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"trianglefinder/imageprocessor"
	"trianglefinder/index"
	"trianglefinder/triangles"

	"github.com/spf13/pflag"
)

// StoreEnvVar overrides the default store location when --store is not given
const StoreEnvVar = "TRIANGLEFINDER_STORE"

// Commands understood by ParseArguments
var Commands = []string{"insert", "lookup", "compare", "clear"}

// ErrUsage is returned when the command line cannot be run
var ErrUsage = errors.New("invalid usage")

// Config holds the parsed command line
type Config struct {
	Command   string
	Images    []string
	Folder    string
	Store     string
	Keypoints string
	Hasher    string
	Resampler string
	LogFile   string
	Debug     bool
	Workers   int
	BatchSize int
	Triangles triangles.Options
}

// ParseArguments parses args (without the program name) into a Config
func ParseArguments(args []string) (*Config, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: missing command", ErrUsage)
	}

	cfg := &Config{Command: args[0], Triangles: triangles.DefaultOptions()}
	if !isCommand(cfg.Command) {
		return nil, fmt.Errorf("%w: unknown command %q", ErrUsage, cfg.Command)
	}

	fs := newFlagSet(cfg)
	if err := fs.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	cfg.Images = fs.Args()

	if cfg.Store == "" {
		cfg.Store = os.Getenv(StoreEnvVar)
	}
	if cfg.Store == "" {
		cfg.Store = GetDefaultDatabasePath()
	}
	if cfg.Workers < 0 {
		cfg.Workers = 0
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFlagSet(cfg *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet(cfg.Command, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Store, "store", "", "fingerprint store: path, sqlite://, redis://, bolt:// or memory://")
	fs.StringVar(&cfg.Folder, "folder", "", "folder of images to insert")
	fs.StringVar(&cfg.Keypoints, "keypoints", "", "keypoints JSON file (or directory of <image>.json) instead of detection")
	fs.StringVar(&cfg.Hasher, "hasher", "dct", "hash primitive: dct, goimagehash or gocv")
	fs.StringVar(&cfg.Resampler, "resampler", "draw", "fragment resampler: draw or gocv")
	fs.StringVar(&cfg.LogFile, "logfile", "trianglefinder.log", "log file used with --debug")
	fs.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	fs.IntVar(&cfg.Workers, "workers", 0, "worker goroutines (0 = automatic)")
	fs.IntVar(&cfg.BatchSize, "batch", index.DefaultBatchSize, "keys per store lookup round-trip")
	fs.Float64Var(&cfg.Triangles.LowerDist, "lower", triangles.DefaultLowerDist, "minimum vertex distance (exclusive)")
	fs.Float64Var(&cfg.Triangles.UpperDist, "upper", triangles.DefaultUpperDist, "maximum vertex distance (exclusive)")
	fs.Float64Var(&cfg.Triangles.MinArea, "min-area", triangles.DefaultMinArea, "minimum triangle area (exclusive)")
	fs.BoolVar(&cfg.Triangles.Dedup, "dedup", false, "drop triangles with identical vertex sets")
	return fs
}

func (c *Config) validate() error {
	switch c.Command {
	case "insert":
		if len(c.Images) == 0 && c.Folder == "" {
			return fmt.Errorf("%w: insert needs images or --folder", ErrUsage)
		}
	case "lookup":
		if len(c.Images) == 0 {
			return fmt.Errorf("%w: lookup needs at least one image", ErrUsage)
		}
	case "compare":
		if len(c.Images) != 2 {
			return fmt.Errorf("%w: compare needs exactly two images", ErrUsage)
		}
	}
	if c.Triangles.LowerDist >= c.Triangles.UpperDist {
		return fmt.Errorf("%w: --lower must be below --upper", ErrUsage)
	}
	if _, err := imageprocessor.NewBitHasher(c.Hasher); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if _, err := imageprocessor.NewResampler(c.Resampler); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

func isCommand(name string) bool {
	for _, c := range Commands {
		if c == name {
			return true
		}
	}
	return false
}

// GetDefaultDatabasePath returns the default path for the database file
func GetDefaultDatabasePath() string {
	// Get the executable path
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return "fingerprints.db"
	}

	// Return the default database path in the same directory
	return filepath.Join(filepath.Dir(exePath), "fingerprints.db")
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage(w io.Writer) {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s insert IMAGE... [--folder=PATH] [flags]\n", prog)
	fmt.Fprintf(w, "  %s lookup IMAGE... [flags]\n", prog)
	fmt.Fprintf(w, "  %s compare IMAGE_A IMAGE_B [flags]\n", prog)
	fmt.Fprintf(w, "  %s clear [--store=DSN]\n", prog)
	fmt.Fprintf(w, "\nFlags:\n")
	fmt.Fprint(w, newFlagSet(&Config{Command: "usage"}).FlagUsages())
	fmt.Fprintf(w, "\nThe store defaults to $%s, then %s\n", StoreEnvVar, GetDefaultDatabasePath())
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s insert --folder=/path/to/images --store=redis://localhost:6379/0\n", prog)
	fmt.Fprintf(w, "  %s lookup query.png --keypoints=query.json\n", prog)
}
