package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"trianglefinder/fingerprint"
	"trianglefinder/imageprocessor"
	"trianglefinder/logging"
	"trianglefinder/types"
)

// KeypointSource supplies the keypoints of a loaded image
type KeypointSource interface {
	Keypoints(path string, img types.ImageBuffer) ([]types.Keypoint, error)
}

// DetectorSource runs a detector on the decoded pixels
type DetectorSource struct {
	Detector imageprocessor.Detector
}

func (s DetectorSource) Keypoints(_ string, img types.ImageBuffer) ([]types.Keypoint, error) {
	return s.Detector.Detect(img)
}

// FileSource reads keypoints from a JSON dump. When Path is a directory the
// file <Path>/<image name>.json is used for each image.
type FileSource struct {
	Path string
}

// KeypointsFileFor returns <dir>/<image base name without extension>.json
func KeypointsFileFor(dir, imagePath string) string {
	base := filepath.Base(imagePath)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".json")
}

func (s FileSource) Keypoints(path string, _ types.ImageBuffer) ([]types.Keypoint, error) {
	file := s.Path
	if info, err := os.Stat(s.Path); err == nil && info.IsDir() {
		file = KeypointsFileFor(s.Path, path)
	}
	kps, err := imageprocessor.ReadKeypointsFile(file)
	if err != nil {
		return nil, fmt.Errorf("cannot read keypoints for %s from %s: %w", path, file, err)
	}
	return kps, nil
}

// ImageProcessor is an adapter that simplifies interactions between the scanner
// and the imageprocessor package
type ImageProcessor struct {
	Registry      *imageprocessor.ImageLoaderRegistry
	Keypoints     KeypointSource
	Fingerprinter *fingerprint.Fingerprinter
}

// NewImageProcessor creates a new ImageProcessor with appropriate configuration
func NewImageProcessor(registry *imageprocessor.ImageLoaderRegistry, keypoints KeypointSource, fp *fingerprint.Fingerprinter) *ImageProcessor {
	return &ImageProcessor{
		Registry:      registry,
		Keypoints:     keypoints,
		Fingerprinter: fp,
	}
}

// LoadImage loads an image through the registry, turning loader panics into errors
func (p *ImageProcessor) LoadImage(path string) (img types.ImageBuffer, err error) {
	// Use defer to recover from any panics during image loading
	defer func() {
		if r := recover(); r != nil {
			stackTrace := debug.Stack()
			err = fmt.Errorf("panic during image loading: %v", r)
			logging.LogError("Panic during image loading: %v, file: %s\nStack trace: %s", r, path, string(stackTrace))
			img = types.ImageBuffer{}
		}
	}()

	img, err = p.Registry.LoadImage(path)
	if err != nil {
		return types.ImageBuffer{}, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	// Skip empty images
	if img.Empty() {
		return img, fmt.Errorf("image is empty after loading: %s", path)
	}

	logging.DebugLog("Loaded %s image %s (%dx%d)", imageprocessor.GetFileFormat(path), path, img.Width, img.Height)
	return img, nil
}

// ProcessImage loads path, finds its keypoints and fingerprints it. The path
// is used as the image name.
func (p *ImageProcessor) ProcessImage(ctx context.Context, path string) ([]fingerprint.Pair, error) {
	img, err := p.LoadImage(path)
	if err != nil {
		return nil, err
	}

	kps, err := p.Keypoints.Keypoints(path, img)
	if err != nil {
		return nil, err
	}

	return p.Fingerprinter.Image(ctx, path, img, kps)
}
