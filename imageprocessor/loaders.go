package imageprocessor

import (
	"fmt"
	"os"

	"trianglefinder/types"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)
	for _, supported := range l.SupportedFormats {
		if format == supported {
			return fileExists(path)
		}
	}
	return false
}

// GocvImageLoader decodes images with OpenCV
type GocvImageLoader struct {
	BaseImageLoader
}

// NewGocvImageLoader creates a loader for the formats OpenCV reads natively
func NewGocvImageLoader() *GocvImageLoader {
	return &GocvImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{FormatJPEG, FormatPNG, FormatBMP, FormatTIFF, FormatWEBP},
		},
	}
}

// LoadImage loads the file as an RGB buffer
func (l *GocvImageLoader) LoadImage(path string) (types.ImageBuffer, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return types.ImageBuffer{}, newImageLoadError("failed to load image", path)
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)

	return BufferFromMat(rgb)
}

// ImagingLoader decodes images in pure Go, honouring EXIF orientation
type ImagingLoader struct {
	BaseImageLoader
}

// NewImagingLoader creates the pure Go loader
func NewImagingLoader() *ImagingLoader {
	return &ImagingLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatTIFF, FormatWEBP},
		},
	}
}

// LoadImage loads the file as an RGB buffer
func (l *ImagingLoader) LoadImage(path string) (types.ImageBuffer, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return types.ImageBuffer{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return FromImage(img, 3), nil
}

// fileExists checks if a file exists and is accessible
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// newImageLoadError creates a standardized error for image loading failures
func newImageLoadError(message, path string) error {
	return fmt.Errorf("%s: %s", message, path)
}
