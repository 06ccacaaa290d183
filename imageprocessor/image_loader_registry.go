package imageprocessor

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"trianglefinder/logging"
	"trianglefinder/types"
)

// ImageLoaderRegistry maintains a registry of image loaders
type ImageLoaderRegistry struct {
	loaders       map[string]ImageLoader
	defaultLoader ImageLoader
	mutex         sync.RWMutex
}

// NewImageLoaderRegistry creates a registry with OpenCV loaders and a pure Go fallback
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders:       make(map[string]ImageLoader),
		defaultLoader: NewImagingLoader(),
	}

	gocvLoader := NewGocvImageLoader()
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp"} {
		registry.RegisterLoader(ext, gocvLoader)
	}
	registry.RegisterLoader(".gif", registry.defaultLoader)

	return registry
}

// NewPureGoRegistry creates a registry that never calls into OpenCV
func NewPureGoRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders:       make(map[string]ImageLoader),
		defaultLoader: NewImagingLoader(),
	}
	for _, ext := range GetSupportedExtensions() {
		registry.RegisterLoader(ext, registry.defaultLoader)
	}
	return registry
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.loaders[strings.ToLower(ext)] = loader
}

// GetLoader returns the appropriate loader for the given path
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if loader, ok := r.loaders[ext]; ok {
		return loader
	}
	return r.defaultLoader
}

// CanLoadFile checks if any registered loader can handle the given file
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// LoadImage loads an image with its registered loader, falling back to the
// default loader when the specialised one fails.
func (r *ImageLoaderRegistry) LoadImage(path string) (types.ImageBuffer, error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return types.ImageBuffer{}, fmt.Errorf("no suitable loader found for: %s", path)
	}

	img, err := loader.LoadImage(path)
	if err == nil || loader == r.defaultLoader {
		return img, err
	}

	logging.LogWarning("Loader failed for %s: %v, falling back to default loader", path, err)
	return r.defaultLoader.LoadImage(path)
}
