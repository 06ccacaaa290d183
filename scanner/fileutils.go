package scanner

import (
	"io/fs"
	"path/filepath"
	"sort"

	"trianglefinder/imageprocessor"
	"trianglefinder/logging"
)

// ListImageFiles walks folder and returns every supported image, sorted
func ListImageFiles(folder string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == folder || d == nil {
				return err
			}
			logging.LogWarning("Skipping %s: %v", path, err)
			return nil // Skip files that can't be accessed
		}
		if !d.IsDir() && imageprocessor.IsImageFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
