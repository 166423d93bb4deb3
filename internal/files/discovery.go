package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery locates source workbooks inside a base directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindFilesByPattern finds files matching a glob pattern, oldest first
func (d *Discovery) FindFilesByPattern(dir string, pattern string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)
	matches, err := filepath.Glob(filepath.Join(fullPath, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// Locate returns the configured path when it exists, otherwise the most
// recently modified file in the base directory matching any pattern.
func (d *Discovery) Locate(configured string, patterns ...string) (string, error) {
	if configured != "" {
		path := d.resolve(configured)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	var candidates []FileInfo
	for _, pattern := range patterns {
		found, err := d.FindFilesByPattern("", pattern)
		if err != nil {
			return "", err
		}
		candidates = append(candidates, found...)
	}
	if latest, ok := GetLatestFile(candidates); ok {
		return latest.Path, nil
	}

	name := configured
	if name == "" && len(patterns) > 0 {
		name = patterns[0]
	}
	return "", fmt.Errorf("%s under %s: %w", name, d.basePath, ErrSourceMissing)
}

func (d *Discovery) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.basePath, path)
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}
