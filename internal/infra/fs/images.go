package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

const imagesDir = "assets/images"

// ImagePaths are the output files under the workspace root.
type ImagePaths struct {
	Languages string // 01.png
	Quote     string // 02.png
	Posts     string // 03.png
	Readme    string // readmeImage.png
}

// NewImagePaths builds workspace/assets/images/{01,02,03,readmeImage}.png.
func NewImagePaths(workspace string) ImagePaths {
	dir := filepath.Join(workspace, imagesDir)
	return ImagePaths{
		Languages: filepath.Join(dir, "01.png"),
		Quote:     filepath.Join(dir, "02.png"),
		Posts:     filepath.Join(dir, "03.png"),
		Readme:    filepath.Join(dir, "readmeImage.png"),
	}
}

// Dir returns the directory holding the images.
func (p ImagePaths) Dir() string {
	return filepath.Dir(p.Readme)
}

// Cards returns the three card images in composite order.
func (p ImagePaths) Cards() []string {
	return []string{p.Languages, p.Quote, p.Posts}
}

// EnsureDir creates the images directory.
func (p ImagePaths) EnsureDir() error {
	if err := os.MkdirAll(p.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create images directory: %w", err)
	}
	return nil
}

// RemoveStale deletes a previous output so a failed step cannot leave an old image behind.
func RemoveStale(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale image %s: %w", path, err)
	}
	return nil
}
