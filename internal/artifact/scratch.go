package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Local working directories, relative to the scratch root.
const (
	DirRawVideos           = "raw-videos"
	DirProcessedVideos     = "processed-videos"
	DirRawThumbnails       = "raw-thumbnails"
	DirProcessedThumbnails = "processed-thumbnails"
)

type Scratch struct {
	root string
}

func NewScratch(root string) *Scratch {
	if root == "" {
		root = "."
	}
	return &Scratch{root: root}
}

// Setup creates the working directories. It is safe to call repeatedly.
func (s *Scratch) Setup() error {
	for _, dir := range []string{DirRawVideos, DirProcessedVideos, DirRawThumbnails, DirProcessedThumbnails} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return fmt.Errorf("creating scratch directory %s: %w", dir, err)
		}
	}
	return nil
}

// Path returns the local path of name inside dir. Only the base of name is used.
func (s *Scratch) Path(dir, name string) string {
	return filepath.Join(s.root, dir, filepath.Base(name))
}

// DeleteLocal removes path; a path that does not exist is not an error.
func (s *Scratch) DeleteLocal(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
