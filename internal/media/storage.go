// Package media stores uploaded files on local disk and converts videos to
// HLS through an external ffmpeg binary.
package media

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Sub-directories of the upload root.
const (
	ImagesDir = "images"
	VideosDir = "videos"
	TempDir   = "tmp"
)

// Storage writes files below Root and builds their public URLs.  Root is
// served read-only under /static.
type Storage struct {
	Root    string
	BaseURL string // e.g. http://localhost:8080/static
}

func NewStorage(root, serverURL string) (*Storage, error) {
	for _, d := range []string{ImagesDir, VideosDir, TempDir} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", d, err)
		}
	}
	return &Storage{Root: root, BaseURL: strings.TrimRight(serverURL, "/") + "/static"}, nil
}

// Save copies r to dir/name and returns the number of bytes written.
func (s *Storage) Save(dir, name string, r io.Reader) (int64, error) {
	p := s.Path(dir, name)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(p)
		return 0, err
	}
	return n, nil
}

// Path returns the on-disk path of dir/name.
func (s *Storage) Path(elem ...string) string {
	return filepath.Join(append([]string{s.Root}, elem...)...)
}

// URL returns the public URL of dir/name.
func (s *Storage) URL(elem ...string) string {
	return s.BaseURL + "/" + path.Join(elem...)
}

// Remove deletes dir/name, ignoring a missing file.
func (s *Storage) Remove(elem ...string) {
	_ = os.Remove(s.Path(elem...))
}
