// Package imagecache stores downloaded page images on the local filesystem,
// keyed by the resolved image request URL. Entries are immutable once
// written, which makes the cache safe to share across concurrent worker
// processes: a miss triggers a fetch and a write, never an invalidation.
package imagecache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Cache is a content-addressed, additive-only image store.
type Cache struct {
	baseDir string
}

// New creates the cache directory if needed and returns a Cache rooted there.
func New(baseDir string) (*Cache, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("cache directory must be provided")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache{baseDir: baseDir}, nil
}

// Path returns the deterministic cache location for an image URL. The file
// may or may not exist.
func (c *Cache) Path(imageURL, format string) string {
	sum := sha1.Sum([]byte(imageURL))
	hash := hex.EncodeToString(sum[:])
	name := hash[2:] + "." + strings.TrimPrefix(format, ".")
	return filepath.Join(c.baseDir, hash[:2], name)
}

// Get reports whether the image is cached and returns its path.
func (c *Cache) Get(imageURL, format string) (string, bool) {
	path := c.Path(imageURL, format)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path, false
	}
	return path, true
}

// Put writes image bytes for the URL and returns the cache path. The write
// goes through a temp file and a rename so a concurrent reader on a shared
// filesystem never observes a partial entry. If another process won the
// race, the existing entry is kept.
func (c *Cache) Put(imageURL, format string, data []byte) (string, error) {
	path := c.Path(imageURL, format)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create cache subdir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("publish cache file: %w", err)
	}
	return path, nil
}
