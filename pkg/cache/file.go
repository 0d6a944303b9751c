package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	terrors "github.com/factorial/trendline/pkg/errors"
)

// FileCache stores one JSON file per entry, laid out as
//
//	<dir>/<kind>/<hash[:2]>/<hash[2:]>.json
//
// where kind is "series" or "artifact" depending on the key.
type FileCache struct {
	dir string
}

// NewFileCache creates a file-based cache in dir, creating it if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, terrors.Wrap(terrors.ErrCodeCacheBackend, err, "create cache directory")
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the directory entries are stored in.
func (c *FileCache) Dir() string { return c.dir }

type fileEntry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (e fileEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Get reads key. Unreadable, mismatched and expired entries are removed
// and reported as misses.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path := c.path(key)

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, terrors.Wrap(terrors.ErrCodeCacheBackend, err, "read %s", key)
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Key != key || entry.expired(time.Now()) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Set writes key atomically so concurrent readers never see a partial file.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := fileEntry{Key: key, Data: data, CreatedAt: time.Now()}
	if ttl > 0 {
		entry.ExpiresAt = entry.CreatedAt.Add(ttl)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return terrors.Wrap(terrors.ErrCodeInternal, err, "encode cache entry")
	}

	path := c.path(key)
	if err := writeAtomic(path, raw); err != nil {
		return terrors.Wrap(terrors.ErrCodeCacheBackend, err, "write %s", key)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Delete removes key. Missing keys are ignored.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return terrors.Wrap(terrors.ErrCodeCacheBackend, err, "delete %s", key)
	}
	return nil
}

// Clear removes every entry and returns how many were deleted.
func (c *FileCache) Clear() (int, error) {
	var n int
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		n++
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return n, nil
	}
	if err != nil {
		return n, terrors.Wrap(terrors.ErrCodeCacheBackend, err, "clear cache")
	}
	return n, nil
}

// Close is a no-op.
func (c *FileCache) Close() error { return nil }

func (c *FileCache) path(key string) string {
	h := Hash([]byte(key))
	return filepath.Join(c.dir, keyKind(key), h[:2], h[2:]+".json")
}

// keyKind returns the entry kind named in key, or "other".
func keyKind(key string) string {
	for part := range strings.SplitSeq(key, ":") {
		if part == "series" || part == "artifact" {
			return part
		}
	}
	return "other"
}

var _ Cache = (*FileCache)(nil)
