// Package cache implements the persistent staleness table that decides, for
// every tracked path and every consumer of that path, whether the path
// changed since the consumer last observed it.
//
// Fingerprints are keyed per (path, consumer) rather than per path: the same
// artifact may be consumed by several stages at different times, and one
// consumer observing a change must not retroactively invalidate a consumer
// that already incorporated the new content.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/vk/flowgrid/internal/ctxlog"
)

// Status is the last change classification recorded for a (path, consumer)
// pair.
type Status string

const (
	StatusChanged   Status = "changed"
	StatusSame      Status = "same"
	StatusUntracked Status = "untracked"
)

// DirectTarget is the reserved consumer identifier for paths requested
// directly as build targets rather than on behalf of any stage.
const DirectTarget = "__target"

// dirFingerprint is the constant fingerprint stored for directories.
// Directory contents are not traversed; only existence is tracked.
const dirFingerprint = "0"

type entry struct {
	Fingerprint string `json:"fingerprint"`
	Status      Status `json:"status"`
}

// Cache tracks content fingerprints of build artifacts across flow runs.
// A single in-process owner is assumed; there is no locking.
type Cache struct {
	path    string
	entries map[string]map[string]entry // path -> consumer -> entry
}

// New creates a cache persisted at path. The table starts empty; call Load
// to read the previous run's state.
func New(path string) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]map[string]entry),
	}
}

// Update classifies the current state of path as observed by consumer and
// reports whether it changed.
//
// A vanished path drops the consumer's entry (pruning the path entirely
// once no consumers remain) and reports true: downstream artifacts that
// depend on a vanished input are stale by definition. Otherwise the content
// fingerprint is compared with the last one stored for (path, consumer); a
// mismatch or missing record stores the new fingerprint and records
// "changed", a match records "same".
func (c *Cache) Update(path, consumer string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.pop(path, consumer)
			return true, nil
		}
		return true, fmt.Errorf("stat %s: %w", path, err)
	}

	fingerprint := dirFingerprint
	if !info.IsDir() {
		fingerprint, err = fileFingerprint(path, info.Mode()&os.ModeSymlink != 0)
		if err != nil {
			return true, err
		}
	}

	consumers := c.entries[path]
	last, tracked := consumers[consumer]
	if !tracked || last.Fingerprint != fingerprint {
		c.push(path, consumer, entry{Fingerprint: fingerprint, Status: StatusChanged})
		return true, nil
	}
	c.push(path, consumer, entry{Fingerprint: fingerprint, Status: StatusSame})
	return false, nil
}

// Status returns the classification recorded by the last Update for
// (path, consumer), or StatusUntracked if that exact pair was never
// updated. Calling it before any Update is legal.
func (c *Cache) Status(path, consumer string) Status {
	consumers, ok := c.entries[path]
	if !ok {
		return StatusUntracked
	}
	e, ok := consumers[consumer]
	if !ok {
		return StatusUntracked
	}
	return e.Status
}

func (c *Cache) push(path, consumer string, e entry) {
	consumers := c.entries[path]
	if consumers == nil {
		consumers = make(map[string]entry)
		c.entries[path] = consumers
	}
	consumers[consumer] = e
}

// pop removes the consumer's record and prunes the path once no consumers
// remain; the table never retains dangling entries.
func (c *Cache) pop(path, consumer string) {
	consumers, ok := c.entries[path]
	if !ok {
		return
	}
	delete(consumers, consumer)
	if len(consumers) == 0 {
		delete(c.entries, path)
	}
}

// Load reads the table from the cache file. A missing or corrupt file is
// not fatal: the table is reset to empty, forcing a full rebuild on the
// next run, and a warning is logged.
func (c *Cache) Load(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	c.entries = make(map[string]map[string]entry)

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Couldn't open the staleness cache file. The flow will re-execute from the beginning.", "path", c.path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(raw, &c.entries); err != nil {
		logger.Warn("The staleness cache file is corrupted. The flow will re-execute from the beginning.", "path", c.path, "error", err)
		c.entries = make(map[string]map[string]entry)
		return
	}

	// A JSON null decodes without error but leaves nil maps behind; a nil
	// table or nil inner map must never reach Update.
	if c.entries == nil {
		c.entries = make(map[string]map[string]entry)
		return
	}
	for path, consumers := range c.entries {
		if consumers == nil {
			delete(c.entries, path)
		}
	}
}

// Save writes the whole table atomically: the file is rewritten through a
// temp file in the same directory and renamed into place.
func (c *Cache) Save() error {
	raw, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode staleness cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write staleness cache: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write staleness cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write staleness cache: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write staleness cache: %w", err)
	}
	return nil
}

// fileFingerprint computes the fast non-cryptographic content hash for a
// regular file or symlink target. A dangling symlink hashes its destination
// string instead, so the link still counts as present.
func fileFingerprint(path string, symlink bool) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if symlink && errors.Is(err, os.ErrNotExist) {
			dest, lerr := os.Readlink(path)
			if lerr != nil {
				return "", fmt.Errorf("read symlink %s: %w", path, lerr)
			}
			raw = []byte(dest)
		} else {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	}
	return strconv.FormatUint(xxhash.Sum64(raw), 10), nil
}
