package fetch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Cache persists resolved paper content between runs, keyed by arXiv id.
// Entries carry their provenance so a PDF extraction is not relabeled as an
// HTML rendition on a later run. A nil *Cache is a valid no-op cache.
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir, or nil when dir is empty.
func NewCache(dir string) *Cache {
	if dir == "" {
		return nil
	}
	return &Cache{dir: dir}
}

// Get returns cached content for an id, if present.
func (c *Cache) Get(arxivID string) (Content, bool) {
	if c == nil {
		return Content{}, false
	}
	data, err := os.ReadFile(c.path(arxivID))
	if err != nil {
		return Content{}, false
	}
	var content Content
	if err := json.Unmarshal(data, &content); err != nil || content.Text == "" {
		return Content{}, false
	}
	return content, true
}

// Put stores content for an id. Failures are silent; the cache is advisory.
func (c *Cache) Put(arxivID string, content Content) {
	if c == nil || content.Text == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return
	}
	data, err := json.Marshal(content)
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path(arxivID), data, 0644)
}

func (c *Cache) path(arxivID string) string {
	safe := strings.ReplaceAll(arxivID, "/", "_")
	return filepath.Join(c.dir, safe+".json")
}
