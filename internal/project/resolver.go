// Package project resolves working directories to stable project names.
package project

import (
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

const cacheSize = 256

// Resolver maps a working directory to a project name: the base name of the
// enclosing git repository when there is one, otherwise the directory's own
// base name. Results are cached since hooks resolve the same few directories
// over and over.
type Resolver struct {
	cache *lru.Cache[string, string]
}

// NewResolver creates a resolver with an LRU result cache.
func NewResolver() (*Resolver, error) {
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Resolver{cache: cache}, nil
}

// Resolve returns the project name for dir.
func (r *Resolver) Resolve(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}

	if name, ok := r.cache.Get(abs); ok {
		return name
	}

	name := filepath.Base(abs)
	if root, ok := gitToplevel(abs); ok {
		name = filepath.Base(root)
	}

	r.cache.Add(abs, name)
	return name
}

// gitToplevel walks up from dir looking for a .git entry.
func gitToplevel(dir string) (string, bool) {
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
