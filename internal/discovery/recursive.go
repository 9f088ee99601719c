package discovery

import (
	"context"
	"io/fs"
	"iter"
	"path/filepath"
)

// RecursiveStrategy yields every regular file beneath the root
type RecursiveStrategy struct{}

// NewRecursiveStrategy creates a strategy for full backups
func NewRecursiveStrategy() *RecursiveStrategy {
	return &RecursiveStrategy{}
}

// FindFiles walks root in lexical order
func (s *RecursiveStrategy) FindFiles(ctx context.Context, root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		walkRegularFiles(ctx, root, yield)
	}
}

// walkRegularFiles yields the regular files under root and reports whether
// the consumer wants more.
func walkRegularFiles(ctx context.Context, root string, yield func(string, error) bool) bool {
	stopped := false
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if !yield("", discoveryError(path, err)) {
				stopped = true
				return filepath.SkipAll
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			stopped = true
			return filepath.SkipAll
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !yield(path, nil) {
			stopped = true
			return filepath.SkipAll
		}
		return nil
	})
	return !stopped
}
