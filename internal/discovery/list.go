package discovery

import (
	"bufio"
	"context"
	"iter"
	"os"
	"strings"
)

const maxManifestLine = 1024 * 1024

// ListStrategy treats the root as a manifest of paths, one per line
type ListStrategy struct{}

// NewListStrategy creates a strategy for manifest-driven backups
func NewListStrategy() *ListStrategy {
	return &ListStrategy{}
}

// FindFiles yields each non-blank manifest line as written. Lines are not
// trimmed; only whitespace-only lines are skipped.
func (s *ListStrategy) FindFiles(ctx context.Context, root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, err := os.Open(root)
		if err != nil {
			yield("", discoveryError(root, err))
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), maxManifestLine)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := strings.TrimSuffix(scanner.Text(), "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !yield(line, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", discoveryError(root, err))
		}
	}
}
