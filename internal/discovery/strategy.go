// Package discovery enumerates the local files a backup run should archive.
//
// Every strategy produces a lazy sequence of paths so that uploads can begin
// before enumeration has finished. Filesystem failures are yielded as errors
// rather than skipped.
package discovery

import (
	"context"
	"fmt"
	"iter"
	"strings"

	appErrors "glacier-backup/internal/errors"
)

// Kind identifies a discovery strategy
type Kind string

const (
	// KindFull archives every regular file under the source directory
	KindFull Kind = "Full"
	// KindAssets archives the contents of asset directories only
	KindAssets Kind = "Assets"
	// KindFile archives a single file
	KindFile Kind = "File"
	// KindList archives the paths listed in a manifest file
	KindList Kind = "List"
)

// Strategy produces the paths to back up for a given root
type Strategy interface {
	FindFiles(ctx context.Context, root string) iter.Seq2[string, error]
}

// Kinds returns every supported strategy kind
func Kinds() []Kind {
	return []Kind{KindFull, KindAssets, KindFile, KindList}
}

// ParseKind resolves a command-line backup type
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown backup type %q", s)
}

// RequiresDirectory reports whether the kind's source must be a directory
func (k Kind) RequiresDirectory() bool {
	return k == KindFull || k == KindAssets
}

func discoveryError(path string, err error) error {
	return appErrors.NewDiscoveryError(fmt.Sprintf("unable to read %s", path), err).
		WithContext("path", path)
}
