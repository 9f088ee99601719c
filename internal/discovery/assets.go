package discovery

import (
	"context"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
)

// Marker directory names used by the asset vaults
const (
	PhotoAssetMarker = "src"
	VideoAssetMarker = "raw"
)

// AssetStrategy yields the files inside directories named after a marker.
// Files outside marker directories are ignored.
type AssetStrategy struct {
	marker string
}

// NewAssetStrategyWithMarker creates an asset strategy for an explicit marker
func NewAssetStrategyWithMarker(marker string) *AssetStrategy {
	return &AssetStrategy{marker: marker}
}

// NewAssetStrategy resolves the marker from the vault name. Vaults that
// mention videos use the raw marker; everything else is treated as photos.
func NewAssetStrategy(vault string) *AssetStrategy {
	if strings.Contains(strings.ToLower(vault), "video") {
		return NewAssetStrategyWithMarker(VideoAssetMarker)
	}
	return NewAssetStrategyWithMarker(PhotoAssetMarker)
}

// Marker returns the directory name this strategy matches
func (s *AssetStrategy) Marker() string {
	return s.marker
}

// FindFiles walks root looking for marker directories
func (s *AssetStrategy) FindFiles(ctx context.Context, root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield("", discoveryError(path, err)) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if !d.IsDir() {
				return nil
			}
			if !strings.EqualFold(d.Name(), s.marker) {
				return nil
			}
			if !walkRegularFiles(ctx, path, yield) {
				return filepath.SkipAll
			}
			return filepath.SkipDir
		})
	}
}
