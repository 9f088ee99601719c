package discovery

import (
	"fmt"

	appErrors "glacier-backup/internal/errors"
)

// New creates the strategy for a backup kind. The vault name selects the
// asset marker unless an explicit marker is configured.
func New(kind Kind, vault, marker string) (Strategy, error) {
	switch kind {
	case KindFull:
		return NewRecursiveStrategy(), nil
	case KindAssets:
		if marker != "" {
			return NewAssetStrategyWithMarker(marker), nil
		}
		return NewAssetStrategy(vault), nil
	case KindFile:
		return NewSingleFileStrategy(), nil
	case KindList:
		return NewListStrategy(), nil
	default:
		return nil, appErrors.NewConfigurationError(fmt.Sprintf("unsupported backup type: %s", kind), nil).
			WithUserMessage("Please specify a valid backup type: Full, Assets, File, or List")
	}
}
