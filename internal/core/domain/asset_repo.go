package domain

import "context"

type AssetRepository interface {
	// AddAsset installs a new asset record. Fails if the id is taken.
	AddAsset(ctx context.Context, asset AssetDetails) error
	// GetAsset returns the asset record, or nil if absent.
	GetAsset(ctx context.Context, id AssetId) (*AssetDetails, error)
	// UpdateAsset overwrites an existing asset record.
	UpdateAsset(ctx context.Context, asset AssetDetails) error
	// DeleteAsset removes the asset record.
	DeleteAsset(ctx context.Context, id AssetId) error
	// RetireAsset tombstones a destroyed id so it can never be reused.
	RetireAsset(ctx context.Context, id AssetId) error
	// IsRetired reports whether the id belongs to a destroyed asset.
	IsRetired(ctx context.Context, id AssetId) (bool, error)
}
