package inmemorydb

import (
	"context"
	"fmt"

	"github.com/ledgercore/ledgerd/internal/core/domain"
)

type assetRepository struct {
	store *memStore
}

func (r *assetRepository) AddAsset(ctx context.Context, asset domain.AssetDetails) error {
	unlock := r.store.writeLock(ctx)
	defer unlock()

	if _, ok := r.store.assets[asset.Id]; ok {
		return fmt.Errorf("asset %s already exists", asset.Id)
	}
	r.store.assets[asset.Id] = cloneAsset(asset)
	return nil
}

func (r *assetRepository) GetAsset(
	ctx context.Context, id domain.AssetId,
) (*domain.AssetDetails, error) {
	unlock := r.store.readLock(ctx)
	defer unlock()

	asset, ok := r.store.assets[id]
	if !ok {
		return nil, nil
	}
	asset = cloneAsset(asset)
	return &asset, nil
}

func (r *assetRepository) UpdateAsset(ctx context.Context, asset domain.AssetDetails) error {
	unlock := r.store.writeLock(ctx)
	defer unlock()

	if _, ok := r.store.assets[asset.Id]; !ok {
		return fmt.Errorf("asset %s not found", asset.Id)
	}
	r.store.assets[asset.Id] = cloneAsset(asset)
	return nil
}

func (r *assetRepository) DeleteAsset(ctx context.Context, id domain.AssetId) error {
	unlock := r.store.writeLock(ctx)
	defer unlock()

	delete(r.store.assets, id)
	return nil
}

func (r *assetRepository) RetireAsset(ctx context.Context, id domain.AssetId) error {
	unlock := r.store.writeLock(ctx)
	defer unlock()

	r.store.retired[id] = struct{}{}
	return nil
}

func (r *assetRepository) IsRetired(ctx context.Context, id domain.AssetId) (bool, error) {
	unlock := r.store.readLock(ctx)
	defer unlock()

	_, ok := r.store.retired[id]
	return ok, nil
}
