package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/ledgercore/ledgerd/internal/core/domain"
)

type assetRepository struct {
	store *badgerhold.Store
}

// retiredAsset tombstones a destroyed asset id.
type retiredAsset struct {
	Id uint64
}

func (r *assetRepository) AddAsset(ctx context.Context, asset domain.AssetDetails) error {
	insertFn := func() error {
		if tx, ok := txFromContext(ctx); ok {
			return r.store.TxInsert(tx, uint64(asset.Id), asset)
		}
		return withRetry(func() error {
			return r.store.Insert(uint64(asset.Id), asset)
		})
	}
	if err := insertFn(); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("asset %s already exists", asset.Id)
		}
		return err
	}
	return nil
}

func (r *assetRepository) GetAsset(
	ctx context.Context, id domain.AssetId,
) (*domain.AssetDetails, error) {
	var asset domain.AssetDetails
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxGet(tx, uint64(id), &asset)
	} else {
		err = r.store.Get(uint64(id), &asset)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", id, err)
	}
	return &asset, nil
}

func (r *assetRepository) UpdateAsset(ctx context.Context, asset domain.AssetDetails) error {
	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxUpdate(tx, uint64(asset.Id), asset)
	}
	return withRetry(func() error {
		return r.store.Update(uint64(asset.Id), asset)
	})
}

func (r *assetRepository) DeleteAsset(ctx context.Context, id domain.AssetId) error {
	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxDelete(tx, uint64(id), domain.AssetDetails{})
	}
	return withRetry(func() error {
		return r.store.Delete(uint64(id), domain.AssetDetails{})
	})
}

func (r *assetRepository) RetireAsset(ctx context.Context, id domain.AssetId) error {
	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxUpsert(tx, uint64(id), retiredAsset{Id: uint64(id)})
	}
	return withRetry(func() error {
		return r.store.Upsert(uint64(id), retiredAsset{Id: uint64(id)})
	})
}

func (r *assetRepository) IsRetired(ctx context.Context, id domain.AssetId) (bool, error) {
	var tombstone retiredAsset
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxGet(tx, uint64(id), &tombstone)
	} else {
		err = r.store.Get(uint64(id), &tombstone)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check retired asset %s: %w", id, err)
	}
	return true, nil
}
