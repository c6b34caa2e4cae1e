package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/ledgercore/ledgerd/internal/core/domain"
)

type balanceRepository struct {
	store *badgerhold.Store
}

func (r *balanceRepository) GetBalance(
	ctx context.Context, key domain.BalanceKey,
) (*domain.AssetBalance, error) {
	var balance domain.AssetBalance
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxGet(tx, key.String(), &balance)
	} else {
		err = r.store.Get(key.String(), &balance)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance %s: %w", key, err)
	}
	return &balance, nil
}

func (r *balanceRepository) UpsertBalance(
	ctx context.Context, balance domain.AssetBalance,
) error {
	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxUpsert(tx, balance.BalanceKey.String(), balance)
	}
	return withRetry(func() error {
		return r.store.Upsert(balance.BalanceKey.String(), balance)
	})
}

func (r *balanceRepository) DeleteBalance(ctx context.Context, key domain.BalanceKey) error {
	deleteFn := func() error {
		if tx, ok := txFromContext(ctx); ok {
			return r.store.TxDelete(tx, key.String(), domain.AssetBalance{})
		}
		return withRetry(func() error {
			return r.store.Delete(key.String(), domain.AssetBalance{})
		})
	}
	if err := deleteFn(); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (r *balanceRepository) CountBalances(ctx context.Context, id domain.AssetId) (int, error) {
	query := badgerhold.Where("AssetId").Eq(id)
	var count uint64
	var err error
	if tx, ok := txFromContext(ctx); ok {
		count, err = r.store.TxCount(tx, domain.AssetBalance{}, query)
	} else {
		count, err = r.store.Count(domain.AssetBalance{}, query)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count balances for asset %s: %w", id, err)
	}
	return int(count), nil
}

func (r *balanceRepository) GetBalancesByAsset(
	ctx context.Context, id domain.AssetId,
) ([]domain.AssetBalance, error) {
	query := badgerhold.Where("AssetId").Eq(id)
	var balances []domain.AssetBalance
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxFind(tx, &balances, query)
	} else {
		err = r.store.Find(&balances, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list balances for asset %s: %w", id, err)
	}
	return balances, nil
}
