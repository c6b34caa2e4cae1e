package inmemorydb

import (
	"context"

	"github.com/ledgercore/ledgerd/internal/core/domain"
)

type balanceRepository struct {
	store *memStore
}

func (r *balanceRepository) GetBalance(
	ctx context.Context, key domain.BalanceKey,
) (*domain.AssetBalance, error) {
	unlock := r.store.readLock(ctx)
	defer unlock()

	balance, ok := r.store.balances[key.String()]
	if !ok {
		return nil, nil
	}
	return &balance, nil
}

func (r *balanceRepository) UpsertBalance(
	ctx context.Context, balance domain.AssetBalance,
) error {
	unlock := r.store.writeLock(ctx)
	defer unlock()

	r.store.balances[balance.BalanceKey.String()] = balance
	return nil
}

func (r *balanceRepository) DeleteBalance(ctx context.Context, key domain.BalanceKey) error {
	unlock := r.store.writeLock(ctx)
	defer unlock()

	delete(r.store.balances, key.String())
	return nil
}

func (r *balanceRepository) CountBalances(ctx context.Context, id domain.AssetId) (int, error) {
	unlock := r.store.readLock(ctx)
	defer unlock()

	count := 0
	for _, balance := range r.store.balances {
		if balance.AssetId == id {
			count++
		}
	}
	return count, nil
}

func (r *balanceRepository) GetBalancesByAsset(
	ctx context.Context, id domain.AssetId,
) ([]domain.AssetBalance, error) {
	unlock := r.store.readLock(ctx)
	defer unlock()

	balances := make([]domain.AssetBalance, 0)
	for _, balance := range r.store.balances {
		if balance.AssetId == id {
			balances = append(balances, balance)
		}
	}
	return balances, nil
}
