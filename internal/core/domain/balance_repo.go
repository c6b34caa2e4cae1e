package domain

import "context"

type BalanceRepository interface {
	// GetBalance returns the balance entry, or nil if absent.
	GetBalance(ctx context.Context, key BalanceKey) (*AssetBalance, error)
	// UpsertBalance creates or overwrites a balance entry.
	UpsertBalance(ctx context.Context, balance AssetBalance) error
	// DeleteBalance removes a balance entry.
	DeleteBalance(ctx context.Context, key BalanceKey) error
	// CountBalances returns the number of balance entries for an asset.
	CountBalances(ctx context.Context, id AssetId) (int, error)
	// GetBalancesByAsset returns all balance entries for an asset.
	GetBalancesByAsset(ctx context.Context, id AssetId) ([]AssetBalance, error)
}
