package ports

import (
	"context"

	"github.com/ledgercore/ledgerd/internal/core/domain"
)

type RepoManager interface {
	Assets() domain.AssetRepository
	Balances() domain.BalanceRepository
	Approvals() domain.ApprovalRepository
	// Transaction runs fn atomically across the three repositories.
	// If fn returns an error, every write made inside it is discarded;
	// no observer ever sees an intermediate state.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	Close()
}
