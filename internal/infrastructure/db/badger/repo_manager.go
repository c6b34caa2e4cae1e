package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ledgercore/ledgerd/internal/core/domain"
	"github.com/ledgercore/ledgerd/internal/core/ports"
)

const ledgerStoreDir = "ledger"

// repoManager shares one badgerhold store across the three
// repositories so a single badger transaction can span registry,
// ledger and approval writes.
type repoManager struct {
	store     *badgerhold.Store
	assets    domain.AssetRepository
	balances  domain.BalanceRepository
	approvals domain.ApprovalRepository
}

func NewRepoManager(config ...interface{}) (ports.RepoManager, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, ledgerStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %s", err)
	}

	return &repoManager{
		store:     store,
		assets:    &assetRepository{store},
		balances:  &balanceRepository{store},
		approvals: &approvalRepository{store},
	}, nil
}

func (m *repoManager) Assets() domain.AssetRepository {
	return m.assets
}

func (m *repoManager) Balances() domain.BalanceRepository {
	return m.balances
}

func (m *repoManager) Approvals() domain.ApprovalRepository {
	return m.approvals
}

func (m *repoManager) Transaction(
	ctx context.Context, fn func(ctx context.Context) error,
) error {
	return withRetry(func() error {
		return m.store.Badger().Update(func(tx *badger.Txn) error {
			return fn(context.WithValue(ctx, "tx", tx))
		})
	})
}

func (m *repoManager) Close() {
	// nolint:all
	m.store.Close()
}

func txFromContext(ctx context.Context) (*badger.Txn, bool) {
	tx, ok := ctx.Value("tx").(*badger.Txn)
	return tx, ok
}
