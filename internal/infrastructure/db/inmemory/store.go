package inmemorydb

import (
	"context"
	"sync"

	"github.com/ledgercore/ledgerd/internal/core/domain"
	"github.com/ledgercore/ledgerd/internal/core/ports"
)

// txContextKey marks a context as running inside Transaction, where the
// store lock is already held.
type txContextKey struct{}

type memStore struct {
	lock      sync.RWMutex
	assets    map[domain.AssetId]domain.AssetDetails
	retired   map[domain.AssetId]struct{}
	balances  map[string]domain.AssetBalance
	approvals map[string]domain.Approval
}

func newMemStore() *memStore {
	return &memStore{
		assets:    make(map[domain.AssetId]domain.AssetDetails),
		retired:   make(map[domain.AssetId]struct{}),
		balances:  make(map[string]domain.AssetBalance),
		approvals: make(map[string]domain.Approval),
	}
}

func inTx(ctx context.Context) bool {
	return ctx.Value(txContextKey{}) != nil
}

// readLock acquires the read lock unless the context already runs
// inside a transaction. Returns the matching unlock func.
func (s *memStore) readLock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.lock.RLock()
	return s.lock.RUnlock
}

func (s *memStore) writeLock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.lock.Lock()
	return s.lock.Unlock
}

func (s *memStore) snapshot() *memStore {
	snap := newMemStore()
	for id, asset := range s.assets {
		snap.assets[id] = cloneAsset(asset)
	}
	for id := range s.retired {
		snap.retired[id] = struct{}{}
	}
	for key, balance := range s.balances {
		snap.balances[key] = balance
	}
	for key, approval := range s.approvals {
		snap.approvals[key] = approval
	}
	return snap
}

func (s *memStore) restore(snap *memStore) {
	s.assets = snap.assets
	s.retired = snap.retired
	s.balances = snap.balances
	s.approvals = snap.approvals
}

func cloneAsset(asset domain.AssetDetails) domain.AssetDetails {
	if len(asset.Metadata) > 0 {
		metadata := make([]domain.AssetMetadata, len(asset.Metadata))
		copy(metadata, asset.Metadata)
		asset.Metadata = metadata
	}
	return asset
}

type repoManager struct {
	store     *memStore
	assets    domain.AssetRepository
	balances  domain.BalanceRepository
	approvals domain.ApprovalRepository
}

func NewRepoManager() ports.RepoManager {
	store := newMemStore()
	return &repoManager{
		store:     store,
		assets:    &assetRepository{store},
		balances:  &balanceRepository{store},
		approvals: &approvalRepository{store},
	}
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

// Transaction serializes writers and rolls the whole store back to its
// prior snapshot if fn fails, so no partial mutation is ever observed.
func (m *repoManager) Transaction(
	ctx context.Context, fn func(ctx context.Context) error,
) error {
	m.store.lock.Lock()
	defer m.store.lock.Unlock()

	snap := m.store.snapshot()
	if err := fn(context.WithValue(ctx, txContextKey{}, struct{}{})); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

func (m *repoManager) Close() {}
