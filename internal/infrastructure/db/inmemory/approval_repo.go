package inmemorydb

import (
	"context"

	"github.com/ledgercore/ledgerd/internal/core/domain"
)

type approvalRepository struct {
	store *memStore
}

func (r *approvalRepository) GetApproval(
	ctx context.Context, key domain.ApprovalKey,
) (*domain.Approval, error) {
	unlock := r.store.readLock(ctx)
	defer unlock()

	approval, ok := r.store.approvals[key.String()]
	if !ok {
		return nil, nil
	}
	return &approval, nil
}

func (r *approvalRepository) UpsertApproval(
	ctx context.Context, approval domain.Approval,
) error {
	unlock := r.store.writeLock(ctx)
	defer unlock()

	r.store.approvals[approval.ApprovalKey.String()] = approval
	return nil
}

func (r *approvalRepository) DeleteApproval(
	ctx context.Context, key domain.ApprovalKey,
) error {
	unlock := r.store.writeLock(ctx)
	defer unlock()

	delete(r.store.approvals, key.String())
	return nil
}

func (r *approvalRepository) DeleteApprovalsByAsset(
	ctx context.Context, id domain.AssetId,
) error {
	unlock := r.store.writeLock(ctx)
	defer unlock()

	for key, approval := range r.store.approvals {
		if approval.AssetId == id {
			delete(r.store.approvals, key)
		}
	}
	return nil
}

func (r *approvalRepository) GetApprovalsByAsset(
	ctx context.Context, id domain.AssetId,
) ([]domain.Approval, error) {
	unlock := r.store.readLock(ctx)
	defer unlock()

	approvals := make([]domain.Approval, 0)
	for _, approval := range r.store.approvals {
		if approval.AssetId == id {
			approvals = append(approvals, approval)
		}
	}
	return approvals, nil
}
