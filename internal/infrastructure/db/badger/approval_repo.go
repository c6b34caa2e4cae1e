package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/ledgercore/ledgerd/internal/core/domain"
)

type approvalRepository struct {
	store *badgerhold.Store
}

func (r *approvalRepository) GetApproval(
	ctx context.Context, key domain.ApprovalKey,
) (*domain.Approval, error) {
	var approval domain.Approval
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxGet(tx, key.String(), &approval)
	} else {
		err = r.store.Get(key.String(), &approval)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval %s: %w", key, err)
	}
	return &approval, nil
}

func (r *approvalRepository) UpsertApproval(
	ctx context.Context, approval domain.Approval,
) error {
	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxUpsert(tx, approval.ApprovalKey.String(), approval)
	}
	return withRetry(func() error {
		return r.store.Upsert(approval.ApprovalKey.String(), approval)
	})
}

func (r *approvalRepository) DeleteApproval(
	ctx context.Context, key domain.ApprovalKey,
) error {
	deleteFn := func() error {
		if tx, ok := txFromContext(ctx); ok {
			return r.store.TxDelete(tx, key.String(), domain.Approval{})
		}
		return withRetry(func() error {
			return r.store.Delete(key.String(), domain.Approval{})
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

func (r *approvalRepository) DeleteApprovalsByAsset(
	ctx context.Context, id domain.AssetId,
) error {
	query := badgerhold.Where("AssetId").Eq(id)
	if tx, ok := txFromContext(ctx); ok {
		return r.store.TxDeleteMatching(tx, domain.Approval{}, query)
	}
	return withRetry(func() error {
		return r.store.DeleteMatching(domain.Approval{}, query)
	})
}

func (r *approvalRepository) GetApprovalsByAsset(
	ctx context.Context, id domain.AssetId,
) ([]domain.Approval, error) {
	query := badgerhold.Where("AssetId").Eq(id)
	var approvals []domain.Approval
	var err error
	if tx, ok := txFromContext(ctx); ok {
		err = r.store.TxFind(tx, &approvals, query)
	} else {
		err = r.store.Find(&approvals, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals for asset %s: %w", id, err)
	}
	return approvals, nil
}
