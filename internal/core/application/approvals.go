package application

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/ledgercore/ledgerd/internal/core/domain"
	"github.com/ledgercore/ledgerd/pkg/errors"
)

func (s *ledgerService) Approve(
	ctx context.Context, id domain.AssetId, owner, delegate domain.AccountId,
	amount, deposit uint64,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		if _, err := s.getAsset(ctx, id); err != nil {
			return err
		}
		key := domain.ApprovalKey{AssetId: id, Owner: owner, Delegate: delegate}
		approval, err := s.repoManager.Approvals().GetApproval(ctx, key)
		if err != nil {
			return err
		}
		if approval == nil {
			// The deposit is taken once, on creation only.
			approval = &domain.Approval{
				ApprovalKey: key,
				Amount:      amount,
				Deposit:     deposit,
			}
		} else {
			newAmount, ok := domain.CheckedAdd(approval.Amount, amount)
			if !ok {
				return errors.OVERFLOW.New(
					"topping up approval for %s on asset %s by %d overflows",
					delegate, id, amount,
				).WithMetadata(errors.BalanceErrMetadata{
					AssetId: uint64(id), Account: string(owner),
					Balance: approval.Amount, Requested: amount,
				})
			}
			approval.Amount = newAmount
		}
		if err := s.repoManager.Approvals().UpsertApproval(ctx, *approval); err != nil {
			return err
		}
		log.Debugf(
			"approved %d of asset %s for delegate %s on behalf of %s",
			amount, id, delegate, owner,
		)
		return nil
	})
}

func (s *ledgerService) CancelApproval(
	ctx context.Context, id domain.AssetId, caller, owner, delegate domain.AccountId,
) (uint64, errors.Error) {
	var deposit uint64
	err := s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if caller != owner && !asset.IsAdminLevel(caller) {
			return noPermission(id, caller, domain.RoleAdmin)
		}
		key := domain.ApprovalKey{AssetId: id, Owner: owner, Delegate: delegate}
		approval, repoErr := s.repoManager.Approvals().GetApproval(ctx, key)
		if repoErr != nil {
			return repoErr
		}
		if approval == nil {
			return errors.APPROVAL_NOT_FOUND.New(
				"no approval for delegate %s on asset %s", delegate, id,
			).WithMetadata(errors.ApprovalErrMetadata{
				AssetId: uint64(id), Owner: string(owner), Delegate: string(delegate),
			})
		}
		if err := s.repoManager.Approvals().DeleteApproval(ctx, key); err != nil {
			return err
		}
		deposit = approval.Deposit
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deposit, nil
}

// spendApproval consumes amount from the delegate's allowance, removing
// the entry once it reaches zero. Runs inside the caller's transaction.
func (s *ledgerService) spendApproval(
	ctx context.Context, id domain.AssetId, owner, delegate domain.AccountId,
	amount uint64,
) error {
	key := domain.ApprovalKey{AssetId: id, Owner: owner, Delegate: delegate}
	approval, err := s.repoManager.Approvals().GetApproval(ctx, key)
	if err != nil {
		return err
	}
	if approval == nil || approval.Amount < amount {
		var remaining uint64
		if approval != nil {
			remaining = approval.Amount
		}
		return errors.UNAPPROVED.New(
			"delegate %s may spend %d of asset %s on behalf of %s, requested %d",
			delegate, remaining, id, owner, amount,
		).WithMetadata(errors.ApprovalErrMetadata{
			AssetId: uint64(id), Owner: string(owner), Delegate: string(delegate),
			Remaining: remaining, Requested: amount,
		})
	}
	approval.Amount -= amount
	if approval.Amount == 0 {
		return s.repoManager.Approvals().DeleteApproval(ctx, key)
	}
	return s.repoManager.Approvals().UpsertApproval(ctx, *approval)
}
