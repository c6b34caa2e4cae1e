package application

import (
	"context"

	"github.com/ledgercore/ledgerd/internal/core/domain"
	"github.com/ledgercore/ledgerd/internal/core/ports"
	"github.com/ledgercore/ledgerd/pkg/errors"
)

// LedgerService is the single entry point for all state transitions of
// the multi-asset ledger. Every mutating operation is applied as one
// indivisible step: it either commits in full or leaves the prior state
// untouched. Authorization is checked here, never in the repositories.
type LedgerService interface {
	// Registry operations.
	CreateAsset(
		ctx context.Context, id domain.AssetId, owner domain.AccountId,
		minBalance uint64, isSufficient bool,
	) errors.Error
	DestroyAsset(ctx context.Context, id domain.AssetId, caller domain.AccountId) errors.Error
	SetTeam(
		ctx context.Context, id domain.AssetId,
		caller, issuer, admin, freezer domain.AccountId,
	) errors.Error
	TransferOwnership(
		ctx context.Context, id domain.AssetId, caller, newOwner domain.AccountId,
	) errors.Error
	FreezeAsset(ctx context.Context, id domain.AssetId, caller domain.AccountId) errors.Error
	ThawAsset(ctx context.Context, id domain.AssetId, caller domain.AccountId) errors.Error
	SetMetadata(
		ctx context.Context, id domain.AssetId, caller domain.AccountId,
		entries []domain.AssetMetadata,
	) errors.Error
	ClearMetadata(ctx context.Context, id domain.AssetId, caller domain.AccountId) errors.Error

	// Account freeze operations.
	FreezeAccount(
		ctx context.Context, id domain.AssetId, caller, account domain.AccountId,
	) errors.Error
	ThawAccount(
		ctx context.Context, id domain.AssetId, caller, account domain.AccountId,
	) errors.Error

	// Supply and transfer operations.
	Mint(
		ctx context.Context, id domain.AssetId, caller, beneficiary domain.AccountId,
		amount uint64,
	) errors.Error
	// Burn returns the amount actually removed from supply, which
	// exceeds the requested amount when a sub-minimum remainder is
	// dust-swept alongside it.
	Burn(
		ctx context.Context, id domain.AssetId, caller, target domain.AccountId,
		amount uint64,
	) (uint64, errors.Error)
	Transfer(
		ctx context.Context, id domain.AssetId, from, to domain.AccountId,
		amount uint64, keepAlive bool,
	) errors.Error
	ForceTransfer(
		ctx context.Context, id domain.AssetId, caller, from, to domain.AccountId,
		amount uint64,
	) errors.Error
	TransferApproved(
		ctx context.Context, id domain.AssetId, delegate, owner, destination domain.AccountId,
		amount uint64,
	) errors.Error

	// Approval operations.
	Approve(
		ctx context.Context, id domain.AssetId, owner, delegate domain.AccountId,
		amount, deposit uint64,
	) errors.Error
	// CancelApproval returns the deposit to be refunded to the owner.
	CancelApproval(
		ctx context.Context, id domain.AssetId, caller, owner, delegate domain.AccountId,
	) (uint64, errors.Error)

	// Queries.
	GetAsset(ctx context.Context, id domain.AssetId) (*domain.AssetDetails, errors.Error)
	TotalSupply(ctx context.Context, id domain.AssetId) (uint64, errors.Error)
	Balance(ctx context.Context, id domain.AssetId, account domain.AccountId) (uint64, errors.Error)
	ReducibleBalance(
		ctx context.Context, id domain.AssetId, account domain.AccountId, keepAlive bool,
	) (uint64, errors.Error)
	GetApproval(
		ctx context.Context, id domain.AssetId, owner, delegate domain.AccountId,
	) (*domain.Approval, errors.Error)
	// CheckInvariants audits that supply equals the sum of balances and
	// that no dust state persists for the asset.
	CheckInvariants(ctx context.Context, id domain.AssetId) errors.Error
}

type ledgerService struct {
	repoManager ports.RepoManager
}

func NewLedgerService(repoManager ports.RepoManager) LedgerService {
	return &ledgerService{repoManager: repoManager}
}

// transact runs fn atomically and normalizes the returned error to the
// typed taxonomy.
func (s *ledgerService) transact(
	ctx context.Context, fn func(ctx context.Context) error,
) errors.Error {
	if err := s.repoManager.Transaction(ctx, fn); err != nil {
		if typed, ok := err.(errors.Error); ok {
			return typed
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	return nil
}

// getAsset loads an asset record, mapping absence to ASSET_NOT_FOUND.
func (s *ledgerService) getAsset(
	ctx context.Context, id domain.AssetId,
) (*domain.AssetDetails, errors.Error) {
	asset, err := s.repoManager.Assets().GetAsset(ctx, id)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if asset == nil {
		return nil, errors.ASSET_NOT_FOUND.New("asset %s not registered", id).
			WithMetadata(errors.AssetErrMetadata{AssetId: uint64(id)})
	}
	return asset, nil
}

func (s *ledgerService) GetAsset(
	ctx context.Context, id domain.AssetId,
) (*domain.AssetDetails, errors.Error) {
	return s.getAsset(ctx, id)
}

func (s *ledgerService) TotalSupply(
	ctx context.Context, id domain.AssetId,
) (uint64, errors.Error) {
	asset, err := s.getAsset(ctx, id)
	if err != nil {
		return 0, err
	}
	return asset.Supply, nil
}

func (s *ledgerService) Balance(
	ctx context.Context, id domain.AssetId, account domain.AccountId,
) (uint64, errors.Error) {
	bal, err := s.repoManager.Balances().GetBalance(
		ctx, domain.BalanceKey{AssetId: id, Account: account},
	)
	if err != nil {
		return 0, errors.INTERNAL_ERROR.Wrap(err)
	}
	if bal == nil {
		return 0, nil
	}
	return bal.Balance, nil
}

func (s *ledgerService) ReducibleBalance(
	ctx context.Context, id domain.AssetId, account domain.AccountId, keepAlive bool,
) (uint64, errors.Error) {
	asset, err := s.getAsset(ctx, id)
	if err != nil {
		return 0, err
	}
	if asset.IsFrozen {
		return 0, nil
	}
	bal, repoErr := s.repoManager.Balances().GetBalance(
		ctx, domain.BalanceKey{AssetId: id, Account: account},
	)
	if repoErr != nil {
		return 0, errors.INTERNAL_ERROR.Wrap(repoErr)
	}
	if bal == nil || bal.IsFrozen {
		return 0, nil
	}
	if !keepAlive {
		return bal.Balance, nil
	}
	reducible, ok := domain.CheckedSub(bal.Balance, asset.MinBalance)
	if !ok {
		return 0, nil
	}
	return reducible, nil
}

func (s *ledgerService) GetApproval(
	ctx context.Context, id domain.AssetId, owner, delegate domain.AccountId,
) (*domain.Approval, errors.Error) {
	approval, err := s.repoManager.Approvals().GetApproval(
		ctx, domain.ApprovalKey{AssetId: id, Owner: owner, Delegate: delegate},
	)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if approval == nil {
		return nil, errors.APPROVAL_NOT_FOUND.New(
			"no approval for delegate %s on asset %s", delegate, id,
		).WithMetadata(errors.ApprovalErrMetadata{
			AssetId: uint64(id), Owner: string(owner), Delegate: string(delegate),
		})
	}
	return approval, nil
}

func (s *ledgerService) CheckInvariants(
	ctx context.Context, id domain.AssetId,
) errors.Error {
	asset, err := s.getAsset(ctx, id)
	if err != nil {
		return err
	}
	balances, repoErr := s.repoManager.Balances().GetBalancesByAsset(ctx, id)
	if repoErr != nil {
		return errors.INTERNAL_ERROR.Wrap(repoErr)
	}
	var sum uint64
	for _, bal := range balances {
		if bal.Balance == 0 || bal.Balance < asset.MinBalance {
			return errors.INTERNAL_ERROR.New(
				"dust state persisted for %s on asset %s: balance %d below minimum %d",
				bal.Account, id, bal.Balance, asset.MinBalance,
			)
		}
		next, ok := domain.CheckedAdd(sum, bal.Balance)
		if !ok {
			return errors.SUPPLY_MISMATCH.New("balance sum overflow on asset %s", id).
				WithMetadata(errors.SupplyErrMetadata{AssetId: uint64(id), Supply: asset.Supply})
		}
		sum = next
	}
	if sum != asset.Supply {
		return errors.SUPPLY_MISMATCH.New(
			"asset %s supply %d does not match balance sum %d", id, asset.Supply, sum,
		).WithMetadata(errors.SupplyErrMetadata{
			AssetId: uint64(id), Supply: asset.Supply, Balances: sum,
		})
	}
	if int(asset.Accounts) != len(balances) {
		return errors.INTERNAL_ERROR.New(
			"asset %s accounts counter %d does not match %d stored entries",
			id, asset.Accounts, len(balances),
		)
	}
	return nil
}

func noPermission(
	id domain.AssetId, caller domain.AccountId, role domain.Role,
) errors.Error {
	return errors.NO_PERMISSION.New(
		"%s does not hold the %s role on asset %s", caller, role, id,
	).WithMetadata(errors.PermissionErrMetadata{
		AssetId: uint64(id), Caller: string(caller), Role: string(role),
	})
}
