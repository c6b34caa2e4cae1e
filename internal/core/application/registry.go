package application

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/ledgercore/ledgerd/internal/core/domain"
	"github.com/ledgercore/ledgerd/pkg/errors"
)

func (s *ledgerService) CreateAsset(
	ctx context.Context, id domain.AssetId, owner domain.AccountId,
	minBalance uint64, isSufficient bool,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		if minBalance == 0 {
			return errors.MIN_BALANCE_ZERO.New("asset %s requires a non-zero min balance", id).
				WithMetadata(errors.AssetErrMetadata{AssetId: uint64(id)})
		}
		existing, err := s.repoManager.Assets().GetAsset(ctx, id)
		if err != nil {
			return err
		}
		retired, err := s.repoManager.Assets().IsRetired(ctx, id)
		if err != nil {
			return err
		}
		if existing != nil || retired {
			return errors.ASSET_ALREADY_EXISTS.New("asset id %s already taken", id).
				WithMetadata(errors.AssetErrMetadata{AssetId: uint64(id)})
		}

		// The creator starts out holding every role.
		asset := domain.AssetDetails{
			Id:           id,
			Owner:        owner,
			Issuer:       owner,
			Admin:        owner,
			Freezer:      owner,
			MinBalance:   minBalance,
			IsSufficient: isSufficient,
		}
		if err := asset.Validate(); err != nil {
			return errors.INVALID_METADATA.Wrap(err).
				WithMetadata(errors.AssetErrMetadata{AssetId: uint64(id)})
		}
		if err := s.repoManager.Assets().AddAsset(ctx, asset); err != nil {
			return err
		}

		log.Debugf("created asset %s owned by %s", id, owner)
		return nil
	})
}

func (s *ledgerService) DestroyAsset(
	ctx context.Context, id domain.AssetId, caller domain.AccountId,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if !asset.HasRole(caller, domain.RoleOwner) {
			return noPermission(id, caller, domain.RoleOwner)
		}
		if asset.Accounts > 0 {
			return errors.STILL_HAS_ACCOUNTS.New(
				"asset %s still has %d accounts", id, asset.Accounts,
			).WithMetadata(errors.AssetErrMetadata{AssetId: uint64(id)})
		}
		// The counter is authoritative but the stored entries are
		// re-checked before the record disappears for good.
		count, repoErr := s.repoManager.Balances().CountBalances(ctx, id)
		if repoErr != nil {
			return repoErr
		}
		if count > 0 {
			return errors.STILL_HAS_ACCOUNTS.New(
				"asset %s still has %d accounts", id, count,
			).WithMetadata(errors.AssetErrMetadata{AssetId: uint64(id)})
		}

		if err := s.repoManager.Approvals().DeleteApprovalsByAsset(ctx, id); err != nil {
			return err
		}
		if err := s.repoManager.Assets().DeleteAsset(ctx, id); err != nil {
			return err
		}
		if err := s.repoManager.Assets().RetireAsset(ctx, id); err != nil {
			return err
		}

		log.Debugf("destroyed asset %s, id retired", id)
		return nil
	})
}

func (s *ledgerService) SetTeam(
	ctx context.Context, id domain.AssetId,
	caller, issuer, admin, freezer domain.AccountId,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if !asset.HasRole(caller, domain.RoleOwner) {
			return noPermission(id, caller, domain.RoleOwner)
		}
		if len(issuer) == 0 || len(admin) == 0 || len(freezer) == 0 {
			return errors.INVALID_METADATA.New("missing role account for asset %s", id).
				WithMetadata(errors.AssetErrMetadata{AssetId: uint64(id)})
		}
		asset.Issuer = issuer
		asset.Admin = admin
		asset.Freezer = freezer
		return s.repoManager.Assets().UpdateAsset(ctx, *asset)
	})
}

func (s *ledgerService) TransferOwnership(
	ctx context.Context, id domain.AssetId, caller, newOwner domain.AccountId,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if !asset.HasRole(caller, domain.RoleOwner) {
			return noPermission(id, caller, domain.RoleOwner)
		}
		if len(newOwner) == 0 {
			return errors.INVALID_METADATA.New("missing new owner for asset %s", id).
				WithMetadata(errors.AssetErrMetadata{AssetId: uint64(id)})
		}
		asset.Owner = newOwner
		return s.repoManager.Assets().UpdateAsset(ctx, *asset)
	})
}

func (s *ledgerService) FreezeAsset(
	ctx context.Context, id domain.AssetId, caller domain.AccountId,
) errors.Error {
	return s.setAssetFrozen(ctx, id, caller, true)
}

func (s *ledgerService) ThawAsset(
	ctx context.Context, id domain.AssetId, caller domain.AccountId,
) errors.Error {
	return s.setAssetFrozen(ctx, id, caller, false)
}

func (s *ledgerService) setAssetFrozen(
	ctx context.Context, id domain.AssetId, caller domain.AccountId, frozen bool,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if !asset.CanFreeze(caller) {
			return noPermission(id, caller, domain.RoleFreezer)
		}
		asset.IsFrozen = frozen
		if err := s.repoManager.Assets().UpdateAsset(ctx, *asset); err != nil {
			return err
		}
		log.Debugf("asset %s frozen=%t by %s", id, frozen, caller)
		return nil
	})
}

func (s *ledgerService) FreezeAccount(
	ctx context.Context, id domain.AssetId, caller, account domain.AccountId,
) errors.Error {
	return s.setAccountFrozen(ctx, id, caller, account, true)
}

func (s *ledgerService) ThawAccount(
	ctx context.Context, id domain.AssetId, caller, account domain.AccountId,
) errors.Error {
	return s.setAccountFrozen(ctx, id, caller, account, false)
}

func (s *ledgerService) setAccountFrozen(
	ctx context.Context, id domain.AssetId, caller, account domain.AccountId, frozen bool,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if !asset.CanFreeze(caller) {
			return noPermission(id, caller, domain.RoleFreezer)
		}
		key := domain.BalanceKey{AssetId: id, Account: account}
		bal, repoErr := s.repoManager.Balances().GetBalance(ctx, key)
		if repoErr != nil {
			return repoErr
		}
		if bal == nil {
			return errors.BALANCE_NOT_FOUND.New(
				"account %s holds no balance of asset %s", account, id,
			).WithMetadata(errors.BalanceErrMetadata{
				AssetId: uint64(id), Account: string(account),
			})
		}
		bal.IsFrozen = frozen
		return s.repoManager.Balances().UpsertBalance(ctx, *bal)
	})
}

func (s *ledgerService) SetMetadata(
	ctx context.Context, id domain.AssetId, caller domain.AccountId,
	entries []domain.AssetMetadata,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if !asset.HasRole(caller, domain.RoleOwner) {
			return noPermission(id, caller, domain.RoleOwner)
		}
		if err := domain.ValidateMetadata(entries); err != nil {
			return errors.INVALID_METADATA.Wrap(err).
				WithMetadata(errors.AssetErrMetadata{AssetId: uint64(id)})
		}
		asset.Metadata = entries
		return s.repoManager.Assets().UpdateAsset(ctx, *asset)
	})
}

func (s *ledgerService) ClearMetadata(
	ctx context.Context, id domain.AssetId, caller domain.AccountId,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if !asset.HasRole(caller, domain.RoleOwner) {
			return noPermission(id, caller, domain.RoleOwner)
		}
		asset.Metadata = nil
		return s.repoManager.Assets().UpdateAsset(ctx, *asset)
	})
}
