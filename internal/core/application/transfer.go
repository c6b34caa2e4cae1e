package application

import (
	"context"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/ledgercore/ledgerd/internal/core/domain"
	"github.com/ledgercore/ledgerd/pkg/errors"
)

// debit removes amount from the account's balance and returns the
// amount actually removed. If the remainder would fall below the
// asset's min balance it is dust-swept: the whole entry is removed and
// the sweep is included in the returned amount. Callers must reconcile
// supply against the returned value, never the requested one.
// The asset's Accounts counter is adjusted in memory; the caller is
// responsible for persisting the asset record.
func (s *ledgerService) debit(
	ctx context.Context, asset *domain.AssetDetails, account domain.AccountId,
	amount uint64, keepAlive bool,
) (uint64, error) {
	if amount == 0 {
		return 0, nil
	}
	key := domain.BalanceKey{AssetId: asset.Id, Account: account}
	bal, err := s.repoManager.Balances().GetBalance(ctx, key)
	if err != nil {
		return 0, err
	}
	if bal == nil || bal.Balance < amount {
		var current uint64
		if bal != nil {
			current = bal.Balance
		}
		return 0, errors.BALANCE_LOW.New(
			"account %s holds %d of asset %s, cannot debit %d",
			account, current, asset.Id, amount,
		).WithMetadata(errors.BalanceErrMetadata{
			AssetId: uint64(asset.Id), Account: string(account),
			Balance: current, Requested: amount,
		})
	}

	remaining := bal.Balance - amount
	actual := amount
	if remaining < asset.MinBalance {
		// A zero remainder reaps the account, which keep-alive refuses
		// just like a sub-minimum one.
		if keepAlive {
			return 0, errors.WOULD_DIE.New(
				"debiting %d would leave account %s below the minimum of %d for asset %s",
				amount, account, asset.MinBalance, asset.Id,
			).WithMetadata(errors.BalanceErrMetadata{
				AssetId: uint64(asset.Id), Account: string(account),
				Balance: bal.Balance, Requested: amount,
			})
		}
		if remaining > 0 {
			// Dust sweep: the sub-minimum remainder leaves with the debit.
			actual += remaining
			remaining = 0
		}
	}

	if remaining == 0 {
		if err := s.repoManager.Balances().DeleteBalance(ctx, key); err != nil {
			return 0, err
		}
		if asset.Accounts == 0 {
			return 0, errors.INTERNAL_ERROR.New(
				"accounts counter underflow on asset %s", asset.Id,
			)
		}
		asset.Accounts--
		return actual, nil
	}

	bal.Balance = remaining
	if err := s.repoManager.Balances().UpsertBalance(ctx, *bal); err != nil {
		return 0, err
	}
	return actual, nil
}

// credit adds amount to the account's balance, creating the entry on
// first non-zero credit. A credit that would create an entry below the
// asset's min balance fails with BELOW_MINIMUM. The asset's Accounts
// counter is adjusted in memory; the caller persists the asset record.
func (s *ledgerService) credit(
	ctx context.Context, asset *domain.AssetDetails, account domain.AccountId,
	amount uint64,
) error {
	if amount == 0 {
		return nil
	}
	key := domain.BalanceKey{AssetId: asset.Id, Account: account}
	bal, err := s.repoManager.Balances().GetBalance(ctx, key)
	if err != nil {
		return err
	}
	if bal == nil {
		if amount < asset.MinBalance {
			return errors.BELOW_MINIMUM.New(
				"crediting %d to %s is below the minimum of %d for asset %s",
				amount, account, asset.MinBalance, asset.Id,
			).WithMetadata(errors.BalanceErrMetadata{
				AssetId: uint64(asset.Id), Account: string(account), Requested: amount,
			})
		}
		entry := domain.AssetBalance{
			BalanceKey: key,
			Balance:    amount,
			Sufficient: asset.IsSufficient,
		}
		if asset.Accounts == math.MaxUint32 {
			return errors.INTERNAL_ERROR.New(
				"accounts counter overflow on asset %s", asset.Id,
			)
		}
		if err := s.repoManager.Balances().UpsertBalance(ctx, entry); err != nil {
			return err
		}
		asset.Accounts++
		return nil
	}

	newBalance, ok := domain.CheckedAdd(bal.Balance, amount)
	if !ok {
		return errors.OVERFLOW.New(
			"crediting %d to %s overflows its balance of asset %s",
			amount, account, asset.Id,
		).WithMetadata(errors.BalanceErrMetadata{
			AssetId: uint64(asset.Id), Account: string(account),
			Balance: bal.Balance, Requested: amount,
		})
	}
	bal.Balance = newBalance
	return s.repoManager.Balances().UpsertBalance(ctx, *bal)
}

func (s *ledgerService) frozenCheck(
	ctx context.Context, asset *domain.AssetDetails, accounts ...domain.AccountId,
) error {
	if asset.IsFrozen {
		return errors.ASSET_FROZEN.New("asset %s is frozen", asset.Id).
			WithMetadata(errors.AssetErrMetadata{AssetId: uint64(asset.Id)})
	}
	for _, account := range accounts {
		bal, err := s.repoManager.Balances().GetBalance(
			ctx, domain.BalanceKey{AssetId: asset.Id, Account: account},
		)
		if err != nil {
			return err
		}
		if bal != nil && bal.IsFrozen {
			return errors.ACCOUNT_FROZEN.New(
				"account %s is frozen for asset %s", account, asset.Id,
			).WithMetadata(errors.BalanceErrMetadata{
				AssetId: uint64(asset.Id), Account: string(account), Balance: bal.Balance,
			})
		}
	}
	return nil
}

func (s *ledgerService) Mint(
	ctx context.Context, id domain.AssetId, caller, beneficiary domain.AccountId,
	amount uint64,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if !asset.HasRole(caller, domain.RoleIssuer) {
			return noPermission(id, caller, domain.RoleIssuer)
		}
		newSupply, ok := domain.CheckedAdd(asset.Supply, amount)
		if !ok {
			return errors.OVERFLOW.New(
				"minting %d overflows the supply of asset %s", amount, id,
			).WithMetadata(errors.BalanceErrMetadata{
				AssetId: uint64(id), Account: string(beneficiary),
				Balance: asset.Supply, Requested: amount,
			})
		}
		if err := s.credit(ctx, asset, beneficiary, amount); err != nil {
			return err
		}
		asset.Supply = newSupply
		if err := s.repoManager.Assets().UpdateAsset(ctx, *asset); err != nil {
			return err
		}
		log.Debugf("minted %d of asset %s to %s", amount, id, beneficiary)
		return nil
	})
}

func (s *ledgerService) Burn(
	ctx context.Context, id domain.AssetId, caller, target domain.AccountId,
	amount uint64,
) (uint64, errors.Error) {
	var burned uint64
	err := s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if !asset.HasRole(caller, domain.RoleIssuer) && !asset.IsAdminLevel(caller) {
			return noPermission(id, caller, domain.RoleAdmin)
		}
		actual, derr := s.debit(ctx, asset, target, amount, false)
		if derr != nil {
			return derr
		}
		// Supply shrinks by the swept amount too, or the supply ==
		// sum(balances) invariant breaks.
		newSupply, ok := domain.CheckedSub(asset.Supply, actual)
		if !ok {
			return errors.SUPPLY_MISMATCH.New(
				"burning %d exceeds the recorded supply %d of asset %s",
				actual, asset.Supply, id,
			).WithMetadata(errors.SupplyErrMetadata{
				AssetId: uint64(id), Supply: asset.Supply,
			})
		}
		asset.Supply = newSupply
		if err := s.repoManager.Assets().UpdateAsset(ctx, *asset); err != nil {
			return err
		}
		burned = actual
		log.Debugf("burned %d of asset %s from %s", actual, id, target)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return burned, nil
}

func (s *ledgerService) Transfer(
	ctx context.Context, id domain.AssetId, from, to domain.AccountId,
	amount uint64, keepAlive bool,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if err := s.frozenCheck(ctx, asset, from, to); err != nil {
			return err
		}
		return s.move(ctx, asset, from, to, amount, keepAlive)
	})
}

// ForceTransfer moves funds with admin authority, bypassing the asset
// and per-account freeze flags.
func (s *ledgerService) ForceTransfer(
	ctx context.Context, id domain.AssetId, caller, from, to domain.AccountId,
	amount uint64,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if !asset.IsAdminLevel(caller) {
			return noPermission(id, caller, domain.RoleAdmin)
		}
		return s.move(ctx, asset, from, to, amount, false)
	})
}

func (s *ledgerService) TransferApproved(
	ctx context.Context, id domain.AssetId, delegate, owner, destination domain.AccountId,
	amount uint64,
) errors.Error {
	return s.transact(ctx, func(ctx context.Context) error {
		asset, err := s.getAsset(ctx, id)
		if err != nil {
			return err
		}
		if err := s.frozenCheck(ctx, asset, owner, destination); err != nil {
			return err
		}
		if err := s.spendApproval(ctx, id, owner, delegate, amount); err != nil {
			return err
		}
		return s.move(ctx, asset, owner, destination, amount, false)
	})
}

// move debits from and credits to inside the caller's transaction,
// persisting the asset record afterwards. Dust swept from the sender
// rides along to the recipient, so supply is conserved.
func (s *ledgerService) move(
	ctx context.Context, asset *domain.AssetDetails, from, to domain.AccountId,
	amount uint64, keepAlive bool,
) error {
	if amount == 0 {
		return nil
	}
	if from == to {
		// Self transfer mutates nothing, but the balance check still
		// applies.
		bal, err := s.repoManager.Balances().GetBalance(
			ctx, domain.BalanceKey{AssetId: asset.Id, Account: from},
		)
		if err != nil {
			return err
		}
		if bal == nil || bal.Balance < amount {
			var current uint64
			if bal != nil {
				current = bal.Balance
			}
			return errors.BALANCE_LOW.New(
				"account %s holds %d of asset %s, cannot debit %d",
				from, current, asset.Id, amount,
			).WithMetadata(errors.BalanceErrMetadata{
				AssetId: uint64(asset.Id), Account: string(from),
				Balance: current, Requested: amount,
			})
		}
		return nil
	}

	actual, err := s.debit(ctx, asset, from, amount, keepAlive)
	if err != nil {
		return err
	}
	if err := s.credit(ctx, asset, to, actual); err != nil {
		return err
	}
	if err := s.repoManager.Assets().UpdateAsset(ctx, *asset); err != nil {
		return err
	}
	log.Debugf("transferred %d of asset %s from %s to %s", actual, asset.Id, from, to)
	return nil
}
