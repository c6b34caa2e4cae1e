package application_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgercore/ledgerd/internal/core/application"
	"github.com/ledgercore/ledgerd/internal/core/domain"
	"github.com/ledgercore/ledgerd/internal/infrastructure/db"
	"github.com/ledgercore/ledgerd/pkg/errors"
)

const (
	alice = domain.AccountId("alice")
	bob   = domain.AccountId("bob")
	carol = domain.AccountId("carol")
	dave  = domain.AccountId("dave")
)

var ctx = context.Background()

// newTestService spins up a ledger on each supported backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, svc application.LedgerService)) {
	backends := []db.ServiceConfig{
		{DataStoreType: "inmemory"},
		{DataStoreType: "badger", DataStoreConfig: []interface{}{"", nil}},
	}
	for _, config := range backends {
		t.Run(config.DataStoreType, func(t *testing.T) {
			repoManager, err := db.NewService(config)
			require.NoError(t, err)
			t.Cleanup(repoManager.Close)

			fn(t, application.NewLedgerService(repoManager))
		})
	}
}

func TestCreateAsset(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))

		asset, err := svc.GetAsset(ctx, 1)
		require.Nil(t, err)
		require.Equal(t, alice, asset.Owner)
		require.Equal(t, alice, asset.Issuer)
		require.Equal(t, alice, asset.Admin)
		require.Equal(t, alice, asset.Freezer)
		require.Zero(t, asset.Supply)
		require.Zero(t, asset.Accounts)
		require.Equal(t, uint64(10), asset.MinBalance)

		dup := svc.CreateAsset(ctx, 1, bob, 10, false)
		require.NotNil(t, dup)
		require.True(t, errors.ASSET_ALREADY_EXISTS.Is(dup))

		zeroMin := svc.CreateAsset(ctx, 2, alice, 0, false)
		require.NotNil(t, zeroMin)
		require.True(t, errors.MIN_BALANCE_ZERO.Is(zeroMin))
	})
}

func TestDestroyAsset(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))

		err := svc.DestroyAsset(ctx, 1, bob)
		require.True(t, errors.NO_PERMISSION.Is(err))

		require.Nil(t, svc.Mint(ctx, 1, alice, bob, 100))
		err = svc.DestroyAsset(ctx, 1, alice)
		require.True(t, errors.STILL_HAS_ACCOUNTS.Is(err))

		_, err = svc.Burn(ctx, 1, alice, bob, 100)
		require.Nil(t, err)
		require.Nil(t, svc.DestroyAsset(ctx, 1, alice))

		// Destroy is not idempotent: the second attempt must not find
		// the asset.
		err = svc.DestroyAsset(ctx, 1, alice)
		require.True(t, errors.ASSET_NOT_FOUND.Is(err))

		// A destroyed id is retired forever.
		err = svc.CreateAsset(ctx, 1, alice, 10, false)
		require.True(t, errors.ASSET_ALREADY_EXISTS.Is(err))
	})
}

func TestDestroyClearsApprovals(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.Approve(ctx, 1, alice, dave, 30, 1))
		require.Nil(t, svc.DestroyAsset(ctx, 1, alice))

		_, err := svc.GetApproval(ctx, 1, alice, dave)
		require.True(t, errors.APPROVAL_NOT_FOUND.Is(err))
	})
}

func TestMint(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))

		err := svc.Mint(ctx, 1, bob, bob, 100)
		require.True(t, errors.NO_PERMISSION.Is(err))

		err = svc.Mint(ctx, 1, alice, bob, 5)
		require.True(t, errors.BELOW_MINIMUM.Is(err))

		require.Nil(t, svc.Mint(ctx, 1, alice, bob, 100))

		balance, qerr := svc.Balance(ctx, 1, bob)
		require.Nil(t, qerr)
		require.Equal(t, uint64(100), balance)

		supply, qerr := svc.TotalSupply(ctx, 1)
		require.Nil(t, qerr)
		require.Equal(t, uint64(100), supply)

		require.Nil(t, svc.CheckInvariants(ctx, 1))

		err = svc.Mint(ctx, 2, alice, bob, 100)
		require.True(t, errors.ASSET_NOT_FOUND.Is(err))
	})
}

func TestMintOverflow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.Mint(ctx, 1, alice, bob, math.MaxUint64))

		err := svc.Mint(ctx, 1, alice, carol, 10)
		require.True(t, errors.OVERFLOW.Is(err))

		// The failed mint must not have touched any state.
		supply, qerr := svc.TotalSupply(ctx, 1)
		require.Nil(t, qerr)
		require.Equal(t, uint64(math.MaxUint64), supply)
		balance, qerr := svc.Balance(ctx, 1, carol)
		require.Nil(t, qerr)
		require.Zero(t, balance)
		require.Nil(t, svc.CheckInvariants(ctx, 1))
	})
}

func TestTransferWithDustSweep(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.Mint(ctx, 1, alice, alice, 100))

		// Debiting 95 leaves 5, below the minimum of 10: the remainder
		// is swept and rides along to the recipient so that supply
		// stays equal to the sum of balances.
		require.Nil(t, svc.Transfer(ctx, 1, alice, bob, 95, false))

		fromBalance, err := svc.Balance(ctx, 1, alice)
		require.Nil(t, err)
		require.Zero(t, fromBalance)

		toBalance, err := svc.Balance(ctx, 1, bob)
		require.Nil(t, err)
		require.Equal(t, uint64(100), toBalance)

		supply, err := svc.TotalSupply(ctx, 1)
		require.Nil(t, err)
		require.Equal(t, uint64(100), supply)

		asset, err := svc.GetAsset(ctx, 1)
		require.Nil(t, err)
		require.Equal(t, uint32(1), asset.Accounts)

		require.Nil(t, svc.CheckInvariants(ctx, 1))
	})
}

func TestTransferKeepAlive(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.Mint(ctx, 1, alice, alice, 100))

		err := svc.Transfer(ctx, 1, alice, bob, 95, true)
		require.True(t, errors.WOULD_DIE.Is(err))

		balance, qerr := svc.Balance(ctx, 1, alice)
		require.Nil(t, qerr)
		require.Equal(t, uint64(100), balance)

		// Leaving exactly the minimum behind is fine.
		require.Nil(t, svc.Transfer(ctx, 1, alice, bob, 90, true))
		balance, qerr = svc.Balance(ctx, 1, alice)
		require.Nil(t, qerr)
		require.Equal(t, uint64(10), balance)

		// Draining the whole balance reaps the account, which keep-alive
		// refuses just like leaving dust behind.
		err = svc.Transfer(ctx, 1, alice, bob, 10, true)
		require.True(t, errors.WOULD_DIE.Is(err))
		balance, qerr = svc.Balance(ctx, 1, alice)
		require.Nil(t, qerr)
		require.Equal(t, uint64(10), balance)

		require.Nil(t, svc.Transfer(ctx, 1, alice, bob, 10, false))
		balance, qerr = svc.Balance(ctx, 1, alice)
		require.Nil(t, qerr)
		require.Zero(t, balance)
		require.Nil(t, svc.CheckInvariants(ctx, 1))
	})
}

func TestTransferAtomicity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.Mint(ctx, 1, alice, alice, 100))

		// The debit succeeds but the credit fails: bob is a fresh
		// account and 5 is below the minimum. The whole operation must
		// roll back.
		err := svc.Transfer(ctx, 1, alice, bob, 5, false)
		require.True(t, errors.BELOW_MINIMUM.Is(err))

		balance, qerr := svc.Balance(ctx, 1, alice)
		require.Nil(t, qerr)
		require.Equal(t, uint64(100), balance)

		balance, qerr = svc.Balance(ctx, 1, bob)
		require.Nil(t, qerr)
		require.Zero(t, balance)

		asset, qerr := svc.GetAsset(ctx, 1)
		require.Nil(t, qerr)
		require.Equal(t, uint32(1), asset.Accounts)

		require.Nil(t, svc.CheckInvariants(ctx, 1))
	})
}

func TestTransferBalanceLow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.Mint(ctx, 1, alice, alice, 50))

		err := svc.Transfer(ctx, 1, alice, bob, 60, false)
		require.True(t, errors.BALANCE_LOW.Is(err))

		err = svc.Transfer(ctx, 1, carol, bob, 10, false)
		require.True(t, errors.BALANCE_LOW.Is(err))

		// Zero transfers and self transfers mutate nothing.
		require.Nil(t, svc.Transfer(ctx, 1, alice, bob, 0, false))
		require.Nil(t, svc.Transfer(ctx, 1, alice, alice, 50, false))
		err = svc.Transfer(ctx, 1, alice, alice, 60, false)
		require.True(t, errors.BALANCE_LOW.Is(err))

		require.Nil(t, svc.CheckInvariants(ctx, 1))
	})
}

func TestBurn(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.Mint(ctx, 1, alice, bob, 100))

		_, err := svc.Burn(ctx, 1, carol, bob, 10)
		require.True(t, errors.NO_PERMISSION.Is(err))

		burned, err := svc.Burn(ctx, 1, alice, bob, 50)
		require.Nil(t, err)
		require.Equal(t, uint64(50), burned)

		// Burning down to 5 sweeps the sub-minimum remainder: the
		// caller must account for 50, not 45.
		burned, err = svc.Burn(ctx, 1, alice, bob, 45)
		require.Nil(t, err)
		require.Equal(t, uint64(50), burned)

		balance, qerr := svc.Balance(ctx, 1, bob)
		require.Nil(t, qerr)
		require.Zero(t, balance)

		supply, qerr := svc.TotalSupply(ctx, 1)
		require.Nil(t, qerr)
		require.Zero(t, supply)

		asset, qerr := svc.GetAsset(ctx, 1)
		require.Nil(t, qerr)
		require.Zero(t, asset.Accounts)

		require.Nil(t, svc.CheckInvariants(ctx, 1))
	})
}

func TestApprovals(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.Mint(ctx, 1, alice, alice, 100))

		require.Nil(t, svc.Approve(ctx, 1, alice, dave, 30, 1))

		require.Nil(t, svc.TransferApproved(ctx, 1, dave, alice, carol, 20))

		approval, err := svc.GetApproval(ctx, 1, alice, dave)
		require.Nil(t, err)
		require.Equal(t, uint64(10), approval.Amount)

		balance, err := svc.Balance(ctx, 1, carol)
		require.Nil(t, err)
		require.Equal(t, uint64(20), balance)

		spendErr := svc.TransferApproved(ctx, 1, dave, alice, carol, 25)
		require.True(t, errors.UNAPPROVED.Is(spendErr))

		// Spending the exact remainder removes the approval.
		require.Nil(t, svc.TransferApproved(ctx, 1, dave, alice, carol, 10))
		_, err = svc.GetApproval(ctx, 1, alice, dave)
		require.True(t, errors.APPROVAL_NOT_FOUND.Is(err))

		spendErr = svc.TransferApproved(ctx, 1, dave, alice, carol, 1)
		require.True(t, errors.UNAPPROVED.Is(spendErr))

		require.Nil(t, svc.CheckInvariants(ctx, 1))
	})
}

func TestApprovalTopUp(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))

		require.Nil(t, svc.Approve(ctx, 1, alice, dave, 30, 1))
		require.Nil(t, svc.Approve(ctx, 1, alice, dave, 20, 9))

		approval, err := svc.GetApproval(ctx, 1, alice, dave)
		require.Nil(t, err)
		require.Equal(t, uint64(50), approval.Amount)
		// The deposit is taken on creation only, never on top-ups.
		require.Equal(t, uint64(1), approval.Deposit)

		overflowErr := svc.Approve(ctx, 1, alice, dave, math.MaxUint64, 0)
		require.True(t, errors.OVERFLOW.Is(overflowErr))
	})
}

func TestCancelApproval(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.SetTeam(ctx, 1, alice, alice, bob, alice))
		require.Nil(t, svc.Approve(ctx, 1, alice, dave, 30, 7))

		_, err := svc.CancelApproval(ctx, 1, carol, alice, dave)
		require.True(t, errors.NO_PERMISSION.Is(err))

		deposit, err := svc.CancelApproval(ctx, 1, alice, alice, dave)
		require.Nil(t, err)
		require.Equal(t, uint64(7), deposit)

		_, err = svc.CancelApproval(ctx, 1, alice, alice, dave)
		require.True(t, errors.APPROVAL_NOT_FOUND.Is(err))

		// The admin may cancel on the owner's behalf.
		require.Nil(t, svc.Approve(ctx, 1, alice, dave, 30, 2))
		deposit, err = svc.CancelApproval(ctx, 1, bob, alice, dave)
		require.Nil(t, err)
		require.Equal(t, uint64(2), deposit)
	})
}

func TestFreezeAsset(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.Mint(ctx, 1, alice, alice, 100))

		err := svc.FreezeAsset(ctx, 1, bob)
		require.True(t, errors.NO_PERMISSION.Is(err))

		require.Nil(t, svc.FreezeAsset(ctx, 1, alice))

		err = svc.Transfer(ctx, 1, alice, bob, 50, false)
		require.True(t, errors.ASSET_FROZEN.Is(err))

		err = svc.TransferApproved(ctx, 1, dave, alice, bob, 50)
		require.True(t, errors.ASSET_FROZEN.Is(err))

		// Admin-level operations still work on a frozen asset.
		require.Nil(t, svc.ForceTransfer(ctx, 1, alice, alice, bob, 50))
		_, burnErr := svc.Burn(ctx, 1, alice, alice, 20)
		require.Nil(t, burnErr)

		require.Nil(t, svc.ThawAsset(ctx, 1, alice))
		require.Nil(t, svc.Transfer(ctx, 1, alice, bob, 10, false))
		require.Nil(t, svc.CheckInvariants(ctx, 1))
	})
}

func TestFreezeAccount(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.Mint(ctx, 1, alice, bob, 100))

		err := svc.FreezeAccount(ctx, 1, alice, carol)
		require.True(t, errors.BALANCE_NOT_FOUND.Is(err))

		require.Nil(t, svc.FreezeAccount(ctx, 1, alice, bob))

		err = svc.Transfer(ctx, 1, bob, carol, 50, false)
		require.True(t, errors.ACCOUNT_FROZEN.Is(err))

		reducible, qerr := svc.ReducibleBalance(ctx, 1, bob, false)
		require.Nil(t, qerr)
		require.Zero(t, reducible)

		// Force transfer bypasses the per-account freeze.
		require.Nil(t, svc.ForceTransfer(ctx, 1, alice, bob, carol, 50))

		require.Nil(t, svc.ThawAccount(ctx, 1, alice, bob))
		require.Nil(t, svc.Transfer(ctx, 1, bob, carol, 20, false))
		require.Nil(t, svc.CheckInvariants(ctx, 1))
	})
}

func TestReducibleBalance(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))
		require.Nil(t, svc.Mint(ctx, 1, alice, bob, 100))

		reducible, err := svc.ReducibleBalance(ctx, 1, bob, false)
		require.Nil(t, err)
		require.Equal(t, uint64(100), reducible)

		reducible, err = svc.ReducibleBalance(ctx, 1, bob, true)
		require.Nil(t, err)
		require.Equal(t, uint64(90), reducible)

		reducible, err = svc.ReducibleBalance(ctx, 1, carol, false)
		require.Nil(t, err)
		require.Zero(t, reducible)

		require.Nil(t, svc.FreezeAsset(ctx, 1, alice))
		reducible, err = svc.ReducibleBalance(ctx, 1, bob, false)
		require.Nil(t, err)
		require.Zero(t, reducible)
	})
}

func TestSetTeamAndOwnership(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))

		err := svc.SetTeam(ctx, 1, bob, bob, bob, bob)
		require.True(t, errors.NO_PERMISSION.Is(err))

		require.Nil(t, svc.SetTeam(ctx, 1, alice, bob, carol, dave))
		asset, qerr := svc.GetAsset(ctx, 1)
		require.Nil(t, qerr)
		require.Equal(t, alice, asset.Owner)
		require.Equal(t, bob, asset.Issuer)
		require.Equal(t, carol, asset.Admin)
		require.Equal(t, dave, asset.Freezer)

		// The previous issuer lost the capability.
		err = svc.Mint(ctx, 1, alice, alice, 100)
		require.True(t, errors.NO_PERMISSION.Is(err))
		require.Nil(t, svc.Mint(ctx, 1, bob, alice, 100))

		err = svc.TransferOwnership(ctx, 1, bob, bob)
		require.True(t, errors.NO_PERMISSION.Is(err))
		require.Nil(t, svc.TransferOwnership(ctx, 1, alice, bob))

		asset, qerr = svc.GetAsset(ctx, 1)
		require.Nil(t, qerr)
		require.Equal(t, bob, asset.Owner)
	})
}

func TestMetadata(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, false))

		entries := []domain.AssetMetadata{
			{Key: "name", Value: "Test Token"},
			{Key: "symbol", Value: "TST"},
			{Key: "decimals", Value: "8"},
		}
		err := svc.SetMetadata(ctx, 1, bob, entries)
		require.True(t, errors.NO_PERMISSION.Is(err))

		require.Nil(t, svc.SetMetadata(ctx, 1, alice, entries))
		asset, qerr := svc.GetAsset(ctx, 1)
		require.Nil(t, qerr)
		require.Equal(t, entries, asset.Metadata)

		invalid := []domain.AssetMetadata{{Key: "", Value: "x"}}
		err = svc.SetMetadata(ctx, 1, alice, invalid)
		require.True(t, errors.INVALID_METADATA.Is(err))

		require.Nil(t, svc.ClearMetadata(ctx, 1, alice))
		asset, qerr = svc.GetAsset(ctx, 1)
		require.Nil(t, qerr)
		require.Empty(t, asset.Metadata)
	})
}

func TestSupplyInvariantAcrossSequence(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc application.LedgerService) {
		require.Nil(t, svc.CreateAsset(ctx, 1, alice, 10, true))

		require.Nil(t, svc.Mint(ctx, 1, alice, alice, 1000))
		require.Nil(t, svc.Mint(ctx, 1, alice, bob, 500))
		require.Nil(t, svc.Transfer(ctx, 1, alice, carol, 333, false))
		require.Nil(t, svc.Transfer(ctx, 1, bob, carol, 495, false))

		_, err := svc.Burn(ctx, 1, alice, carol, 700)
		require.Nil(t, err)
		require.Nil(t, svc.Approve(ctx, 1, alice, dave, 600, 1))
		require.Nil(t, svc.TransferApproved(ctx, 1, dave, alice, bob, 600))

		require.Nil(t, svc.CheckInvariants(ctx, 1))

		supply, qerr := svc.TotalSupply(ctx, 1)
		require.Nil(t, qerr)
		require.Equal(t, uint64(800), supply)
	})
}
