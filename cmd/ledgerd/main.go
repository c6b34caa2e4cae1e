package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ledgercore/ledgerd/internal/config"
	"github.com/ledgercore/ledgerd/internal/core/application"
	"github.com/ledgercore/ledgerd/internal/core/domain"
	"github.com/ledgercore/ledgerd/internal/core/ports"
)

var (
	Version string

	repoManager ports.RepoManager
	ledgerSvc   application.LedgerService
)

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "ledgerd"
	app.Usage = "multi-asset ledger command line interface"
	app.Commands = append(
		app.Commands,
		&createCommand,
		&destroyCommand,
		&mintCommand,
		&burnCommand,
		&transferCommand,
		&forceTransferCommand,
		&approveCommand,
		&transferApprovedCommand,
		&cancelApprovalCommand,
		&freezeCommand,
		&thawCommand,
		&setTeamCommand,
		&setOwnerCommand,
		&setMetadataCommand,
		&clearMetadataCommand,
		&assetCommand,
		&balanceCommand,
		&approvalCommand,
		&auditCommand,
		&versionCommand,
	)
	app.Before = func(ctx *cli.Context) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("error loading config: %v", err)
		}
		svc, err := cfg.RepoManager()
		if err != nil {
			return fmt.Errorf("error opening data store: %v", err)
		}
		repoManager = svc
		ledgerSvc = application.NewLedgerService(svc)
		return nil
	}
	app.After = func(ctx *cli.Context) error {
		if repoManager != nil {
			repoManager.Close()
		}
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

var (
	assetFlag = &cli.Uint64Flag{
		Name:     "asset",
		Usage:    "numeric id of the asset",
		Required: true,
	}
	accountFlag = &cli.StringFlag{
		Name:  "account",
		Usage: "account the operation applies to",
	}
	callerFlag = &cli.StringFlag{
		Name:     "caller",
		Usage:    "account invoking the operation, checked against the asset roles",
		Required: true,
	}
	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "account to debit",
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "account to credit",
	}
	amountFlag = &cli.Uint64Flag{
		Name:  "amount",
		Usage: "amount in base units",
	}
	minBalanceFlag = &cli.Uint64Flag{
		Name:  "min-balance",
		Usage: "minimum balance an account of this asset must hold",
		Value: 1,
	}
	sufficientFlag = &cli.BoolFlag{
		Name:  "sufficient",
		Usage: "mark the asset as self-sufficient for account existence",
	}
	keepAliveFlag = &cli.BoolFlag{
		Name:  "keep-alive",
		Usage: "fail instead of reaping the sender account if it would drop below the minimum",
	}
	ownerFlag = &cli.StringFlag{
		Name:  "owner",
		Usage: "owner of the approval",
	}
	delegateFlag = &cli.StringFlag{
		Name:  "delegate",
		Usage: "delegate allowed to spend on the owner's behalf",
	}
	depositFlag = &cli.Uint64Flag{
		Name:  "deposit",
		Usage: "deposit reserved when the approval is created",
	}
	issuerFlag = &cli.StringFlag{
		Name:  "issuer",
		Usage: "account receiving the issuer role",
	}
	adminFlag = &cli.StringFlag{
		Name:  "admin",
		Usage: "account receiving the admin role",
	}
	freezerFlag = &cli.StringFlag{
		Name:  "freezer",
		Usage: "account receiving the freezer role",
	}
	metadataFlag = &cli.StringFlag{
		Name:  "metadata",
		Usage: "JSON encoded list of {key, value} metadata entries",
	}
)

var (
	createCommand = cli.Command{
		Name:  "create",
		Usage: "Register a new asset, the caller receives every role",
		Flags: []cli.Flag{assetFlag, callerFlag, minBalanceFlag, sufficientFlag},
		Action: func(ctx *cli.Context) error {
			return create(ctx)
		},
	}
	destroyCommand = cli.Command{
		Name:  "destroy",
		Usage: "Destroy an asset with no remaining accounts, retiring its id",
		Flags: []cli.Flag{assetFlag, callerFlag},
		Action: func(ctx *cli.Context) error {
			return destroy(ctx)
		},
	}
	mintCommand = cli.Command{
		Name:  "mint",
		Usage: "Mint new units to an account",
		Flags: []cli.Flag{assetFlag, callerFlag, toFlag, amountFlag},
		Action: func(ctx *cli.Context) error {
			return mint(ctx)
		},
	}
	burnCommand = cli.Command{
		Name:  "burn",
		Usage: "Burn units from an account, reporting the amount actually removed",
		Flags: []cli.Flag{assetFlag, callerFlag, fromFlag, amountFlag},
		Action: func(ctx *cli.Context) error {
			return burn(ctx)
		},
	}
	transferCommand = cli.Command{
		Name:  "transfer",
		Usage: "Move units between accounts",
		Flags: []cli.Flag{assetFlag, fromFlag, toFlag, amountFlag, keepAliveFlag},
		Action: func(ctx *cli.Context) error {
			return transfer(ctx)
		},
	}
	forceTransferCommand = cli.Command{
		Name:  "force-transfer",
		Usage: "Move units with admin authority, bypassing freezes",
		Flags: []cli.Flag{assetFlag, callerFlag, fromFlag, toFlag, amountFlag},
		Action: func(ctx *cli.Context) error {
			return forceTransfer(ctx)
		},
	}
	approveCommand = cli.Command{
		Name:  "approve",
		Usage: "Grant or top up a delegated spending allowance",
		Flags: []cli.Flag{assetFlag, ownerFlag, delegateFlag, amountFlag, depositFlag},
		Action: func(ctx *cli.Context) error {
			return approve(ctx)
		},
	}
	transferApprovedCommand = cli.Command{
		Name:  "transfer-approved",
		Usage: "Spend an allowance on the owner's behalf",
		Flags: []cli.Flag{assetFlag, callerFlag, ownerFlag, toFlag, amountFlag},
		Action: func(ctx *cli.Context) error {
			return transferApproved(ctx)
		},
	}
	cancelApprovalCommand = cli.Command{
		Name:  "cancel-approval",
		Usage: "Cancel an allowance, refunding the deposit",
		Flags: []cli.Flag{assetFlag, callerFlag, ownerFlag, delegateFlag},
		Action: func(ctx *cli.Context) error {
			return cancelApproval(ctx)
		},
	}
	freezeCommand = cli.Command{
		Name:  "freeze",
		Usage: "Freeze an asset, or a single account with --account",
		Flags: []cli.Flag{assetFlag, callerFlag, accountFlag},
		Action: func(ctx *cli.Context) error {
			return setFrozen(ctx, true)
		},
	}
	thawCommand = cli.Command{
		Name:  "thaw",
		Usage: "Thaw an asset, or a single account with --account",
		Flags: []cli.Flag{assetFlag, callerFlag, accountFlag},
		Action: func(ctx *cli.Context) error {
			return setFrozen(ctx, false)
		},
	}
	setTeamCommand = cli.Command{
		Name:  "set-team",
		Usage: "Reassign the issuer, admin and freezer roles",
		Flags: []cli.Flag{assetFlag, callerFlag, issuerFlag, adminFlag, freezerFlag},
		Action: func(ctx *cli.Context) error {
			return setTeam(ctx)
		},
	}
	setOwnerCommand = cli.Command{
		Name:  "set-owner",
		Usage: "Hand over asset ownership",
		Flags: []cli.Flag{assetFlag, callerFlag, toFlag},
		Action: func(ctx *cli.Context) error {
			return setOwner(ctx)
		},
	}
	setMetadataCommand = cli.Command{
		Name:  "set-metadata",
		Usage: "Replace the asset metadata entries",
		Flags: []cli.Flag{assetFlag, callerFlag, metadataFlag},
		Action: func(ctx *cli.Context) error {
			return setMetadata(ctx)
		},
	}
	clearMetadataCommand = cli.Command{
		Name:  "clear-metadata",
		Usage: "Remove all asset metadata entries",
		Flags: []cli.Flag{assetFlag, callerFlag},
		Action: func(ctx *cli.Context) error {
			return clearMetadata(ctx)
		},
	}
	assetCommand = cli.Command{
		Name:  "asset",
		Usage: "Show an asset record",
		Flags: []cli.Flag{assetFlag},
		Action: func(ctx *cli.Context) error {
			return showAsset(ctx)
		},
	}
	balanceCommand = cli.Command{
		Name:  "balance",
		Usage: "Show an account balance",
		Flags: []cli.Flag{assetFlag, accountFlag, keepAliveFlag},
		Action: func(ctx *cli.Context) error {
			return showBalance(ctx)
		},
	}
	approvalCommand = cli.Command{
		Name:  "approval",
		Usage: "Show a delegated spending allowance",
		Flags: []cli.Flag{assetFlag, ownerFlag, delegateFlag},
		Action: func(ctx *cli.Context) error {
			return showApproval(ctx)
		},
	}
	auditCommand = cli.Command{
		Name:  "audit",
		Usage: "Verify that supply matches the sum of balances",
		Flags: []cli.Flag{assetFlag},
		Action: func(ctx *cli.Context) error {
			return audit(ctx)
		},
	}
	versionCommand = cli.Command{
		Name:  "version",
		Usage: "Display version information",
		Action: func(ctx *cli.Context) error {
			fmt.Printf("ledgerd version: %s\n", Version)
			return nil
		},
	}
)

func create(ctx *cli.Context) error {
	if err := ledgerSvc.CreateAsset(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(callerFlag.Name)),
		ctx.Uint64(minBalanceFlag.Name),
		ctx.Bool(sufficientFlag.Name),
	); err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"asset": ctx.Uint64(assetFlag.Name),
		"owner": ctx.String(callerFlag.Name),
	})
}

func destroy(ctx *cli.Context) error {
	return ledgerSvc.DestroyAsset(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(callerFlag.Name)),
	)
}

func mint(ctx *cli.Context) error {
	return ledgerSvc.Mint(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(callerFlag.Name)),
		domain.AccountId(ctx.String(toFlag.Name)),
		ctx.Uint64(amountFlag.Name),
	)
}

func burn(ctx *cli.Context) error {
	burned, err := ledgerSvc.Burn(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(callerFlag.Name)),
		domain.AccountId(ctx.String(fromFlag.Name)),
		ctx.Uint64(amountFlag.Name),
	)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"burned": burned,
	})
}

func transfer(ctx *cli.Context) error {
	return ledgerSvc.Transfer(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(fromFlag.Name)),
		domain.AccountId(ctx.String(toFlag.Name)),
		ctx.Uint64(amountFlag.Name),
		ctx.Bool(keepAliveFlag.Name),
	)
}

func forceTransfer(ctx *cli.Context) error {
	return ledgerSvc.ForceTransfer(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(callerFlag.Name)),
		domain.AccountId(ctx.String(fromFlag.Name)),
		domain.AccountId(ctx.String(toFlag.Name)),
		ctx.Uint64(amountFlag.Name),
	)
}

func approve(ctx *cli.Context) error {
	return ledgerSvc.Approve(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(ownerFlag.Name)),
		domain.AccountId(ctx.String(delegateFlag.Name)),
		ctx.Uint64(amountFlag.Name),
		ctx.Uint64(depositFlag.Name),
	)
}

func transferApproved(ctx *cli.Context) error {
	return ledgerSvc.TransferApproved(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(callerFlag.Name)),
		domain.AccountId(ctx.String(ownerFlag.Name)),
		domain.AccountId(ctx.String(toFlag.Name)),
		ctx.Uint64(amountFlag.Name),
	)
}

func cancelApproval(ctx *cli.Context) error {
	deposit, err := ledgerSvc.CancelApproval(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(callerFlag.Name)),
		domain.AccountId(ctx.String(ownerFlag.Name)),
		domain.AccountId(ctx.String(delegateFlag.Name)),
	)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"refunded_deposit": deposit,
	})
}

func setFrozen(ctx *cli.Context, frozen bool) error {
	id := domain.AssetId(ctx.Uint64(assetFlag.Name))
	caller := domain.AccountId(ctx.String(callerFlag.Name))
	account := domain.AccountId(ctx.String(accountFlag.Name))

	if len(account) > 0 {
		if frozen {
			return ledgerSvc.FreezeAccount(ctx.Context, id, caller, account)
		}
		return ledgerSvc.ThawAccount(ctx.Context, id, caller, account)
	}
	if frozen {
		return ledgerSvc.FreezeAsset(ctx.Context, id, caller)
	}
	return ledgerSvc.ThawAsset(ctx.Context, id, caller)
}

func setTeam(ctx *cli.Context) error {
	return ledgerSvc.SetTeam(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(callerFlag.Name)),
		domain.AccountId(ctx.String(issuerFlag.Name)),
		domain.AccountId(ctx.String(adminFlag.Name)),
		domain.AccountId(ctx.String(freezerFlag.Name)),
	)
}

func setOwner(ctx *cli.Context) error {
	return ledgerSvc.TransferOwnership(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(callerFlag.Name)),
		domain.AccountId(ctx.String(toFlag.Name)),
	)
}

func setMetadata(ctx *cli.Context) error {
	var entries []domain.AssetMetadata
	if err := json.Unmarshal([]byte(ctx.String(metadataFlag.Name)), &entries); err != nil {
		return fmt.Errorf("invalid metadata: %v", err)
	}
	return ledgerSvc.SetMetadata(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(callerFlag.Name)),
		entries,
	)
}

func clearMetadata(ctx *cli.Context) error {
	return ledgerSvc.ClearMetadata(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(callerFlag.Name)),
	)
}

func showAsset(ctx *cli.Context) error {
	asset, err := ledgerSvc.GetAsset(
		ctx.Context, domain.AssetId(ctx.Uint64(assetFlag.Name)),
	)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"id":          asset.Id,
		"owner":       asset.Owner,
		"issuer":      asset.Issuer,
		"admin":       asset.Admin,
		"freezer":     asset.Freezer,
		"supply":      asset.Supply,
		"min_balance": asset.MinBalance,
		"sufficient":  asset.IsSufficient,
		"accounts":    asset.Accounts,
		"frozen":      asset.IsFrozen,
		"metadata":    asset.Metadata,
	})
}

func showBalance(ctx *cli.Context) error {
	id := domain.AssetId(ctx.Uint64(assetFlag.Name))
	account := domain.AccountId(ctx.String(accountFlag.Name))

	balance, err := ledgerSvc.Balance(ctx.Context, id, account)
	if err != nil {
		return err
	}
	reducible, err := ledgerSvc.ReducibleBalance(
		ctx.Context, id, account, ctx.Bool(keepAliveFlag.Name),
	)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"balance":   balance,
		"reducible": reducible,
	})
}

func showApproval(ctx *cli.Context) error {
	approval, err := ledgerSvc.GetApproval(
		ctx.Context,
		domain.AssetId(ctx.Uint64(assetFlag.Name)),
		domain.AccountId(ctx.String(ownerFlag.Name)),
		domain.AccountId(ctx.String(delegateFlag.Name)),
	)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"owner":    approval.Owner,
		"delegate": approval.Delegate,
		"amount":   approval.Amount,
		"deposit":  approval.Deposit,
	})
}

func audit(ctx *cli.Context) error {
	id := domain.AssetId(ctx.Uint64(assetFlag.Name))
	if err := ledgerSvc.CheckInvariants(ctx.Context, id); err != nil {
		return err
	}
	supply, err := ledgerSvc.TotalSupply(ctx.Context, id)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"asset":  id,
		"supply": supply,
		"status": "consistent",
	})
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}
