package domain

import (
	"fmt"
	"strings"
)

// ApprovalKey addresses one (asset, owner, delegate) allowance.
type ApprovalKey struct {
	AssetId  AssetId
	Owner    AccountId
	Delegate AccountId
}

func (k ApprovalKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.AssetId, k.Owner, k.Delegate)
}

func (k *ApprovalKey) FromString(s string) error {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || len(parts[1]) == 0 || len(parts[2]) == 0 {
		return fmt.Errorf("invalid approval key string: %s", s)
	}
	if err := k.AssetId.FromString(parts[0]); err != nil {
		return err
	}
	k.Owner = AccountId(parts[1])
	k.Delegate = AccountId(parts[2])
	return nil
}

// Approval is a capped, revocable delegation allowing the delegate to
// move up to Amount of the owner's funds. The entry is removed when the
// remaining amount reaches zero or the approval is cancelled.
type Approval struct {
	ApprovalKey
	// Amount is the remaining spendable allowance.
	Amount uint64
	// Deposit is the stake backing the approval's storage cost, taken
	// once on creation and reported back on full cancellation.
	Deposit uint64
}
