package domain

import (
	"fmt"
	"strings"
)

// BalanceKey addresses one (asset, account) balance entry.
type BalanceKey struct {
	AssetId AssetId
	Account AccountId
}

func (k BalanceKey) String() string {
	return fmt.Sprintf("%s:%s", k.AssetId, k.Account)
}

func (k *BalanceKey) FromString(s string) error {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || len(parts[1]) == 0 {
		return fmt.Errorf("invalid balance key string: %s", s)
	}
	if err := k.AssetId.FromString(parts[0]); err != nil {
		return err
	}
	k.Account = AccountId(parts[1])
	return nil
}

// AssetBalance is one account's holding of one asset. An entry exists
// only while Balance >= the asset's MinBalance; a sub-minimum remainder
// after a debit is dust-swept rather than persisted.
type AssetBalance struct {
	BalanceKey
	Balance uint64
	// IsFrozen blocks outgoing transfers from this account for this
	// asset. Admin-level operations bypass it.
	IsFrozen bool
	// Sufficient records whether this balance alone satisfied the
	// account's existence requirement when the entry was created.
	Sufficient bool
}

// CheckedAdd returns a+b, reporting false on wraparound.
func CheckedAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// CheckedSub returns a-b, reporting false on underflow.
func CheckedSub(a, b uint64) (uint64, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}
