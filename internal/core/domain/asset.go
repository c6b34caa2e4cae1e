package domain

import (
	"fmt"
	"strconv"
)

// AssetId uniquely identifies one fungible asset class. Ids are never
// reused after destruction.
type AssetId uint64

func (id AssetId) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id *AssetId) FromString(s string) error {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid asset id string: %s", s)
	}
	*id = AssetId(v)
	return nil
}

// AccountId is the opaque identity of an account holder. The host
// dispatch layer is responsible for authenticating it before any
// operation reaches this core.
type AccountId string

// Role names an asset capability. Roles are flat account-identity
// fields on AssetDetails, checked explicitly per operation.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleIssuer  Role = "issuer"
	RoleAdmin   Role = "admin"
	RoleFreezer Role = "freezer"
)

// AssetMetadata is a key-value pair attached to an asset.
type AssetMetadata struct {
	Key   string
	Value string
}

// AssetDetails is the registry record of a single asset class.
type AssetDetails struct {
	Id AssetId
	// Capability roles. Owner controls the team and destruction, issuer
	// mints, admin burns and force-transfers, freezer freezes.
	Owner   AccountId
	Issuer  AccountId
	Admin   AccountId
	Freezer AccountId
	// Supply is the total minted amount. Invariant: supply equals the
	// sum of all non-zero balances for this asset at every observable
	// boundary.
	Supply uint64
	// MinBalance is the existential deposit threshold. A balance below
	// it never persists; the remainder is dust-swept on debit.
	MinBalance uint64
	// IsSufficient marks an asset whose mere possession keeps an
	// account alive without a separate native deposit.
	IsSufficient bool
	// Accounts counts the non-zero balance holders.
	Accounts uint32
	// IsFrozen blocks all transfers except admin-level operations.
	IsFrozen bool
	Metadata []AssetMetadata
}

// HasRole reports whether the account holds the given role on the asset.
func (a AssetDetails) HasRole(account AccountId, role Role) bool {
	switch role {
	case RoleOwner:
		return account == a.Owner
	case RoleIssuer:
		return account == a.Issuer
	case RoleAdmin:
		return account == a.Admin
	case RoleFreezer:
		return account == a.Freezer
	}
	return false
}

// IsAdminLevel reports whether the account may perform admin-gated
// operations (burn, force transfer, approval cancellation).
func (a AssetDetails) IsAdminLevel(account AccountId) bool {
	return a.HasRole(account, RoleAdmin)
}

// CanFreeze reports whether the account may toggle freeze flags.
func (a AssetDetails) CanFreeze(account AccountId) bool {
	return a.HasRole(account, RoleFreezer) || a.HasRole(account, RoleAdmin)
}

func (a AssetDetails) Validate() error {
	if a.MinBalance == 0 {
		return fmt.Errorf("min balance must be greater than zero")
	}
	if len(a.Owner) == 0 || len(a.Issuer) == 0 || len(a.Admin) == 0 || len(a.Freezer) == 0 {
		return fmt.Errorf("missing role account")
	}
	return validateMetadata(a.Metadata)
}

const (
	// MaxMetadataEntries bounds the number of metadata entries per asset.
	MaxMetadataEntries = 16
	// MaxMetadataKeyLen bounds the byte length of a metadata key.
	MaxMetadataKeyLen = 32
	// MaxMetadataValueLen bounds the byte length of a metadata value.
	MaxMetadataValueLen = 128
)

func validateMetadata(entries []AssetMetadata) error {
	if len(entries) > MaxMetadataEntries {
		return fmt.Errorf("too many metadata entries, got %d want at most %d",
			len(entries), MaxMetadataEntries)
	}
	seen := make(map[string]struct{}, len(entries))
	for _, md := range entries {
		if len(md.Key) == 0 || len(md.Key) > MaxMetadataKeyLen {
			return fmt.Errorf("invalid metadata key length %d", len(md.Key))
		}
		if len(md.Value) > MaxMetadataValueLen {
			return fmt.Errorf("invalid metadata value length %d", len(md.Value))
		}
		if _, ok := seen[md.Key]; ok {
			return fmt.Errorf("duplicated metadata key %s", md.Key)
		}
		seen[md.Key] = struct{}{}
	}
	return nil
}

// ValidateMetadata checks metadata bounds for a prospective update.
func ValidateMetadata(entries []AssetMetadata) error {
	return validateMetadata(entries)
}
