package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgercore/ledgerd/pkg/errors"
)

func TestAssetDetailsEncoding(t *testing.T) {
	asset := AssetDetails{
		Id:           42,
		Owner:        "owner-account",
		Issuer:       "issuer-account",
		Admin:        "admin-account",
		Freezer:      "freezer-account",
		Supply:       1_000_000,
		MinBalance:   10,
		IsSufficient: true,
		Accounts:     3,
		IsFrozen:     false,
		Metadata: []AssetMetadata{
			{Key: "name", Value: "Test Token"},
			{Key: "symbol", Value: "TST"},
		},
	}

	buf, err := asset.Serialize()
	require.NoError(t, err)
	require.NotEmpty(t, buf)
	require.LessOrEqual(t, len(buf), MaxAssetDetailsEncodedLen)

	decoded, err := NewAssetDetailsFromBytes(buf)
	require.NoError(t, err)
	require.Equal(t, asset, *decoded)

	// The encoding must be deterministic for state replay.
	buf2, err := asset.Serialize()
	require.NoError(t, err)
	require.Equal(t, buf, buf2)
}

func TestAssetDetailsEncodingNoMetadata(t *testing.T) {
	asset := AssetDetails{
		Id: 1, Owner: "a", Issuer: "b", Admin: "c", Freezer: "d",
		Supply: 5, MinBalance: 1, Accounts: 1,
	}
	buf, err := asset.Serialize()
	require.NoError(t, err)

	decoded, err := NewAssetDetailsFromBytes(buf)
	require.NoError(t, err)
	require.Equal(t, asset.Id, decoded.Id)
	require.Equal(t, asset.Supply, decoded.Supply)
	require.Empty(t, decoded.Metadata)
}

func TestAssetBalanceEncoding(t *testing.T) {
	balance := AssetBalance{
		BalanceKey: BalanceKey{AssetId: 7, Account: "alice"},
		Balance:    12345,
		IsFrozen:   true,
		Sufficient: true,
	}

	buf, err := balance.Serialize()
	require.NoError(t, err)
	require.LessOrEqual(t, len(buf), MaxAssetBalanceEncodedLen)

	decoded, err := NewAssetBalanceFromBytes(buf)
	require.NoError(t, err)
	require.Equal(t, balance, *decoded)
}

func TestApprovalEncoding(t *testing.T) {
	approval := Approval{
		ApprovalKey: ApprovalKey{AssetId: 7, Owner: "alice", Delegate: "bob"},
		Amount:      30,
		Deposit:     1,
	}

	buf, err := approval.Serialize()
	require.NoError(t, err)
	require.LessOrEqual(t, len(buf), MaxApprovalEncodedLen)

	decoded, err := NewApprovalFromBytes(buf)
	require.NoError(t, err)
	require.Equal(t, approval, *decoded)
}

func TestDecodeCorrupt(t *testing.T) {
	asset := AssetDetails{
		Id: 1, Owner: "a", Issuer: "b", Admin: "c", Freezer: "d",
		Supply: 5, MinBalance: 1,
	}
	buf, err := asset.Serialize()
	require.NoError(t, err)

	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"truncated", buf[:len(buf)-2]},
		{"garbage", []byte{0xff, 0xfe, 0xfd, 0xfc}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssetDetailsFromBytes(tt.buf)
			require.Error(t, err)
			require.True(t, errors.CORRUPT.Is(err))

			_, err = NewAssetBalanceFromBytes(tt.buf)
			require.Error(t, err)
			require.True(t, errors.CORRUPT.Is(err))

			_, err = NewApprovalFromBytes(tt.buf)
			require.Error(t, err)
			require.True(t, errors.CORRUPT.Is(err))
		})
	}
}

func TestEncodeOversizedAccount(t *testing.T) {
	balance := AssetBalance{
		BalanceKey: BalanceKey{
			AssetId: 1,
			Account: AccountId(strings.Repeat("x", MaxAccountIdLen+1)),
		},
		Balance: 1,
	}
	_, err := balance.Serialize()
	require.Error(t, err)
}

func TestDecodeOversizedAccount(t *testing.T) {
	// An attacker-supplied record with an over-long account id must be
	// rejected, not silently accepted. The Serialize path refuses to
	// produce such a record, so the buffer is built by hand: an asset id
	// record followed by an account record one byte over the limit.
	buf := []byte{0x01, 0x08}
	buf = append(buf, make([]byte, 8)...)
	buf = append(buf, 0x02, MaxAccountIdLen+1)
	buf = append(buf, []byte(strings.Repeat("x", MaxAccountIdLen+1))...)

	_, err := NewAssetBalanceFromBytes(buf)
	require.Error(t, err)
	require.True(t, errors.CORRUPT.Is(err))
}
