package domain

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lightningnetwork/lnd/tlv"

	"github.com/ledgercore/ledgerd/pkg/errors"
)

// The three persisted entities carry a stable, ordered tlv encoding so
// that state can be stored and replayed deterministically across
// executors. Every type has a static maximum encoded length.

const (
	// MaxAccountIdLen bounds the byte length of an account identity.
	MaxAccountIdLen = 64

	tlvUint64RecordLen  = 1 + 1 + 8
	tlvUint32RecordLen  = 1 + 1 + 4
	tlvBoolRecordLen    = 1 + 1 + 1
	tlvAccountRecordLen = 1 + 1 + MaxAccountIdLen

	maxMetadataEntryLen = 1 + MaxMetadataKeyLen + 1 + MaxMetadataValueLen
	maxMetadataListLen  = 1 + MaxMetadataEntries*maxMetadataEntryLen

	// MaxAssetDetailsEncodedLen is the static bound on an encoded
	// AssetDetails record.
	MaxAssetDetailsEncodedLen = tlvUint64RecordLen + 4*tlvAccountRecordLen +
		2*tlvUint64RecordLen + tlvBoolRecordLen + tlvUint32RecordLen +
		tlvBoolRecordLen + 1 + 3 + maxMetadataListLen

	// MaxAssetBalanceEncodedLen is the static bound on an encoded
	// AssetBalance record.
	MaxAssetBalanceEncodedLen = tlvUint64RecordLen + tlvAccountRecordLen +
		tlvUint64RecordLen + 2*tlvBoolRecordLen

	// MaxApprovalEncodedLen is the static bound on an encoded Approval
	// record.
	MaxApprovalEncodedLen = tlvUint64RecordLen + 2*tlvAccountRecordLen +
		2*tlvUint64RecordLen
)

const (
	tlvTypeAssetId      tlv.Type = 1
	tlvTypeOwner        tlv.Type = 2
	tlvTypeIssuer       tlv.Type = 3
	tlvTypeAdmin        tlv.Type = 4
	tlvTypeFreezer      tlv.Type = 5
	tlvTypeSupply       tlv.Type = 6
	tlvTypeMinBalance   tlv.Type = 7
	tlvTypeIsSufficient tlv.Type = 8
	tlvTypeAccounts     tlv.Type = 9
	tlvTypeIsFrozen     tlv.Type = 10
	tlvTypeMetadata     tlv.Type = 11

	tlvTypeAccount    tlv.Type = 2
	tlvTypeBalance    tlv.Type = 3
	tlvTypeBalFrozen  tlv.Type = 4
	tlvTypeSufficient tlv.Type = 5

	tlvTypeApprOwner    tlv.Type = 2
	tlvTypeApprDelegate tlv.Type = 3
	tlvTypeApprAmount   tlv.Type = 4
	tlvTypeApprDeposit  tlv.Type = 5
)

// EAssetNum encodes an AssetId as a fixed 8-byte big-endian integer.
func EAssetNum(w io.Writer, val interface{}, buf *[8]byte) error {
	if id, ok := val.(*AssetId); ok {
		v := uint64(*id)
		return tlv.EUint64(w, &v, buf)
	}
	return tlv.NewTypeForEncodingErr(val, "assetId")
}

// DAssetNum decodes an AssetId from a fixed 8-byte big-endian integer.
func DAssetNum(r io.Reader, val interface{}, buf *[8]byte, l uint64) error {
	if id, ok := val.(*AssetId); ok && l == 8 {
		var v uint64
		if err := tlv.DUint64(r, &v, buf, 8); err != nil {
			return err
		}
		*id = AssetId(v)
		return nil
	}
	return tlv.NewTypeForDecodingErr(val, "assetId", l, 8)
}

// EAccountId encodes an AccountId as raw bytes.
func EAccountId(w io.Writer, val interface{}, buf *[8]byte) error {
	if a, ok := val.(*AccountId); ok {
		if len(*a) == 0 || len(*a) > MaxAccountIdLen {
			return fmt.Errorf("invalid account id length %d", len(*a))
		}
		b := []byte(*a)
		return tlv.EVarBytes(w, &b, buf)
	}
	return tlv.NewTypeForEncodingErr(val, "accountId")
}

// DAccountId decodes an AccountId from raw bytes, bounded by
// MaxAccountIdLen.
func DAccountId(r io.Reader, val interface{}, buf *[8]byte, l uint64) error {
	if a, ok := val.(*AccountId); ok && l > 0 && l <= MaxAccountIdLen {
		var b []byte
		if err := tlv.DVarBytes(r, &b, buf, l); err != nil {
			return err
		}
		*a = AccountId(b)
		return nil
	}
	return tlv.NewTypeForDecodingErr(val, "accountId", l, MaxAccountIdLen)
}

// EMetadataList encodes asset metadata as a count-prefixed sequence of
// length-prefixed key/value pairs.
func EMetadataList(w io.Writer, val interface{}, buf *[8]byte) error {
	if list, ok := val.(*[]AssetMetadata); ok {
		if err := validateMetadata(*list); err != nil {
			return err
		}
		if err := tlv.WriteVarInt(w, uint64(len(*list)), buf); err != nil {
			return err
		}
		for _, md := range *list {
			if err := tlv.WriteVarInt(w, uint64(len(md.Key)), buf); err != nil {
				return err
			}
			if _, err := w.Write([]byte(md.Key)); err != nil {
				return err
			}
			if err := tlv.WriteVarInt(w, uint64(len(md.Value)), buf); err != nil {
				return err
			}
			if _, err := w.Write([]byte(md.Value)); err != nil {
				return err
			}
		}
		return nil
	}
	return tlv.NewTypeForEncodingErr(val, "metadataList")
}

// DMetadataList decodes asset metadata encoded by EMetadataList.
func DMetadataList(r io.Reader, val interface{}, buf *[8]byte, l uint64) error {
	if list, ok := val.(*[]AssetMetadata); ok && l <= maxMetadataListLen {
		count, err := tlv.ReadVarInt(r, buf)
		if err != nil {
			return err
		}
		if count > MaxMetadataEntries {
			return fmt.Errorf("too many metadata entries %d", count)
		}
		entries := make([]AssetMetadata, 0, count)
		for i := uint64(0); i < count; i++ {
			keyLen, err := tlv.ReadVarInt(r, buf)
			if err != nil {
				return err
			}
			if keyLen == 0 || keyLen > MaxMetadataKeyLen {
				return fmt.Errorf("invalid metadata key length %d", keyLen)
			}
			key := make([]byte, keyLen)
			if _, err := io.ReadFull(r, key); err != nil {
				return err
			}
			valLen, err := tlv.ReadVarInt(r, buf)
			if err != nil {
				return err
			}
			if valLen > MaxMetadataValueLen {
				return fmt.Errorf("invalid metadata value length %d", valLen)
			}
			value := make([]byte, valLen)
			if _, err := io.ReadFull(r, value); err != nil {
				return err
			}
			entries = append(entries, AssetMetadata{Key: string(key), Value: string(value)})
		}
		*list = entries
		return nil
	}
	return tlv.NewTypeForDecodingErr(val, "metadataList", l, maxMetadataListLen)
}

func metadataListSize(list []AssetMetadata) func() uint64 {
	return func() uint64 {
		size := varIntSize(uint64(len(list)))
		for _, md := range list {
			size += varIntSize(uint64(len(md.Key))) + uint64(len(md.Key))
			size += varIntSize(uint64(len(md.Value))) + uint64(len(md.Value))
		}
		return size
	}
}

func varIntSize(v uint64) uint64 {
	switch {
	case v < 0xfd:
		return 1
	case v <= 0xffff:
		return 3
	case v <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

func accountIdSize(a *AccountId) func() uint64 {
	return func() uint64 { return uint64(len(*a)) }
}

func encodeStream(records ...tlv.Record) ([]byte, error) {
	stream, err := tlv.NewStream(records...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := stream.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeStream(data []byte, records ...tlv.Record) error {
	stream, err := tlv.NewStream(records...)
	if err != nil {
		return err
	}
	return stream.Decode(bytes.NewReader(data))
}

// Serialize encodes the asset details into a bounded byte slice.
func (a *AssetDetails) Serialize() ([]byte, error) {
	return encodeStream(
		tlv.MakeDynamicRecord(tlvTypeAssetId, &a.Id, func() uint64 { return 8 },
			EAssetNum, DAssetNum),
		tlv.MakeDynamicRecord(tlvTypeOwner, &a.Owner, accountIdSize(&a.Owner),
			EAccountId, DAccountId),
		tlv.MakeDynamicRecord(tlvTypeIssuer, &a.Issuer, accountIdSize(&a.Issuer),
			EAccountId, DAccountId),
		tlv.MakeDynamicRecord(tlvTypeAdmin, &a.Admin, accountIdSize(&a.Admin),
			EAccountId, DAccountId),
		tlv.MakeDynamicRecord(tlvTypeFreezer, &a.Freezer, accountIdSize(&a.Freezer),
			EAccountId, DAccountId),
		tlv.MakePrimitiveRecord(tlvTypeSupply, &a.Supply),
		tlv.MakePrimitiveRecord(tlvTypeMinBalance, &a.MinBalance),
		tlv.MakePrimitiveRecord(tlvTypeIsSufficient, &a.IsSufficient),
		tlv.MakePrimitiveRecord(tlvTypeAccounts, &a.Accounts),
		tlv.MakePrimitiveRecord(tlvTypeIsFrozen, &a.IsFrozen),
		tlv.MakeDynamicRecord(tlvTypeMetadata, &a.Metadata,
			metadataListSize(a.Metadata), EMetadataList, DMetadataList),
	)
}

// NewAssetDetailsFromBytes deserializes asset details from a raw byte
// slice. Malformed input fails with CORRUPT.
func NewAssetDetailsFromBytes(buf []byte) (*AssetDetails, error) {
	if len(buf) <= 0 {
		return nil, errors.CORRUPT.New("missing asset details")
	}
	var a AssetDetails
	err := decodeStream(buf,
		tlv.MakeDynamicRecord(tlvTypeAssetId, &a.Id, func() uint64 { return 8 },
			EAssetNum, DAssetNum),
		tlv.MakeDynamicRecord(tlvTypeOwner, &a.Owner, accountIdSize(&a.Owner),
			EAccountId, DAccountId),
		tlv.MakeDynamicRecord(tlvTypeIssuer, &a.Issuer, accountIdSize(&a.Issuer),
			EAccountId, DAccountId),
		tlv.MakeDynamicRecord(tlvTypeAdmin, &a.Admin, accountIdSize(&a.Admin),
			EAccountId, DAccountId),
		tlv.MakeDynamicRecord(tlvTypeFreezer, &a.Freezer, accountIdSize(&a.Freezer),
			EAccountId, DAccountId),
		tlv.MakePrimitiveRecord(tlvTypeSupply, &a.Supply),
		tlv.MakePrimitiveRecord(tlvTypeMinBalance, &a.MinBalance),
		tlv.MakePrimitiveRecord(tlvTypeIsSufficient, &a.IsSufficient),
		tlv.MakePrimitiveRecord(tlvTypeAccounts, &a.Accounts),
		tlv.MakePrimitiveRecord(tlvTypeIsFrozen, &a.IsFrozen),
		tlv.MakeDynamicRecord(tlvTypeMetadata, &a.Metadata,
			metadataListSize(a.Metadata), EMetadataList, DMetadataList),
	)
	if err != nil {
		return nil, errors.CORRUPT.Wrap(err)
	}
	return &a, nil
}

// Serialize encodes the balance entry into a bounded byte slice.
func (b *AssetBalance) Serialize() ([]byte, error) {
	return encodeStream(
		tlv.MakeDynamicRecord(tlvTypeAssetId, &b.AssetId, func() uint64 { return 8 },
			EAssetNum, DAssetNum),
		tlv.MakeDynamicRecord(tlvTypeAccount, &b.Account, accountIdSize(&b.Account),
			EAccountId, DAccountId),
		tlv.MakePrimitiveRecord(tlvTypeBalance, &b.Balance),
		tlv.MakePrimitiveRecord(tlvTypeBalFrozen, &b.IsFrozen),
		tlv.MakePrimitiveRecord(tlvTypeSufficient, &b.Sufficient),
	)
}

// NewAssetBalanceFromBytes deserializes a balance entry from a raw byte
// slice. Malformed input fails with CORRUPT.
func NewAssetBalanceFromBytes(buf []byte) (*AssetBalance, error) {
	if len(buf) <= 0 {
		return nil, errors.CORRUPT.New("missing asset balance")
	}
	var b AssetBalance
	err := decodeStream(buf,
		tlv.MakeDynamicRecord(tlvTypeAssetId, &b.AssetId, func() uint64 { return 8 },
			EAssetNum, DAssetNum),
		tlv.MakeDynamicRecord(tlvTypeAccount, &b.Account, accountIdSize(&b.Account),
			EAccountId, DAccountId),
		tlv.MakePrimitiveRecord(tlvTypeBalance, &b.Balance),
		tlv.MakePrimitiveRecord(tlvTypeBalFrozen, &b.IsFrozen),
		tlv.MakePrimitiveRecord(tlvTypeSufficient, &b.Sufficient),
	)
	if err != nil {
		return nil, errors.CORRUPT.Wrap(err)
	}
	return &b, nil
}

// Serialize encodes the approval into a bounded byte slice.
func (a *Approval) Serialize() ([]byte, error) {
	return encodeStream(
		tlv.MakeDynamicRecord(tlvTypeAssetId, &a.AssetId, func() uint64 { return 8 },
			EAssetNum, DAssetNum),
		tlv.MakeDynamicRecord(tlvTypeApprOwner, &a.Owner, accountIdSize(&a.Owner),
			EAccountId, DAccountId),
		tlv.MakeDynamicRecord(tlvTypeApprDelegate, &a.Delegate,
			accountIdSize(&a.Delegate), EAccountId, DAccountId),
		tlv.MakePrimitiveRecord(tlvTypeApprAmount, &a.Amount),
		tlv.MakePrimitiveRecord(tlvTypeApprDeposit, &a.Deposit),
	)
}

// NewApprovalFromBytes deserializes an approval from a raw byte slice.
// Malformed input fails with CORRUPT.
func NewApprovalFromBytes(buf []byte) (*Approval, error) {
	if len(buf) <= 0 {
		return nil, errors.CORRUPT.New("missing approval")
	}
	var a Approval
	err := decodeStream(buf,
		tlv.MakeDynamicRecord(tlvTypeAssetId, &a.AssetId, func() uint64 { return 8 },
			EAssetNum, DAssetNum),
		tlv.MakeDynamicRecord(tlvTypeApprOwner, &a.Owner, accountIdSize(&a.Owner),
			EAccountId, DAccountId),
		tlv.MakeDynamicRecord(tlvTypeApprDelegate, &a.Delegate,
			accountIdSize(&a.Delegate), EAccountId, DAccountId),
		tlv.MakePrimitiveRecord(tlvTypeApprAmount, &a.Amount),
		tlv.MakePrimitiveRecord(tlvTypeApprDeposit, &a.Deposit),
	)
	if err != nil {
		return nil, errors.CORRUPT.Wrap(err)
	}
	return &a, nil
}
