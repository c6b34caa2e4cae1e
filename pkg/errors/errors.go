package errors

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	grpccodes "google.golang.org/grpc/codes"
)

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	GrpcCode grpccodes.Code
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

// Is reports whether err carries this code.
func (c Code[MT]) Is(err error) bool {
	typed, ok := err.(Error)
	if !ok {
		return false
	}
	return typed.Code() == c.Code
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	GrpcCode() grpccodes.Code
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code {
	return e.code.GrpcCode
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) Unwrap() error {
	return e.cause
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type AssetErrMetadata struct {
	AssetId uint64 `json:"asset_id"`
}

type BalanceErrMetadata struct {
	AssetId   uint64 `json:"asset_id"`
	Account   string `json:"account"`
	Balance   uint64 `json:"balance"`
	Requested uint64 `json:"requested"`
}

type ApprovalErrMetadata struct {
	AssetId   uint64 `json:"asset_id"`
	Owner     string `json:"owner"`
	Delegate  string `json:"delegate"`
	Remaining uint64 `json:"remaining"`
	Requested uint64 `json:"requested"`
}

type PermissionErrMetadata struct {
	AssetId uint64 `json:"asset_id"`
	Caller  string `json:"caller"`
	Role    string `json:"role"`
}

type SupplyErrMetadata struct {
	AssetId  uint64 `json:"asset_id"`
	Supply   uint64 `json:"supply"`
	Balances uint64 `json:"balances"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", grpccodes.Internal}
var ASSET_NOT_FOUND = Code[AssetErrMetadata]{1, "ASSET_NOT_FOUND", grpccodes.NotFound}
var ASSET_ALREADY_EXISTS = Code[AssetErrMetadata]{
	2, "ASSET_ALREADY_EXISTS", grpccodes.AlreadyExists,
}
var MIN_BALANCE_ZERO = Code[AssetErrMetadata]{3, "MIN_BALANCE_ZERO", grpccodes.InvalidArgument}
var NO_PERMISSION = Code[PermissionErrMetadata]{4, "NO_PERMISSION", grpccodes.PermissionDenied}
var STILL_HAS_ACCOUNTS = Code[AssetErrMetadata]{
	5, "STILL_HAS_ACCOUNTS", grpccodes.FailedPrecondition,
}
var BALANCE_LOW = Code[BalanceErrMetadata]{6, "BALANCE_LOW", grpccodes.FailedPrecondition}
var BELOW_MINIMUM = Code[BalanceErrMetadata]{7, "BELOW_MINIMUM", grpccodes.InvalidArgument}
var WOULD_DIE = Code[BalanceErrMetadata]{8, "WOULD_DIE", grpccodes.FailedPrecondition}
var ASSET_FROZEN = Code[AssetErrMetadata]{9, "ASSET_FROZEN", grpccodes.FailedPrecondition}
var ACCOUNT_FROZEN = Code[BalanceErrMetadata]{
	10, "ACCOUNT_FROZEN", grpccodes.FailedPrecondition,
}
var UNAPPROVED = Code[ApprovalErrMetadata]{11, "UNAPPROVED", grpccodes.FailedPrecondition}
var APPROVAL_NOT_FOUND = Code[ApprovalErrMetadata]{
	12, "APPROVAL_NOT_FOUND", grpccodes.NotFound,
}
var OVERFLOW = Code[BalanceErrMetadata]{13, "OVERFLOW", grpccodes.Internal}
var SUPPLY_MISMATCH = Code[SupplyErrMetadata]{14, "SUPPLY_MISMATCH", grpccodes.Internal}
var CORRUPT = Code[map[string]any]{15, "CORRUPT", grpccodes.DataLoss}
var INVALID_METADATA = Code[AssetErrMetadata]{16, "INVALID_METADATA", grpccodes.InvalidArgument}
var BALANCE_NOT_FOUND = Code[BalanceErrMetadata]{17, "BALANCE_NOT_FOUND", grpccodes.NotFound}
