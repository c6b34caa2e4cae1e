package domain

import "context"

type ApprovalRepository interface {
	// GetApproval returns the approval entry, or nil if absent.
	GetApproval(ctx context.Context, key ApprovalKey) (*Approval, error)
	// UpsertApproval creates or overwrites an approval entry.
	UpsertApproval(ctx context.Context, approval Approval) error
	// DeleteApproval removes an approval entry.
	DeleteApproval(ctx context.Context, key ApprovalKey) error
	// DeleteApprovalsByAsset removes all approvals for an asset.
	DeleteApprovalsByAsset(ctx context.Context, id AssetId) error
	// GetApprovalsByAsset returns all approvals for an asset.
	GetApprovalsByAsset(ctx context.Context, id AssetId) ([]Approval, error)
}
