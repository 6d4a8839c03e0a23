package models

import (
	"time"

	"assetup/pkg/amount"
	id "assetup/pkg/domain"
)

// ClaimStatus tracks the claim workflow.
type ClaimStatus string

const (
	ClaimSubmitted   ClaimStatus = "submitted"
	ClaimUnderReview ClaimStatus = "under_review"
	ClaimApproved    ClaimStatus = "approved"
	ClaimRejected    ClaimStatus = "rejected"
	ClaimPaid        ClaimStatus = "paid"
	ClaimDisputed    ClaimStatus = "disputed"
)

// ClaimType classifies the loss event.
type ClaimType string

const (
	ClaimTheft     ClaimType = "theft"
	ClaimDamage    ClaimType = "damage"
	ClaimLoss      ClaimType = "loss"
	ClaimLiability ClaimType = "liability"
	ClaimOther     ClaimType = "other"
)

// ClaimID identifies one filed claim.
type ClaimID = id.PolicyID

// Claim is one loss claim filed against an active policy.
//
// Status transitions:
//
//	Submitted -> UnderReview (insurer), Rejected (insurer)
//	UnderReview -> Approved (insurer), Rejected (insurer)
//	Approved -> Paid (insurer)
//	Rejected -> Disputed (claimant)
type Claim struct {
	ID             ClaimID       `json:"id"`
	PolicyID       id.PolicyID   `json:"policy_id"`
	AssetID        id.RegistryID `json:"asset_id"`
	Claimant       id.Principal  `json:"claimant"`
	Type           ClaimType     `json:"type"`
	Amount         amount.Amount `json:"amount"`
	Status         ClaimStatus   `json:"status"`
	FiledAt        time.Time     `json:"filed_at"`
	ApprovedAmount amount.Amount `json:"approved_amount"`
}
