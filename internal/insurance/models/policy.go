// Package models defines insurance policies and claims covering registered
// assets.
package models

import (
	"time"

	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
)

// PolicyStatus tracks the policy lifecycle.
type PolicyStatus string

const (
	PolicyActive    PolicyStatus = "active"
	PolicyExpired   PolicyStatus = "expired"
	PolicyCancelled PolicyStatus = "cancelled"
	PolicySuspended PolicyStatus = "suspended"
)

// PolicyType classifies coverage.
type PolicyType string

const (
	PolicyLiability     PolicyType = "liability"
	PolicyProperty      PolicyType = "property"
	PolicyComprehensive PolicyType = "comprehensive"
	PolicyCustom        PolicyType = "custom"
)

// Policy is one insurance agreement over a registered asset.
//
// Status transitions:
//
//	Active -> Suspended (insurer), Cancelled (holder/insurer), Expired (end date passed)
//	Suspended -> Cancelled, Expired
//	Expired -> Active (renewal)
type Policy struct {
	ID          id.PolicyID   `json:"id"`
	Holder      id.Principal  `json:"holder"`
	Insurer     id.Principal  `json:"insurer"`
	AssetID     id.RegistryID `json:"asset_id"`
	Type        PolicyType    `json:"type"`
	Coverage    amount.Amount `json:"coverage"`
	Deductible  amount.Amount `json:"deductible"`
	Premium     amount.Amount `json:"premium"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	Status      PolicyStatus  `json:"status"`
	AutoRenew   bool          `json:"auto_renew"`
	LastPayment time.Time     `json:"last_payment"`
}

// Validate enforces creation constraints against the given ledger time.
func (p *Policy) Validate(now time.Time) error {
	if !p.Coverage.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidInput, "coverage must be positive")
	}
	if p.Deductible.Cmp(p.Coverage) >= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "deductible must be below coverage")
	}
	if !p.Premium.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidInput, "premium must be positive")
	}
	if !p.StartDate.Before(p.EndDate) {
		return dErrors.New(dErrors.CodeInvalidInput, "start date must precede end date")
	}
	if p.StartDate.Before(now) {
		return dErrors.New(dErrors.CodeInvalidInput, "start date cannot be in the past")
	}
	if p.Holder.IsZero() || p.Insurer.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "holder and insurer are required")
	}
	if p.AssetID.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "asset is required")
	}
	return nil
}

// Cancellable reports whether the policy may move to Cancelled.
func (p *Policy) Cancellable() bool {
	return p.Status == PolicyActive || p.Status == PolicySuspended
}
