// Package models defines lease agreements over registered assets.
package models

import (
	"time"

	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
)

// Status tracks the lease lifecycle.
type Status string

const (
	StatusActive    Status = "active"
	StatusReturned  Status = "returned"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Lease is one rental agreement. An asset carries at most one active lease
// at a time.
type Lease struct {
	ID            id.LeaseID    `json:"id"`
	AssetID       id.RegistryID `json:"asset_id"`
	Lessor        id.Principal  `json:"lessor"`
	Lessee        id.Principal  `json:"lessee"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	RentPerPeriod amount.Amount `json:"rent_per_period"`
	Deposit       amount.Amount `json:"deposit"`
	Status        Status        `json:"status"`
}

// Validate enforces creation constraints.
func (l *Lease) Validate() error {
	if !l.End.After(l.Start) {
		return dErrors.New(dErrors.CodeInvalidInput, "lease end must be after start")
	}
	if l.Lessor.IsZero() || l.Lessee.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "lessor and lessee are required")
	}
	if l.AssetID.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "asset is required")
	}
	if l.RentPerPeriod.Sign() < 0 || l.Deposit.Sign() < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "rent and deposit cannot be negative")
	}
	return nil
}
