// Package models defines the physical-asset registry records that sit
// upstream of tokenization.
package models

import (
	"time"

	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
)

// Status tracks an asset's registry lifecycle.
type Status string

const (
	StatusActive      Status = "active"
	StatusTransferred Status = "transferred"
	StatusRetired     Status = "retired"
)

const (
	minNameLen = 3
	maxNameLen = 100

	minMetadataURILen = 11
	maxMetadataURILen = 499
)

// Asset is one registered physical asset. Registry records are independent
// of the token ledger; tokenization references them by external convention.
type Asset struct {
	ID             id.RegistryID     `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	MetadataURI    string            `json:"metadata_uri"`
	PurchaseValue  amount.Amount     `json:"purchase_value"`
	Owner          id.Principal      `json:"owner"`
	Status         Status            `json:"status"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	RegisteredAt   time.Time         `json:"registered_at"`
	LastTransferAt *time.Time        `json:"last_transfer_at,omitempty"`
}

// Validate enforces registration constraints.
func (a *Asset) Validate() error {
	if len(a.Name) < minNameLen || len(a.Name) > maxNameLen {
		return dErrors.New(dErrors.CodeInvalidInput, "asset name must be 3-100 characters")
	}
	if a.PurchaseValue.Sign() < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "purchase value cannot be negative")
	}
	if a.MetadataURI != "" && !validMetadataURI(a.MetadataURI) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid metadata URI")
	}
	if a.Owner.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "owner is required")
	}
	return nil
}

func validMetadataURI(uri string) bool {
	return len(uri) >= minMetadataURILen && len(uri) <= maxMetadataURILen
}
