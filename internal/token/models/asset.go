package models

import (
	"time"

	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
)

// MaxDecimals bounds the display precision of a tokenized supply.
const MaxDecimals = 18

// AssetCategory classifies the underlying real-world asset.
type AssetCategory string

const (
	CategoryRealEstate AssetCategory = "real_estate"
	CategoryEquipment  AssetCategory = "equipment"
	CategoryVehicle    AssetCategory = "vehicle"
	CategoryArtwork    AssetCategory = "artwork"
	CategoryCommodity  AssetCategory = "commodity"
	CategoryOther      AssetCategory = "other"
)

var validCategories = map[AssetCategory]bool{
	CategoryRealEstate: true,
	CategoryEquipment:  true,
	CategoryVehicle:    true,
	CategoryArtwork:    true,
	CategoryCommodity:  true,
	CategoryOther:      true,
}

// ParseAssetCategory constructs an AssetCategory from external input.
// Call from handlers when parsing requests; direct casting bypasses the
// allowlist.
func ParseAssetCategory(s string) (AssetCategory, error) {
	if s == "" {
		return CategoryOther, nil
	}
	c := AssetCategory(s)
	if !validCategories[c] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid asset category")
	}
	return c, nil
}

// TokenMetadata describes the tokenized asset for holders and indexers.
// Document hashes are optional anchors to off-ledger paperwork.
type TokenMetadata struct {
	Name                       string        `json:"name"`
	Description                string        `json:"description"`
	Category                   AssetCategory `json:"category"`
	IPFSURI                    string        `json:"ipfs_uri,omitempty"`
	LegalDocsHash              string        `json:"legal_docs_hash,omitempty"`
	ValuationReportHash        string        `json:"valuation_report_hash,omitempty"`
	AccreditedInvestorRequired bool          `json:"accredited_investor_required"`
	GeographicRestrictions     []string      `json:"geographic_restrictions,omitempty"`
}

// TokenizedAsset is the aggregate root for one asset's token supply.
//
// Invariants:
//   - TotalSupply >= 0 and equals the sum of all holder balances at all times
//   - Decimals <= MaxDecimals
//   - Tokenizer is the only principal allowed to mint, burn, lock, and
//     revalue
//   - Once Detokenized is set the supply is frozen; mint, burn, and transfer
//     all reject
type TokenizedAsset struct {
	ID                 id.AssetID    `json:"id"`
	Symbol             string        `json:"symbol"`
	TotalSupply        amount.Amount `json:"total_supply"`
	Decimals           uint32        `json:"decimals"`
	Tokenizer          id.Principal  `json:"tokenizer"`
	MinVotingThreshold amount.Amount `json:"min_voting_threshold"`
	Valuation          amount.Amount `json:"valuation"`
	Metadata           TokenMetadata `json:"metadata"`
	Detokenized        bool          `json:"detokenized"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// NewTokenizedAsset validates tokenization inputs and builds the record.
func NewTokenizedAsset(
	assetID id.AssetID,
	symbol string,
	totalSupply amount.Amount,
	decimals uint32,
	minVotingThreshold amount.Amount,
	tokenizer id.Principal,
	metadata TokenMetadata,
	now time.Time,
) (*TokenizedAsset, error) {
	if symbol == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token symbol cannot be empty")
	}
	if !totalSupply.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "total supply must be positive")
	}
	if decimals > MaxDecimals {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid token decimals")
	}
	if minVotingThreshold.Sign() < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "voting threshold cannot be negative")
	}
	if tokenizer.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tokenizer is required")
	}
	if metadata.Category == "" {
		metadata.Category = CategoryOther
	}
	return &TokenizedAsset{
		ID:                 assetID,
		Symbol:             symbol,
		TotalSupply:        totalSupply,
		Decimals:           decimals,
		Tokenizer:          tokenizer,
		MinVotingThreshold: minVotingThreshold,
		Metadata:           metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// CanMutate reports whether supply-changing operations are still permitted.
func (a *TokenizedAsset) CanMutate() error {
	if a.Detokenized {
		return dErrors.New(dErrors.CodeStateConflict, "asset has been detokenized")
	}
	return nil
}

// ApplyDetokenization freezes the asset permanently.
func (a *TokenizedAsset) ApplyDetokenization(now time.Time) {
	a.Detokenized = true
	a.UpdatedAt = now
}
