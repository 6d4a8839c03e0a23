// Package models defines the transfer-policy records consulted before any
// token movement commits.
package models

import (
	"time"

	id "assetup/pkg/domain"
)

// Restriction is the per-asset transfer policy. A replaced restriction
// overwrites the previous one wholesale.
//
// The whitelist is stored separately (see the whitelist store): it applies
// even when no Restriction record exists, and when RequireAccredited is set
// it doubles as the accredited-investor registry.
type Restriction struct {
	AssetID           id.AssetID `json:"asset_id"`
	RequireAccredited bool       `json:"require_accredited"`
	GeographicAllowed []string   `json:"geographic_allowed"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
