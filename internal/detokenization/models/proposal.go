// Package models defines the detokenization proposal record.
package models

import (
	"time"

	id "assetup/pkg/domain"
)

// Proposal is one asset's pending or executed detokenization. At most one
// live (unexecuted) proposal exists per asset; a new proposal may replace
// an executed one in storage terms, though an executed asset rejects all
// further mutation anyway.
type Proposal struct {
	AssetID    id.AssetID    `json:"asset_id"`
	ProposalID id.ProposalID `json:"proposal_id"`
	Proposer   id.Principal  `json:"proposer"`
	ProposedAt time.Time     `json:"proposed_at"`
	Executed   bool          `json:"executed"`
	ExecutedAt *time.Time    `json:"executed_at,omitempty"`
}

// Live reports whether the proposal still blocks a new one.
func (p *Proposal) Live() bool {
	return !p.Executed
}
