package domain

import (
	"strconv"
	"strings"
)

// AssetID identifies a tokenized asset. IDs are assigned by the upstream
// registry and are opaque to the ledger beyond uniqueness.
type AssetID uint64

// ParseAssetID constructs an AssetID from external input.
//
// Usage: call from handlers/adapters when parsing path or query parameters.
func ParseAssetID(s string) (AssetID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return AssetID(v), nil
}

func (a AssetID) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// ProposalID identifies a governance proposal within an asset's scope.
// Proposal IDs are only unique per asset; (AssetID, ProposalID) is the key.
type ProposalID uint64

// ParseProposalID constructs a ProposalID from external input.
func ParseProposalID(s string) (ProposalID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ProposalID(v), nil
}

func (p ProposalID) String() string {
	return strconv.FormatUint(uint64(p), 10)
}

// Principal is an account address acting on or holding tokens. The ledger
// treats it as an opaque identifier; key custody lives with the caller.
//
// Invariant: non-empty, no surrounding whitespace.
type Principal string

// ParsePrincipal constructs a Principal from external input. It trims
// whitespace and rejects empty values; any other shape is accepted so the
// ledger stays agnostic of the address scheme.
func ParsePrincipal(s string) (Principal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return Principal(s), true
}

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool {
	return p == ""
}

func (p Principal) String() string {
	return string(p)
}
