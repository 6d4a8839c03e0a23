package domain

import "github.com/google/uuid"

// RegistryID identifies a registered physical asset, distinct from the
// numeric AssetID the token ledger uses.
type RegistryID string

func NewRegistryID() RegistryID {
	return RegistryID(uuid.NewString())
}

// ParseRegistryID validates external input as a registry identifier.
func ParseRegistryID(s string) (RegistryID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RegistryID(u.String()), nil
}

func (r RegistryID) IsZero() bool { return r == "" }

func (r RegistryID) String() string { return string(r) }

// PolicyID identifies an insurance policy.
type PolicyID string

func NewPolicyID() PolicyID {
	return PolicyID(uuid.NewString())
}

// ParsePolicyID validates external input as a policy identifier.
func ParsePolicyID(s string) (PolicyID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return PolicyID(u.String()), nil
}

func (p PolicyID) IsZero() bool { return p == "" }

func (p PolicyID) String() string { return string(p) }

// LeaseID identifies a lease agreement.
type LeaseID string

func NewLeaseID() LeaseID {
	return LeaseID(uuid.NewString())
}

// ParseLeaseID validates external input as a lease identifier.
func ParseLeaseID(s string) (LeaseID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return LeaseID(u.String()), nil
}

func (l LeaseID) IsZero() bool { return l == "" }

func (l LeaseID) String() string { return string(l) }
