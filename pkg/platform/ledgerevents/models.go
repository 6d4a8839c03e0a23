// Package ledgerevents is the fire-and-forget notification sink for ledger
// mutations. Services publish an Event after each committed state change;
// indexers and UIs consume them downstream. Events are never read back by
// the ledger itself, so publishing is best-effort.
package ledgerevents

import (
	"context"
	"time"

	id "assetup/pkg/domain"
)

// Topic groups events by the subsystem that emitted them.
type Topic string

const (
	TopicToken          Topic = "token"
	TopicTransfer       Topic = "transfer"
	TopicDividend       Topic = "dividend"
	TopicVoting         Topic = "voting"
	TopicDetokenization Topic = "detokenization"
	TopicRegistry       Topic = "registry"
	TopicInsurance      Topic = "insurance"
	TopicLease          Topic = "lease"
)

// Action identifies what happened. Values mirror the ledger operations.
type Action string

const (
	ActionAssetTokenized     Action = "asset_tokenized"
	ActionTokensMinted       Action = "tokens_minted"
	ActionTokensBurned       Action = "tokens_burned"
	ActionTokensTransferred  Action = "tokens_transferred"
	ActionTokensLocked       Action = "tokens_locked"
	ActionTokensUnlocked     Action = "tokens_unlocked"
	ActionValuationUpdated   Action = "valuation_updated"
	ActionRestrictionSet     Action = "restriction_set"
	ActionWhitelistAdded     Action = "whitelist_added"
	ActionWhitelistRemoved   Action = "whitelist_removed"
	ActionDividendsPaid      Action = "dividends_distributed"
	ActionDividendsClaimed   Action = "dividends_claimed"
	ActionRevenueSharingSet  Action = "revenue_sharing_set"
	ActionVoteCast           Action = "vote_cast"
	ActionDetokenizeProposed Action = "detokenization_proposed"
	ActionDetokenizeExecuted Action = "detokenization_executed"
	ActionAssetRegistered    Action = "asset_registered"
	ActionAssetUpdated       Action = "asset_updated"
	ActionAssetTransferred   Action = "asset_ownership_transferred"
	ActionAssetRetired       Action = "asset_retired"
	ActionPolicyCreated      Action = "policy_created"
	ActionPolicyCancelled    Action = "policy_cancelled"
	ActionPolicySuspended    Action = "policy_suspended"
	ActionPolicyExpired      Action = "policy_expired"
	ActionPolicyRenewed      Action = "policy_renewed"
	ActionLeaseCreated       Action = "lease_created"
	ActionLeaseReturned      Action = "lease_returned"
	ActionLeaseCancelled     Action = "lease_cancelled"
	ActionLeaseExpired       Action = "lease_expired"
)

// Event captures one ledger mutation. Keep it transport-agnostic so stores
// and brokers can fan out without caring about HTTP shapes.
type Event struct {
	Topic        Topic        `json:"topic"`
	Action       Action       `json:"action"`
	Timestamp    time.Time    `json:"timestamp"`
	AssetID      id.AssetID   `json:"asset_id,omitempty"`
	ProposalID   id.ProposalID `json:"proposal_id,omitempty"`
	Principal    id.Principal `json:"principal,omitempty"`
	Counterparty id.Principal `json:"counterparty,omitempty"`
	// Amount is decimal text; zero-value mutations leave it empty.
	Amount string `json:"amount,omitempty"`
	// Reference carries non-token identifiers (lease IDs, policy IDs).
	Reference string `json:"reference,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Publisher accepts events for asynchronous delivery. Implementations must
// never block the publishing call path.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Store persists events for consumers that poll instead of subscribe.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// NopPublisher discards events; the default when no sink is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
