package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"assetup/internal/auth"
	"assetup/internal/platform/metrics"
	"assetup/internal/token/models"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/platform/ledgerevents"
	"assetup/pkg/platform/sentinel"
	"assetup/pkg/platform/tx"
	"assetup/pkg/requestcontext"
)

// AssetStore persists tokenized asset records.
type AssetStore interface {
	Create(ctx context.Context, asset *models.TokenizedAsset) error
	Get(ctx context.Context, assetID id.AssetID) (*models.TokenizedAsset, error)
	Update(ctx context.Context, asset *models.TokenizedAsset) error
}

// BalanceStore persists per-holder balances and the incremental holder set.
// Credit, Debit, and Move are each atomic in every backend.
type BalanceStore interface {
	Get(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error)
	Holders(ctx context.Context, assetID id.AssetID) ([]id.Principal, error)
	Credit(ctx context.Context, assetID id.AssetID, holder id.Principal, amt amount.Amount) error
	Debit(ctx context.Context, assetID id.AssetID, holder id.Principal, amt amount.Amount) error
	Move(ctx context.Context, assetID id.AssetID, from, to id.Principal, amt amount.Amount) error
}

// LockStore persists time-locks keyed by (asset, holder).
type LockStore interface {
	Set(ctx context.Context, lock models.Lock) error
	Get(ctx context.Context, assetID id.AssetID, holder id.Principal) (*models.Lock, error)
	Remove(ctx context.Context, assetID id.AssetID, holder id.Principal) error
}

// TransferGate approves or blocks a transfer before any balance moves.
// Implemented by the restriction service.
type TransferGate interface {
	ValidateTransfer(ctx context.Context, assetID id.AssetID, from, to id.Principal) error
}

// Service is the token registry: supply, balances, holder enumeration,
// locks, and valuation for every tokenized asset.
type Service struct {
	assets   AssetStore
	balances BalanceStore
	locks    LockStore
	verifier auth.Verifier
	gate     TransferGate
	tx       tx.Runner
	events   ledgerevents.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEvents(publisher ledgerevents.Publisher) Option {
	return func(s *Service) { s.events = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

// WithTransferGate installs the restriction gate consulted before every
// transfer. Without a gate all transfers are allowed.
func WithTransferGate(gate TransferGate) Option {
	return func(s *Service) { s.gate = gate }
}

func New(assets AssetStore, balances BalanceStore, locks LockStore, verifier auth.Verifier, opts ...Option) (*Service, error) {
	if assets == nil {
		return nil, fmt.Errorf("asset store is required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance store is required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}

	svc := &Service{
		assets:   assets,
		balances: balances,
		locks:    locks,
		verifier: verifier,
		tx:       tx.PassthroughRunner{},
		events:   ledgerevents.NopPublisher{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// TokenizeParams carries the inputs for Tokenize.
type TokenizeParams struct {
	AssetID            id.AssetID
	Symbol             string
	TotalSupply        amount.Amount
	Decimals           uint32
	MinVotingThreshold amount.Amount
	Tokenizer          id.Principal
	Metadata           models.TokenMetadata
}

// Tokenize creates the token supply for an asset and credits all of it to
// the tokenizer, who becomes the sole initial holder.
func (s *Service) Tokenize(ctx context.Context, p TokenizeParams) (*models.TokenizedAsset, error) {
	if err := s.verifier.RequireActor(ctx, p.Tokenizer); err != nil {
		return nil, err
	}

	asset, err := models.NewTokenizedAsset(
		p.AssetID, p.Symbol, p.TotalSupply, p.Decimals,
		p.MinVotingThreshold, p.Tokenizer, p.Metadata,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.assets.Create(txCtx, asset); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyExists, "asset already tokenized")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tokenized asset")
		}
		if err := s.balances.Credit(txCtx, asset.ID, asset.Tokenizer, asset.TotalSupply); err != nil {
			return s.wrapBalanceErr(err, "failed to credit initial supply")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AssetsTokenized.Inc()
	}
	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicToken,
		Action:    ledgerevents.ActionAssetTokenized,
		AssetID:   asset.ID,
		Principal: asset.Tokenizer,
		Amount:    asset.TotalSupply.String(),
	})
	return asset, nil
}

// Mint increases the supply. Only the recorded tokenizer may mint.
func (s *Service) Mint(ctx context.Context, assetID id.AssetID, amt amount.Amount, minter id.Principal) (*models.TokenizedAsset, error) {
	if err := s.verifier.RequireActor(ctx, minter); err != nil {
		return nil, err
	}
	if !amt.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "mint amount must be positive")
	}

	var asset *models.TokenizedAsset
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		asset, err = s.mutableAsset(txCtx, assetID)
		if err != nil {
			return err
		}
		if asset.Tokenizer != minter {
			return dErrors.New(dErrors.CodeUnauthorized, "only the tokenizer may mint")
		}

		newSupply, err := asset.TotalSupply.Add(amt)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeArithmeticFault, "supply overflow")
		}
		asset.TotalSupply = newSupply
		asset.UpdatedAt = requestcontext.Now(txCtx)

		if err := s.balances.Credit(txCtx, assetID, minter, amt); err != nil {
			return s.wrapBalanceErr(err, "failed to credit minted tokens")
		}
		if err := s.assets.Update(txCtx, asset); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update supply")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TokensMinted.Inc()
	}
	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicToken,
		Action:    ledgerevents.ActionTokensMinted,
		AssetID:   assetID,
		Principal: minter,
		Amount:    amt.String(),
	})
	return asset, nil
}

// Burn decreases the supply from the tokenizer's own unlocked balance.
func (s *Service) Burn(ctx context.Context, assetID id.AssetID, amt amount.Amount, burner id.Principal) (*models.TokenizedAsset, error) {
	if err := s.verifier.RequireActor(ctx, burner); err != nil {
		return nil, err
	}
	if !amt.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "burn amount must be positive")
	}

	var asset *models.TokenizedAsset
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		asset, err = s.mutableAsset(txCtx, assetID)
		if err != nil {
			return err
		}
		if asset.Tokenizer != burner {
			return dErrors.New(dErrors.CodeUnauthorized, "only the tokenizer may burn")
		}
		locked, err := s.IsLocked(txCtx, assetID, burner)
		if err != nil {
			return err
		}
		if locked {
			return dErrors.New(dErrors.CodeStateConflict, "tokens are locked")
		}

		newSupply, err := asset.TotalSupply.Sub(amt)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeArithmeticFault, "supply underflow")
		}
		asset.TotalSupply = newSupply
		asset.UpdatedAt = requestcontext.Now(txCtx)

		if err := s.balances.Debit(txCtx, assetID, burner, amt); err != nil {
			return s.wrapBalanceErr(err, "failed to debit burned tokens")
		}
		if err := s.assets.Update(txCtx, asset); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update supply")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TokensBurned.Inc()
	}
	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicToken,
		Action:    ledgerevents.ActionTokensBurned,
		AssetID:   assetID,
		Principal: burner,
		Amount:    amt.String(),
	})
	return asset, nil
}

// Transfer moves tokens between holders after the restriction gate approves.
func (s *Service) Transfer(ctx context.Context, assetID id.AssetID, from, to id.Principal, amt amount.Amount) error {
	if err := s.verifier.RequireActor(ctx, from); err != nil {
		return err
	}
	if !amt.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidInput, "transfer amount must be positive")
	}
	if to.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "recipient is required")
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.mutableAsset(txCtx, assetID); err != nil {
			return err
		}
		if s.gate != nil {
			if err := s.gate.ValidateTransfer(txCtx, assetID, from, to); err != nil {
				if s.metrics != nil {
					s.metrics.TransfersBlocked.Inc()
				}
				return err
			}
		}
		locked, err := s.IsLocked(txCtx, assetID, from)
		if err != nil {
			return err
		}
		if locked {
			return dErrors.New(dErrors.CodeStateConflict, "tokens are locked")
		}
		if err := s.balances.Move(txCtx, assetID, from, to, amt); err != nil {
			return s.wrapBalanceErr(err, "failed to move tokens")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.Transfers.Inc()
	}
	s.publish(ctx, ledgerevents.Event{
		Topic:        ledgerevents.TopicTransfer,
		Action:       ledgerevents.ActionTokensTransferred,
		AssetID:      assetID,
		Principal:    from,
		Counterparty: to,
		Amount:       amt.String(),
	})
	return nil
}

// GetAsset returns the tokenized asset record.
func (s *Service) GetAsset(ctx context.Context, assetID id.AssetID) (*models.TokenizedAsset, error) {
	asset, err := s.assets.Get(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not tokenized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}
	return asset, nil
}

// Balance returns a holder's balance; zero when the holder has none.
func (s *Service) Balance(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error) {
	if _, err := s.GetAsset(ctx, assetID); err != nil {
		return amount.Zero(), err
	}
	amt, err := s.balances.Get(ctx, assetID, holder)
	if err != nil {
		return amount.Zero(), dErrors.Wrap(err, dErrors.CodeInternal, "failed to load balance")
	}
	return amt, nil
}

// Holders enumerates principals with a positive balance, in first-credit
// order.
func (s *Service) Holders(ctx context.Context, assetID id.AssetID) ([]id.Principal, error) {
	if _, err := s.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	holders, err := s.balances.Holders(ctx, assetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enumerate holders")
	}
	return holders, nil
}

// OwnershipPercentage returns holder's share in basis points
// (10000 = 100.00%).
func (s *Service) OwnershipPercentage(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error) {
	asset, err := s.GetAsset(ctx, assetID)
	if err != nil {
		return amount.Zero(), err
	}
	if !asset.TotalSupply.IsPositive() {
		return amount.Zero(), dErrors.New(dErrors.CodeNotFound, "asset not tokenized")
	}
	balance, err := s.balances.Get(ctx, assetID, holder)
	if err != nil {
		return amount.Zero(), dErrors.Wrap(err, dErrors.CodeInternal, "failed to load balance")
	}
	bps, err := balance.MulDiv(amount.FromInt64(10000), asset.TotalSupply)
	if err != nil {
		return amount.Zero(), dErrors.Wrap(err, dErrors.CodeArithmeticFault, "ownership calculation overflow")
	}
	return bps, nil
}

// UpdateValuation records a new valuation for the asset.
func (s *Service) UpdateValuation(ctx context.Context, assetID id.AssetID, newValuation amount.Amount) error {
	if !newValuation.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidInput, "valuation must be positive")
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		asset, err := s.GetAsset(txCtx, assetID)
		if err != nil {
			return err
		}
		if err := s.verifier.RequireActor(txCtx, asset.Tokenizer); err != nil {
			return err
		}
		asset.Valuation = newValuation
		asset.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.assets.Update(txCtx, asset); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update valuation")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:   ledgerevents.TopicToken,
		Action:  ledgerevents.ActionValuationUpdated,
		AssetID: assetID,
		Amount:  newValuation.String(),
	})
	return nil
}

// FinalizeDetokenization freezes the asset after a passed governance vote.
// Called by the detokenization workflow inside its own transaction scope.
func (s *Service) FinalizeDetokenization(ctx context.Context, assetID id.AssetID) error {
	asset, err := s.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if asset.Detokenized {
		return dErrors.New(dErrors.CodeStateConflict, "asset has been detokenized")
	}
	asset.ApplyDetokenization(requestcontext.Now(ctx))
	if err := s.assets.Update(ctx, asset); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark asset detokenized")
	}
	return nil
}

// VotingThreshold exposes the minimum affirmative weight for governance.
func (s *Service) VotingThreshold(ctx context.Context, assetID id.AssetID) (amount.Amount, error) {
	asset, err := s.GetAsset(ctx, assetID)
	if err != nil {
		return amount.Zero(), err
	}
	return asset.MinVotingThreshold, nil
}

// TotalSupply exposes the current supply for pro-rata calculations.
func (s *Service) TotalSupply(ctx context.Context, assetID id.AssetID) (amount.Amount, error) {
	asset, err := s.GetAsset(ctx, assetID)
	if err != nil {
		return amount.Zero(), err
	}
	return asset.TotalSupply, nil
}

// mutableAsset loads an asset and verifies it still accepts supply changes.
func (s *Service) mutableAsset(ctx context.Context, assetID id.AssetID) (*models.TokenizedAsset, error) {
	asset, err := s.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if err := asset.CanMutate(); err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *Service) wrapBalanceErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrInsufficient):
		return dErrors.New(dErrors.CodeInvalidInput, "insufficient balance")
	case errors.Is(err, amount.ErrOverflow):
		return dErrors.Wrap(err, dErrors.CodeArithmeticFault, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) publish(ctx context.Context, event ledgerevents.Event) {
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	s.events.Publish(ctx, event)
}
