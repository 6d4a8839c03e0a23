package handler

import (
	"assetup/internal/token/models"
	"assetup/pkg/amount"
)

type tokenizeRequest struct {
	AssetID            string               `json:"asset_id"`
	Symbol             string               `json:"symbol"`
	TotalSupply        amount.Amount        `json:"total_supply"`
	Decimals           uint32               `json:"decimals"`
	MinVotingThreshold amount.Amount        `json:"min_voting_threshold"`
	Metadata           models.TokenMetadata `json:"metadata"`
}

type supplyChangeRequest struct {
	Amount amount.Amount `json:"amount"`
}

type transferRequest struct {
	To     string        `json:"to"`
	Amount amount.Amount `json:"amount"`
}

type valuationRequest struct {
	Valuation amount.Amount `json:"valuation"`
}

type lockRequest struct {
	Holder string `json:"holder"`
	Until  string `json:"until"`
}

type balanceResponse struct {
	Holder  string        `json:"holder"`
	Balance amount.Amount `json:"balance"`
}

type ownershipResponse struct {
	Holder      string        `json:"holder"`
	BasisPoints amount.Amount `json:"basis_points"`
}

type lockStatusResponse struct {
	Holder string `json:"holder"`
	Locked bool   `json:"locked"`
}
