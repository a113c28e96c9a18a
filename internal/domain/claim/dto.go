package claim

import "github.com/funplanet/claim-api/internal/domain/ledger"

type challengeRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,eth_address"`
	ClaimType     string `json:"claim_type" validate:"required,claim_type"`
}

type submitRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,eth_address"`
	ClaimType     string `json:"claim_type" validate:"required,claim_type"`
	GameID        string `json:"game_id" validate:"omitempty,max=64"`
	Nonce         string `json:"nonce" validate:"required"`
	Message       string `json:"message" validate:"required"`
	Signature     string `json:"signature" validate:"required"`
}

type rewardsResponse struct {
	Rewards []*ledger.PendingReward `json:"rewards"`
	Total   int64                   `json:"total"`
}
