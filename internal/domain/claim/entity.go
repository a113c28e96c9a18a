package claim

// State tracks a claim attempt through the orchestrator. Failure exits at any
// step land in StateRejected with a machine-readable reason.
type State string

const (
	StateRequested          State = "requested"
	StateChallengeIssued    State = "challenge_issued"
	StateSignatureVerified  State = "signature_verified"
	StateEligibilityChecked State = "eligibility_checked"
	StateLedgerReserved     State = "ledger_reserved"
	StateOnChainSubmitted   State = "on_chain_submitted"
	StateConfirmed          State = "confirmed"
	StatePendingReview      State = "pending_review"
	StateRejected           State = "rejected"
)

// Rejection reasons surfaced to clients, beyond those owned by the trust
// evaluator. Stable strings: the UI shows a cooldown timer for some and a
// permanent block for others.
const (
	ReasonClaimsPaused     = "claims_paused"
	ReasonAlreadyClaimed   = "already_claimed"
	ReasonDailyCapExceeded = "daily_cap_exceeded"
	ReasonCooldownActive   = "cooldown_active"
	ReasonChallengeExpired = "challenge_expired"
	ReasonInvalidSignature = "invalid_signature"
	ReasonNothingToClaim   = "nothing_to_claim"
	ReasonTransferFailed   = "transfer_failed"
)

// Result is the terminal outcome of one claim attempt.
type Result struct {
	State           State  `json:"state"`
	Reason          string `json:"reason,omitempty"`
	TxHash          string `json:"tx_hash,omitempty"`
	Amount          int64  `json:"amount,omitempty"`
	CooldownSeconds int64  `json:"cooldown_seconds,omitempty"`
}
