package ledger

import "errors"

var (
	ErrInvalidAmount    = errors.New("amount must be a positive integer")
	ErrUnknownSource    = errors.New("unknown reward source")
	ErrUnknownClaimType = errors.New("unknown claim type")
	ErrAlreadyClaimed   = errors.New("already claimed")
	ErrNotFound         = errors.New("not found")
	ErrAuditWriteFailed = errors.New("audit write failed, reset not applied")
)
