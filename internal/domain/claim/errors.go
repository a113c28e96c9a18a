package claim

import "errors"

var (
	ErrChallengeExpired  = errors.New("challenge expired or already used")
	ErrChallengeMismatch = errors.New("submitted message does not match issued challenge")
	ErrDailyCapExceeded  = errors.New("daily cap exceeded")
	ErrNotReviewable     = errors.New("claim is not awaiting review")
)
