package trust

import "errors"

var (
	ErrUnknownAccount = errors.New("unknown account")
)
