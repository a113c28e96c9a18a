package admin

import "errors"

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAdminInactive      = errors.New("admin account is inactive")
	ErrCannotManageRole   = errors.New("cannot manage admin with equal or higher role")
	ErrEmailTaken         = errors.New("email already in use")
	ErrSettingNotFound    = errors.New("setting not found")
	ErrConfirmMismatch    = errors.New("confirmation phrase does not match")
	ErrNotBlacklisted     = errors.New("entry not found in blacklist")
)
