package wallet

import "errors"

var (
	ErrNoWallet      = errors.New("no wallet linked")
	ErrWalletTaken   = errors.New("wallet is linked to another account")
	ErrSameWallet    = errors.New("wallet is already linked to this account")
	ErrInvalidWallet = errors.New("invalid wallet address")
)
