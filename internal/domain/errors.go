package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrClaimCodeInvalid   = errors.New("claim code invalid")
	ErrClaimCodeRedeemed  = errors.New("claim code already redeemed")
	ErrRedemptionNotReady = errors.New("redemption not ready for fulfillment")
)
