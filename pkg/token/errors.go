package token

import "errors"

var (
	ErrInvalidToken     = errors.New("invalid token format")
	ErrSignatureInvalid = errors.New("signature mismatch")
	ErrEmptySecret      = errors.New("token secret is empty")
	ErrKeyDerivation    = errors.New("token key derivation failed")
)
