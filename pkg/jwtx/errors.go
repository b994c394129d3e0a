package jwtx

import "errors"

var (
	ErrNoKeys        = errors.New("jwtx: no signing keys available")
	ErrUnknownKid    = errors.New("jwtx: unknown key id")
	ErrUnexpectedAlg = errors.New("jwtx: unexpected signing algorithm")
	ErrInvalidToken  = errors.New("jwtx: invalid token")
	ErrExpired       = errors.New("jwtx: token expired")
	ErrNotYetValid   = errors.New("jwtx: token not yet valid")
	ErrIssuer        = errors.New("jwtx: issuer mismatch")
	ErrAudience      = errors.New("jwtx: audience mismatch")
)
