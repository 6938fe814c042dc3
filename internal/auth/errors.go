package auth

import "errors"

var (
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrOutOfScope is returned when a token does not cover the requested station.
	ErrOutOfScope = errors.New("auth: station outside token scope")
)
