package service

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrReuseDetected       = errors.New("refresh token reuse detected")
	ErrTokenFamilyRevoked  = errors.New("token family revoked")
	ErrRefreshExpired      = errors.New("refresh token expired")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
)
