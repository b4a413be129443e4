package users

import "errors"

var (
	ErrNotFound      = errors.New("user not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmailTaken    = errors.New("email already registered")
	ErrWeakPassword  = errors.New("password too short")
	ErrSelfStatus    = errors.New("cannot change own status")
	ErrScopeRequired = errors.New("scope is required for this role")
)
