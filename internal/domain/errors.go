package domain

import "errors"

var (
	ErrNoImageURL        = errors.New("no image URL provided")
	ErrMissingCredential = errors.New("description backend credential is not configured")
	ErrBackend           = errors.New("description backend call failed")
)
