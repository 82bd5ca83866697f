package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSecretNotFound     = errors.New("secret not found")
	ErrPreferenceNotFound = errors.New("preference not found")
	ErrAuthFailure        = errors.New("authentication failed")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNoRefreshToken     = errors.New("no refresh token available")
	ErrTokenExpired       = errors.New("access token expired")
	ErrRecordNotFound     = errors.New("record not found")
	ErrInvalidCollection  = errors.New("invalid collection key")
	ErrValidation         = errors.New("validation failed")
	ErrStorage            = errors.New("local storage failure")
)

// StorageError reports a failed LocalCache operation. It matches ErrStorage
// with errors.Is.
type StorageError struct {
	Op         string
	Collection CollectionKey
	Err        error
}

func (e *StorageError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
