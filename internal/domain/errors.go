package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrPrecondition    = errors.New("precondition failed")
	ErrProviderFailure = errors.New("provider failure")
	ErrThumbnail       = errors.New("thumbnail extraction failed")
	ErrPersistence     = errors.New("persistence failure")
	ErrInvalidSetting  = errors.New("invalid setting value")
	ErrUnknownSetting  = errors.New("unknown setting")
)
