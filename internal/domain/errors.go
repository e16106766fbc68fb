package domain

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrDecodeFailure     = errors.New("decode failure")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrEncodeFailure     = errors.New("encode failure")

	ErrBusy            = errors.New("a load is already in progress")
	ErrNoImage         = errors.New("no image loaded")
	ErrFeatureDisabled = errors.New("feature disabled")
)
