package files

import "errors"

var (
	ErrNotFound          = errors.New("file not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNoValidFiles      = errors.New("no valid LAS files to upload")
	ErrAlreadyProcessing = errors.New("file is already being processed")
	ErrTooLarge          = errors.New("file exceeds upload limit")
)
