package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrRunInProgress = errors.New("export already in progress")
	ErrInvalidInput  = errors.New("invalid input")
)
