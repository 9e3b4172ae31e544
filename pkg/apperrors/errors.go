package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidTemplate = errors.New("template is missing required placeholders")
	ErrEmptyQuery      = errors.New("query text is empty")
	ErrUnsupportedDB   = errors.New("unsupported datasource type")
)
