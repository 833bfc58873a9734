package validation

import "errors"

var (
	ErrEmptyFile           = errors.New("empty file")
	ErrFileTooLarge        = errors.New("file size exceeds limit")
	ErrInvalidFileType     = errors.New("invalid file type")
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
)
