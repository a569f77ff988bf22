package files

import "errors"

var (
	ErrNotFound           = errors.New("file not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrTooLarge           = errors.New("file too large")
	ErrPresignUnavailable = errors.New("presigned uploads unavailable")
	ErrNotExtracted       = errors.New("file text not available")
)
