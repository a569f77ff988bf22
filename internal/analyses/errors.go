package analyses

import "errors"

var (
	ErrNotFound              = errors.New("analysis not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrAlreadyFinished       = errors.New("analysis already finished")
	ErrJobQueueNotConfigured = errors.New("job queue not configured")
)

const (
	ErrorCodeValidation           = "VALIDATION_ERROR"
	ErrorCodeLLMTimeout           = "LLM_TIMEOUT"
	ErrorCodeLLMUnavailable       = "LLM_UNAVAILABLE"
	ErrorCodeLLMSchemaMismatch    = "LLM_SCHEMA_MISMATCH"
	ErrorCodeSourceNotFound       = "SOURCE_NOT_FOUND"
	ErrorCodeSubscriptionRequired = "SUBSCRIPTION_REQUIRED"
	ErrorCodeLimitReached         = "LIMIT_REACHED"
	ErrorCodeInternal             = "INTERNAL_ERROR"
)

const maxErrorMessageLen = 500
