package resumes

import "errors"

var (
	ErrNotFound        = errors.New("resume not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrVersionConflict = errors.New("resume was modified concurrently")
	ErrUnknownStep     = errors.New("unknown wizard step")
	ErrAutosaveClosed  = errors.New("autosave is shutting down")
)

// StepInvalidError reports the field errors that block a wizard step.
type StepInvalidError struct {
	Step   int
	Errors []FieldError
}

func (e *StepInvalidError) Error() string {
	return "wizard step is invalid"
}
