package usage

import "errors"

var (
	// ErrLimitReached means the user spent the quota for the current period.
	ErrLimitReached = errors.New("ai quota reached for this period")
	// ErrInvalidUser is returned for an empty user id.
	ErrInvalidUser = errors.New("user id is required")
)
