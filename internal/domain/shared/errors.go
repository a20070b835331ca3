package shared

import "errors"

// Error kinds shared by every bounded context. Package-level sentinels wrap one of
// these so callers can classify failures with errors.Is without knowing the package.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
)
