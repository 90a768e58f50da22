package entry

import "errors"

// Failure reasons returned by Service. The HTTP layer maps them with errors.Is.
var (
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrURLTaken     = errors.New("url already exists")
	ErrInvalidURL   = errors.New("url contains no usable characters")
	ErrNotFound     = errors.New("entry not found")
	ErrUnauthorized = errors.New("invalid edit code")
	ErrSaveFailed   = errors.New("failed to save entry")
	ErrBackend      = errors.New("storage unavailable")
)

// outcome names an error for logs and metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyContent):
		return "empty_content"
	case errors.Is(err, ErrURLTaken):
		return "url_taken"
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrSaveFailed):
		return "save_failed"
	default:
		return "backend_error"
	}
}
