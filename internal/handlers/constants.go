package handlers

const (
	SessionCookieName  = "session_id"
	RememberCookieName = "remember_token"

	ErrInvalidFormData       = "Invalid form data"
	ErrUnauthorized          = "Unauthorized"
	ErrForbidden             = "Forbidden"
	ErrNotFound              = "Not found"
	ErrTooManyRequests       = "Too many requests, please try again later"
	ErrInternalServerError   = "Internal server error"
	ErrInternalServerErrorUC = "Internal Server Error"

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"
)
