package apperrors

var (
	ErrUserNotFound   = newError(NotFound, "user not found")
	ErrUserIDRequired = newError(Invalid, "user id is required")
	ErrEmailTaken     = newError(Conflict, "email is already registered to another account")
	ErrUnauthorized   = newError(Forbidden, "authentication required")
)
