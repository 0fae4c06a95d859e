package apperrors

var (
	ErrInvitationNotFound = newError(NotFound, "invitation not found or has been cancelled")
	ErrNoPendingInvite    = newError(NotFound, "no pending invitation found")
	ErrInvitationExists   = newError(Conflict, "user already has a pending invitation")
	ErrEmailMismatch      = newError(Forbidden, "this invitation was sent to a different email address")
	ErrInvalidToken       = newError(Invalid, "invalid or expired invitation link")
	ErrInvalidEmail       = newError(Invalid, "invalid email address")
)
