package apperrors

var (
	ErrTeamNotFound     = newError(NotFound, "team not found")
	ErrTeamNameRequired = newError(Invalid, "team name is required")
	ErrTeamNameTooLong  = newError(Invalid, "team name must be at most 100 characters")
	ErrDescriptionLong  = newError(Invalid, "team description must be at most 500 characters")
	ErrNotTeamMember    = newError(Forbidden, "you are not a member of this team")
	ErrNotTeamAdmin     = newError(Forbidden, "only admins can perform this action")
)
