package apperrors

var (
	ErrMembershipNotFound = newError(NotFound, "user is not a member of this team")
	ErrMembershipExists   = newError(Conflict, "membership already exists")
	ErrAlreadyMember      = newError(Conflict, "user is already a team member")
	ErrLastAdmin          = newError(Conflict, "cannot leave team as the only admin, promote another member first or delete the team")
	ErrCannotRemoveAdmin  = newError(Conflict, "cannot remove another admin")
	ErrCannotRemoveSelf   = newError(Forbidden, "cannot remove yourself, leave the team instead")
)
