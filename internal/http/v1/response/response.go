// Package response writes JSON bodies and maps service errors to HTTP
// statuses for the v1 API.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"teams-service/internal/apperrors"
	"teams-service/internal/lib/capacity"
	"teams-service/internal/lib/logger/sl"
)

const CodeSubscriptionLimit = "SUBSCRIPTION_LIMIT_REACHED"

type (
	ErrorResponse struct {
		Error ErrorDetail `json:"error"`
	}

	ErrorDetail struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}

	SubscriptionErrorResponse struct {
		Error SubscriptionErrorDetail `json:"error"`
	}

	SubscriptionErrorDetail struct {
		Code         string                 `json:"code"`
		Message      string                 `json:"message"`
		Detail       string                 `json:"detail"`
		Subscription SubscriptionInfo       `json:"subscription"`
		Action       capacity.UpgradeAction `json:"action"`
	}

	SubscriptionInfo struct {
		CurrentTier     string `json:"current_tier"`
		RequiredTier    string `json:"required_tier"`
		UpgradeRequired bool   `json:"upgrade_required"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

type errorCode struct {
	err  error
	code string
}

// Checked in order; the first match wins.
var errorCodes = []errorCode{
	{apperrors.ErrTeamNotFound, "TEAM_NOT_FOUND"},
	{apperrors.ErrMembershipNotFound, "MEMBER_NOT_FOUND"},
	{apperrors.ErrNoPendingInvite, "NO_PENDING_INVITATION"},
	{apperrors.ErrInvitationNotFound, "INVITATION_NOT_FOUND"},
	{apperrors.ErrUserNotFound, "USER_NOT_FOUND"},
	{apperrors.ErrNotTeamMember, "NOT_TEAM_MEMBER"},
	{apperrors.ErrNotTeamAdmin, "NOT_TEAM_ADMIN"},
	{apperrors.ErrCannotRemoveSelf, "CANNOT_REMOVE_SELF"},
	{apperrors.ErrEmailMismatch, "EMAIL_MISMATCH"},
	{apperrors.ErrAlreadyMember, "ALREADY_MEMBER"},
	{apperrors.ErrInvitationExists, "INVITATION_EXISTS"},
	{apperrors.ErrLastAdmin, "LAST_ADMIN"},
	{apperrors.ErrCannotRemoveAdmin, "CANNOT_REMOVE_ADMIN"},
	{apperrors.ErrEmailTaken, "EMAIL_TAKEN"},
	{apperrors.ErrInvalidToken, "INVALID_TOKEN"},
	{apperrors.ErrInvalidEmail, "INVALID_EMAIL"},
	{apperrors.ErrTeamNameRequired, "TEAM_NAME_REQUIRED"},
	{apperrors.ErrTeamNameTooLong, "TEAM_NAME_TOO_LONG"},
	{apperrors.ErrDescriptionLong, "DESCRIPTION_TOO_LONG"},
	{apperrors.ErrUserIDRequired, "USER_ID_REQUIRED"},
	{apperrors.ErrInvalidInput, "INVALID_INPUT"},
}

func JSON(w http.ResponseWriter, log *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("failed to encode response", sl.Err(err))
	}
}

func Error(w http.ResponseWriter, log *slog.Logger, status int, code, message string) {
	JSON(w, log, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// FromError writes the response for an error returned by a service. Unknown
// errors become a 500 without leaking their text.
func FromError(w http.ResponseWriter, log *slog.Logger, err error) {
	var limitErr *capacity.LimitError
	if errors.As(err, &limitErr) {
		JSON(w, log, http.StatusForbidden, SubscriptionErrorResponse{
			Error: SubscriptionErrorDetail{
				Code:    CodeSubscriptionLimit,
				Message: limitErr.Error(),
				Detail:  limitErr.Detail(),
				Subscription: SubscriptionInfo{
					CurrentTier:     string(limitErr.Tier),
					RequiredTier:    limitErr.RequiredTier(),
					UpgradeRequired: true,
				},
				Action: limitErr.Upgrade(),
			},
		})
		return
	}

	status := Status(err)
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			Error(w, log, status, c.code, c.err.Error())
			return
		}
	}

	switch status {
	case http.StatusInternalServerError:
		Error(w, log, status, "INTERNAL_ERROR", "internal server error")
	default:
		Error(w, log, status, http.StatusText(status), err.Error())
	}
}

// Status maps an error class to an HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, apperrors.NotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.Forbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.Conflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.Invalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
