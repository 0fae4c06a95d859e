package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teams-service/internal/apperrors"
	"teams-service/internal/lib/capacity"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", apperrors.ErrTeamNotFound, http.StatusNotFound, "TEAM_NOT_FOUND"},
		{"wrapped", fmt.Errorf("service.team.GetTeam: %w", apperrors.ErrNotTeamMember), http.StatusForbidden, "NOT_TEAM_MEMBER"},
		{"conflict", apperrors.ErrLastAdmin, http.StatusConflict, "LAST_ADMIN"},
		{"invalid token", apperrors.ErrInvalidToken, http.StatusBadRequest, "INVALID_TOKEN"},
		{"no pending", apperrors.ErrNoPendingInvite, http.StatusNotFound, "NO_PENDING_INVITATION"},
		{"unknown", errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FromError(rec, discard, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestFromError_HidesInternalText(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, discard, errors.New("pq: password authentication failed"))

	assert.NotContains(t, rec.Body.String(), "password")
}

func TestFromError_SubscriptionLimit(t *testing.T) {
	err := capacity.DefaultPolicy().Enforce(capacity.ResourceTeams, capacity.TierFree, capacity.ActionJoin, 1)
	require.Error(t, err)

	rec := httptest.NewRecorder()
	FromError(rec, discard, fmt.Errorf("service.invitation.AcceptInvitation: %w", err))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body SubscriptionErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.Equal(t, CodeSubscriptionLimit, body.Error.Code)
	assert.Equal(t, "You've reached your team limit (1/1 teams)", body.Error.Message)
	assert.Equal(t, "free", body.Error.Subscription.CurrentTier)
	assert.Equal(t, "pro", body.Error.Subscription.RequiredTier)
	assert.True(t, body.Error.Subscription.UpgradeRequired)
	assert.Equal(t, "upgrade", body.Error.Action.Type)
}
