package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
)

func TestRegisterAccount(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()

	_, err := f.accounts.RegisterAccount(ctx, models.User{Email: "a@example.com"})
	requireIs(t, err, apperrors.ErrUserIDRequired)

	_, err = f.accounts.RegisterAccount(ctx, models.User{UserID: "a", Email: "nope"})
	requireIs(t, err, apperrors.ErrInvalidEmail)

	res, err := f.accounts.RegisterAccount(ctx, models.User{UserID: "a", Email: "A@example.com", Tier: "gold"})
	require.NoError(t, err)
	assert.True(t, res.Created)

	user, err := f.store.GetUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)
	assert.Equal(t, "free", user.Tier)

	res, err = f.accounts.RegisterAccount(ctx, models.User{UserID: "a", Email: "a@example.com", Tier: "annual", DisplayName: "A"})
	require.NoError(t, err)
	assert.False(t, res.Created)

	user, err = f.store.GetUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "annual", user.Tier)
	assert.Equal(t, "A", user.DisplayName)

	_, err = f.accounts.RegisterAccount(ctx, models.User{UserID: "b", Email: "a@example.com"})
	requireIs(t, err, apperrors.ErrEmailTaken)
}

type flakySignup struct {
	next  SignupProcessor
	fails int
}

func (f *flakySignup) ProcessPendingInvitationsOnSignup(ctx context.Context, userID, email string) (int, error) {
	if f.fails > 0 {
		f.fails--
		return 0, errors.New("connection reset")
	}
	return f.next.ProcessPendingInvitationsOnSignup(ctx, userID, email)
}

func TestRegisterAccount_RetryConvertsAfterFailedSweep(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin@example.com", "Admin", "free")

	teamID := f.createTeam(t, admin, "Smiths")
	_, err := f.invites.InviteMember(ctx, teamID, admin, "x@y.com")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := NewAccountService(log, f.store, &flakySignup{next: f.invites, fails: 1}, f.clock.Now)

	_, err = accounts.RegisterAccount(ctx, models.User{UserID: "x", Email: "x@y.com"})
	require.Error(t, err)

	res, err := accounts.RegisterAccount(ctx, models.User{UserID: "x", Email: "x@y.com"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 1, res.InvitationsConverted)

	m, err := f.store.GetMembership(ctx, teamID, "x")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, m.Status)

	_, err = f.store.GetEmailInvitation(ctx, teamID, "x@y.com")
	requireIs(t, err, apperrors.ErrInvitationNotFound)
}
