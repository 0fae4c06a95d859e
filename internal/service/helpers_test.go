package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"teams-service/internal/domain/models"
	"teams-service/internal/lib/invitetoken"
	"teams-service/internal/repo/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.InvitationEmail
	err  error
}

func (n *recordingNotifier) SendInvitationEmail(_ context.Context, msg models.InvitationEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

type countingRecorder struct {
	NopRecorder
	mu       sync.Mutex
	failures int
	denials  int
}

func (r *countingRecorder) NotificationFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func (r *countingRecorder) CapacityDenied(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denials++
}

type fixture struct {
	store    *memory.Store
	clock    *fakeClock
	notifier *recordingNotifier
	metrics  *countingRecorder
	codec    *invitetoken.Codec
	teams    *TeamService
	invites  *InvitationService
	accounts *AccountService
}

func newFixture(t *testing.T, policy LastAdminPolicy) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	metrics := &countingRecorder{}

	codec, err := invitetoken.New("service-test-secret", clock.Now)
	require.NoError(t, err)

	var seq int
	newID := func() string {
		seq++
		return fmt.Sprintf("team-%d", seq)
	}

	teams := NewTeamService(log, store, store, store, TeamConfig{
		LastAdmin: policy,
		Metrics:   metrics,
		Now:       clock.Now,
		NewID:     newID,
	})
	invites := NewInvitationService(log, store, store, store, store, codec, notifier, InvitationConfig{
		LinkBaseURL: "https://yumo.org/invite/",
		TTLDays:     30,
		Metrics:     metrics,
		Now:         clock.Now,
	})
	accounts := NewAccountService(log, store, invites, clock.Now)

	return &fixture{
		store:    store,
		clock:    clock,
		notifier: notifier,
		metrics:  metrics,
		codec:    codec,
		teams:    teams,
		invites:  invites,
		accounts: accounts,
	}
}

func (f *fixture) addUser(t *testing.T, id, email, name, tier string) models.Actor {
	t.Helper()

	_, err := f.store.UpsertUser(context.Background(), models.User{
		UserID:      id,
		Email:       email,
		DisplayName: name,
		Tier:        tier,
		CreatedAt:   f.clock.Now(),
	})
	require.NoError(t, err)

	return models.Actor{UserID: id, Email: email}
}

func (f *fixture) createTeam(t *testing.T, actor models.Actor, name string) string {
	t.Helper()

	view, err := f.teams.CreateTeam(context.Background(), actor, name, "")
	require.NoError(t, err)

	return view.TeamID
}

// join invites and accepts in one step.
func (f *fixture) join(t *testing.T, teamID string, admin, member models.Actor) {
	t.Helper()

	ctx := context.Background()
	_, err := f.invites.InviteMember(ctx, teamID, admin, member.Email)
	require.NoError(t, err)
	_, err = f.invites.AcceptInvitation(ctx, teamID, member)
	require.NoError(t, err)
}

func requireIs(t *testing.T, err error, target error) {
	t.Helper()

	require.Error(t, err)
	require.True(t, errors.Is(err, target), "expected %v, got %v", target, err)
}
