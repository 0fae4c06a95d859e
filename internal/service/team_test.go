package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
	"teams-service/internal/lib/capacity"
)

func TestCreateTeam(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()
	alice := f.addUser(t, "alice", "alice@example.com", "Alice", "free")

	view, err := f.teams.CreateTeam(ctx, alice, "  Smiths  ", "family")
	require.NoError(t, err)

	assert.Equal(t, "team-1", view.TeamID)
	assert.Equal(t, "Smiths", view.Name)
	assert.Equal(t, models.RoleAdmin, view.Role)
	assert.Equal(t, 1, view.MemberCount)
	require.Len(t, view.Admins, 1)
	assert.Equal(t, "Alice", view.Admins[0].Name)

	m, err := f.store.GetMembership(ctx, view.TeamID, alice.UserID)
	require.NoError(t, err)
	assert.True(t, m.IsActiveAdmin())
	assert.True(t, m.JoinedAt.Valid)
}

func TestCreateTeam_Validation(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	alice := f.addUser(t, "alice", "alice@example.com", "Alice", "annual")

	tests := []struct {
		name        string
		teamName    string
		description string
		want        error
	}{
		{"empty name", "   ", "", apperrors.ErrTeamNameRequired},
		{"long name", strings.Repeat("a", 101), "", apperrors.ErrTeamNameTooLong},
		{"long description", "ok", strings.Repeat("d", 501), apperrors.ErrDescriptionLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.teams.CreateTeam(context.Background(), alice, tt.teamName, tt.description)
			requireIs(t, err, tt.want)
			assert.True(t, errors.Is(err, apperrors.Invalid))
		})
	}

	_, err := f.teams.CreateTeam(context.Background(), alice, strings.Repeat("a", 100), strings.Repeat("d", 500))
	assert.NoError(t, err)
}

func TestCreateTeam_CapacityByTier(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()
	free := f.addUser(t, "free", "free@example.com", "Free", "free")
	paid := f.addUser(t, "paid", "paid@example.com", "Paid", "monthly")

	f.createTeam(t, free, "first")
	_, err := f.teams.CreateTeam(ctx, free, "second", "")
	requireIs(t, err, apperrors.ErrCapacityExceeded)
	assert.Equal(t, 1, f.metrics.denials)

	f.createTeam(t, paid, "first")
	f.createTeam(t, paid, "second")
}

func TestScenarioA_JoinThenCreateHitsLimit(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin@example.com", "Admin", "free")
	bob := f.addUser(t, "bob", "bob@example.com", "Bob", "free")

	teamID := f.createTeam(t, admin, "Smiths")
	f.join(t, teamID, admin, bob)

	view, err := f.teams.GetTeam(ctx, teamID, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, view.MemberCount)
	assert.Equal(t, models.RoleMember, view.Role)

	_, err = f.teams.CreateTeam(ctx, bob, "Bobs", "")
	requireIs(t, err, apperrors.ErrCapacityExceeded)

	var limitErr *capacity.LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 1, limitErr.Current)
	assert.Equal(t, 1, limitErr.Limit)
}

func TestGetTeam_Access(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin@example.com", "Admin", "free")
	bob := f.addUser(t, "bob", "bob@example.com", "Bob", "free")

	teamID := f.createTeam(t, admin, "Smiths")

	_, err := f.teams.GetTeam(ctx, teamID, bob)
	requireIs(t, err, apperrors.ErrNotTeamMember)

	_, err = f.invites.InviteMember(ctx, teamID, admin, bob.Email)
	require.NoError(t, err)

	_, err = f.teams.GetTeam(ctx, teamID, bob)
	requireIs(t, err, apperrors.Forbidden)

	view, err := f.teams.GetTeam(ctx, teamID, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, view.MemberCount)
	assert.Equal(t, []models.AdminInfo{{UserID: "admin", Name: "Admin"}}, view.Admins)
}

func TestGetTeams(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin@example.com", "Admin", "annual")
	bob := f.addUser(t, "bob", "bob@example.com", "Bob", "annual")

	first := f.createTeam(t, admin, "first")
	second := f.createTeam(t, admin, "second")
	f.join(t, first, admin, bob)

	_, err := f.invites.InviteMember(ctx, second, admin, bob.Email)
	require.NoError(t, err)

	list, err := f.teams.GetTeams(ctx, bob)
	require.NoError(t, err)

	require.Len(t, list.Teams, 1)
	assert.Equal(t, first, list.Teams[0].TeamID)
	assert.Equal(t, 2, list.Teams[0].MemberCount)

	require.Len(t, list.PendingInvitations, 1)
	assert.Equal(t, second, list.PendingInvitations[0].TeamID)
	assert.Equal(t, "Admin", list.PendingInvitations[0].InvitedByName)
}

func TestUpdateTeam(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin@example.com", "Admin", "free")
	bob := f.addUser(t, "bob", "bob@example.com", "Bob", "free")

	teamID := f.createTeam(t, admin, "Smiths")
	f.join(t, teamID, admin, bob)

	name := "Smith family"
	_, err := f.teams.UpdateTeam(ctx, teamID, bob, models.TeamPatch{Name: &name})
	requireIs(t, err, apperrors.ErrNotTeamAdmin)

	_, err = f.teams.UpdateTeam(ctx, teamID, admin, models.TeamPatch{})
	requireIs(t, err, apperrors.ErrInvalidInput)

	desc := "all of us"
	f.clock.Advance(time.Hour)
	view, err := f.teams.UpdateTeam(ctx, teamID, admin, models.TeamPatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Smiths", view.Name)
	assert.Equal(t, "all of us", view.Description)

	view, err = f.teams.UpdateTeam(ctx, teamID, admin, models.TeamPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Smith family", view.Name)
	assert.Equal(t, "all of us", view.Description)

	team, err := f.store.GetTeam(ctx, teamID)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), team.UpdatedAt)
}

func TestDeleteTeam(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin@example.com", "Admin", "free")
	bob := f.addUser(t, "bob", "bob@example.com", "Bob", "free")

	teamID := f.createTeam(t, admin, "Smiths")
	f.join(t, teamID, admin, bob)

	_, err := f.teams.DeleteTeam(ctx, teamID, bob)
	requireIs(t, err, apperrors.ErrNotTeamAdmin)

	res, err := f.teams.DeleteTeam(ctx, teamID, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RemovedMembers)
	assert.Equal(t, f.clock.Now(), res.DeletedAt)
	assert.Equal(t, f.clock.Now().Add(30*24*time.Hour), res.RecoveryDeadline)

	_, err = f.store.GetTeam(ctx, teamID)
	requireIs(t, err, apperrors.ErrTeamNotFound)

	count, err := f.store.CountUserTeams(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// The freed slot lets a free user create a team again.
	f.createTeam(t, admin, "Smiths again")
}

func TestDeletedTeamRejectsMutations(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin@example.com", "Admin", "free")

	teamID := f.createTeam(t, admin, "Smiths")

	// Simulate a delete landing between the guard and the write.
	_, err := f.store.SoftDeleteTeam(ctx, teamID, f.clock.Now())
	require.NoError(t, err)

	name := "ghost"
	_, err = f.store.UpdateTeam(ctx, teamID, models.TeamPatch{Name: &name}, f.clock.Now())
	requireIs(t, err, apperrors.ErrTeamNotFound)

	err = f.store.AddMembership(ctx, models.Membership{
		TeamID: teamID, UserID: "bob", Role: models.RoleMember, Status: models.StatusPending,
	})
	requireIs(t, err, apperrors.ErrTeamNotFound)

	_, err = f.teams.UpdateTeam(ctx, teamID, admin, models.TeamPatch{Name: &name})
	requireIs(t, err, apperrors.Forbidden)
}

func TestScenarioC_SoleAdminLeave(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin@example.com", "Admin", "free")
	bob := f.addUser(t, "bob", "bob@example.com", "Bob", "free")

	teamID := f.createTeam(t, admin, "Smiths")

	_, err := f.teams.LeaveTeam(ctx, teamID, admin)
	requireIs(t, err, apperrors.ErrLastAdmin)
	assert.True(t, errors.Is(err, apperrors.Conflict))

	f.join(t, teamID, admin, bob)

	res, err := f.teams.LeaveTeam(ctx, teamID, admin)
	require.NoError(t, err)
	assert.Equal(t, "Smiths", res.TeamName)
	assert.Empty(t, res.PromotedTo)

	// Current behaviour: the remaining member keeps role member and the team
	// has no admin.
	m, err := f.store.GetMembership(ctx, teamID, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, m.Role)

	admins, err := f.store.CountTeamAdmins(ctx, teamID)
	require.NoError(t, err)
	assert.Zero(t, admins)
}

func TestLeaveTeam_Policies(t *testing.T) {
	setup := func(t *testing.T, policy LastAdminPolicy) (*fixture, string, models.Actor, models.Actor, models.Actor) {
		f := newFixture(t, policy)
		admin := f.addUser(t, "admin", "admin@example.com", "Admin", "free")
		bob := f.addUser(t, "bob", "bob@example.com", "Bob", "free")
		carol := f.addUser(t, "carol", "carol@example.com", "Carol", "free")
		teamID := f.createTeam(t, admin, "Smiths")
		f.join(t, teamID, admin, bob)
		f.clock.Advance(time.Minute)
		f.join(t, teamID, admin, carol)
		return f, teamID, admin, bob, carol
	}

	t.Run("reject", func(t *testing.T) {
		f, teamID, admin, _, _ := setup(t, LastAdminReject)
		_, err := f.teams.LeaveTeam(context.Background(), teamID, admin)
		requireIs(t, err, apperrors.ErrLastAdmin)
	})

	t.Run("promote earliest member", func(t *testing.T) {
		f, teamID, admin, bob, _ := setup(t, LastAdminPromote)
		ctx := context.Background()

		res, err := f.teams.LeaveTeam(ctx, teamID, admin)
		require.NoError(t, err)
		assert.Equal(t, bob.UserID, res.PromotedTo)

		m, err := f.store.GetMembership(ctx, teamID, bob.UserID)
		require.NoError(t, err)
		assert.True(t, m.IsActiveAdmin())
	})

	t.Run("member leaves freely", func(t *testing.T) {
		f, teamID, _, _, carol := setup(t, LastAdminReject)
		ctx := context.Background()

		_, err := f.teams.LeaveTeam(ctx, teamID, carol)
		require.NoError(t, err)

		_, err = f.teams.LeaveTeam(ctx, teamID, carol)
		requireIs(t, err, apperrors.ErrNotTeamMember)
	})
}

func TestParseLastAdminPolicy(t *testing.T) {
	p, err := ParseLastAdminPolicy("PROMOTE")
	require.NoError(t, err)
	assert.Equal(t, LastAdminPromote, p)

	p, err = ParseLastAdminPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LastAdminAllow, p)

	_, err = ParseLastAdminPolicy("elect")
	assert.Error(t, err)
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t, LastAdminPromote)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin@example.com", "Admin", "free")
	bob := f.addUser(t, "bob", "bob@example.com", "Bob", "free")
	carol := f.addUser(t, "carol", "carol@example.com", "Carol", "free")
	dave := f.addUser(t, "dave", "dave@example.com", "Dave", "free")

	teamID := f.createTeam(t, admin, "Smiths")
	f.join(t, teamID, admin, bob)
	f.join(t, teamID, admin, carol)
	_, err := f.invites.InviteMember(ctx, teamID, admin, dave.Email)
	require.NoError(t, err)

	_, err = f.teams.RemoveMember(ctx, teamID, bob, carol.UserID)
	requireIs(t, err, apperrors.ErrNotTeamAdmin)

	_, err = f.teams.RemoveMember(ctx, teamID, admin, admin.UserID)
	requireIs(t, err, apperrors.ErrCannotRemoveSelf)
	assert.True(t, errors.Is(err, apperrors.Forbidden))

	_, err = f.teams.RemoveMember(ctx, teamID, admin, "nobody")
	requireIs(t, err, apperrors.NotFound)

	require.NoError(t, f.store.UpdateRole(ctx, teamID, bob.UserID, models.RoleAdmin))
	_, err = f.teams.RemoveMember(ctx, teamID, admin, bob.UserID)
	requireIs(t, err, apperrors.ErrCannotRemoveAdmin)
	assert.True(t, errors.Is(err, apperrors.Conflict))

	res, err := f.teams.RemoveMember(ctx, teamID, admin, carol.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.AdminInfo{UserID: "carol", Name: "Carol"}, res.RemovedUser)

	// Pending rows can be removed too.
	_, err = f.teams.RemoveMember(ctx, teamID, admin, dave.UserID)
	require.NoError(t, err)
	_, err = f.store.GetMembership(ctx, teamID, dave.UserID)
	requireIs(t, err, apperrors.ErrMembershipNotFound)
}

func TestAdminInvariantHoldsAcrossOperations(t *testing.T) {
	f := newFixture(t, LastAdminReject)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin@example.com", "Admin", "free")
	bob := f.addUser(t, "bob", "bob@example.com", "Bob", "free")

	teamID := f.createTeam(t, admin, "Smiths")
	f.join(t, teamID, admin, bob)

	_, _ = f.teams.LeaveTeam(ctx, teamID, admin)
	_, _ = f.teams.RemoveMember(ctx, teamID, bob, admin.UserID)
	_, _ = f.teams.RemoveMember(ctx, teamID, admin, admin.UserID)
	_, _ = f.teams.LeaveTeam(ctx, teamID, bob)

	admins, err := f.store.CountTeamAdmins(ctx, teamID)
	require.NoError(t, err)
	assert.Equal(t, 1, admins)
}

func TestGetTeamMembersAndSharedData(t *testing.T) {
	f := newFixture(t, LastAdminAllow)
	ctx := context.Background()
	admin := f.addUser(t, "admin", "admin@example.com", "Admin", "free")
	bob := f.addUser(t, "bob", "bob@example.com", "", "free")
	carol := f.addUser(t, "carol", "carol@example.com", "Carol", "free")

	teamID := f.createTeam(t, admin, "Smiths")
	f.clock.Advance(time.Minute)
	f.join(t, teamID, admin, bob)
	_, err := f.invites.InviteMember(ctx, teamID, admin, carol.Email)
	require.NoError(t, err)

	_, err = f.teams.GetTeamMembers(ctx, teamID, carol)
	requireIs(t, err, apperrors.ErrNotTeamMember)

	members, err := f.teams.GetTeamMembers(ctx, teamID, bob)
	require.NoError(t, err)
	require.Equal(t, 2, members.TotalMembers)
	assert.Equal(t, "admin", members.Members[0].UserID)
	assert.Equal(t, "Unknown", members.Members[1].Name)
	assert.Equal(t, "bob@example.com", members.Members[1].Email)
	assert.Equal(t, models.DataSharing{Profile: true}, members.Members[1].DataSharing)
	require.NotNil(t, members.Members[1].JoinedAt)

	shared, err := f.teams.GetSharedData(ctx, teamID, admin)
	require.NoError(t, err)
	require.Len(t, shared.SharedData, 2)
	assert.True(t, shared.SharedData[0].Profile.Shared)
	assert.False(t, shared.SharedData[0].Sleep.Shared)
	assert.Equal(t, "Not shared", shared.SharedData[0].Activity.Message)

	data, err := f.teams.GetMemberData(ctx, teamID, admin, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, "bob", data.UserID)
	assert.Equal(t, models.RoleMember, data.Role)

	_, err = f.teams.GetMemberData(ctx, teamID, admin, carol.UserID)
	requireIs(t, err, apperrors.ErrMembershipNotFound)
}
