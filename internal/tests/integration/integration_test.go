package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestHealthAndMetrics(t *testing.T) {
	ts := NewTestServer(t)

	resp := ts.Do(t, http.MethodGet, "/healthz", "", "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.Do(t, http.MethodGet, "/metrics", "", "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestAuthRequired(t *testing.T) {
	ts := NewTestServer(t)

	resp := ts.Do(t, http.MethodGet, "/v1/teams", "", "")
	expectError(t, resp, http.StatusUnauthorized, "UNAUTHORIZED")

	resp = ts.Do(t, http.MethodGet, "/v1/teams", "not-a-token", "")
	expectError(t, resp, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestScenarioA_CapacityAfterJoining(t *testing.T) {
	ts := NewTestServer(t)

	admin := ts.Register(t, "admin", "admin@example.com", "Admin", "free")
	bob := ts.Register(t, "bob", "bob@example.com", "Bob", "free")

	team := ts.CreateTeam(t, admin, "Smiths")
	if team.Role != "admin" || team.MemberCount != 1 {
		t.Fatalf("unexpected team after create: %+v", team)
	}

	inv := ts.Invite(t, admin, team.TeamID, bob.Email)
	if !inv.IsRegistered || inv.Status != "pending" {
		t.Fatalf("unexpected invite result: %+v", inv)
	}

	resp := ts.Do(t, http.MethodPost, "/v1/teams/"+team.TeamID+"/accept", bob.Token, "")
	expectStatus(t, resp, http.StatusOK)

	var accepted struct {
		Status string `json:"status"`
		Team   struct {
			MemberCount int `json:"member_count"`
		} `json:"team"`
	}
	decode(t, resp, &accepted)

	if accepted.Status != "member" || accepted.Team.MemberCount != 2 {
		t.Fatalf("unexpected accept result: %+v", accepted)
	}

	resp = ts.Do(t, http.MethodPost, "/v1/teams", bob.Token, `{"name": "Bobs"}`)
	body := expectError(t, resp, http.StatusForbidden, "SUBSCRIPTION_LIMIT_REACHED")

	if body.Error.Subscription.CurrentTier != "free" || !body.Error.Subscription.UpgradeRequired {
		t.Fatalf("unexpected subscription payload: %+v", body.Error.Subscription)
	}
	if !strings.Contains(body.Error.Message, "1/1") {
		t.Fatalf("expected counts in message, got %q", body.Error.Message)
	}

	// Accepting twice finds nothing left to accept.
	resp = ts.Do(t, http.MethodPost, "/v1/teams/"+team.TeamID+"/accept", bob.Token, "")
	expectError(t, resp, http.StatusNotFound, "NO_PENDING_INVITATION")
}

func TestRegisterAccount_IgnoresBodyTier(t *testing.T) {
	ts := NewTestServer(t)

	bob := ts.Register(t, "bob", "bob@example.com", "Bob", "free")
	ts.CreateTeam(t, bob, "First")

	resp := ts.Do(t, http.MethodPost, "/v1/teams", bob.Token, `{"name": "Second"}`)
	expectError(t, resp, http.StatusForbidden, "SUBSCRIPTION_LIMIT_REACHED")

	resp = ts.Do(t, http.MethodPost, "/v1/accounts", bob.Token, `{"display_name": "Bob", "tier": "annual"}`)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.Do(t, http.MethodPost, "/v1/teams", bob.Token, `{"name": "Second"}`)
	body := expectError(t, resp, http.StatusForbidden, "SUBSCRIPTION_LIMIT_REACHED")
	if body.Error.Subscription.CurrentTier != "free" {
		t.Fatalf("expected tier to stay free, got %q", body.Error.Subscription.CurrentTier)
	}

	// A token re-issued by the identity service with the new tier upgrades.
	upgraded := SignUser(t, "bob", "bob@example.com", "annual")
	resp = ts.Do(t, http.MethodPost, "/v1/accounts", upgraded.Token, `{"display_name": "Bob"}`)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	ts.CreateTeam(t, upgraded, "Second")
}

func TestScenarioB_EmailInvitationConvertedOnSignup(t *testing.T) {
	ts := NewTestServer(t)

	admin := ts.Register(t, "admin", "admin@example.com", "Admin", "free")
	team := ts.CreateTeam(t, admin, "Smiths")

	inv := ts.Invite(t, admin, team.TeamID, "x@y.com")
	if inv.IsRegistered {
		t.Fatalf("x@y.com should not be registered")
	}
	token := tokenFromLink(t, inv.InvitationLink)

	resp := ts.Do(t, http.MethodGet, "/v1/invitations/token/"+token, "", "")
	expectStatus(t, resp, http.StatusOK)

	var details struct {
		Status    string `json:"status"`
		TeamName  string `json:"team_name"`
		InvitedBy string `json:"invited_by"`
	}
	decode(t, resp, &details)

	if details.Status != "needs_signup" || details.TeamName != "Smiths" || details.InvitedBy != "Admin" {
		t.Fatalf("unexpected invitation details: %+v", details)
	}

	resp = ts.Do(t, http.MethodGet, "/v1/teams/"+team.TeamID+"/email-invitations", admin.Token, "")
	expectStatus(t, resp, http.StatusOK)

	var emails struct {
		Total int `json:"total"`
	}
	decode(t, resp, &emails)
	if emails.Total != 1 {
		t.Fatalf("expected 1 email invitation, got %d", emails.Total)
	}

	x := ts.Register(t, "x", "x@y.com", "Xavier", "free")

	resp = ts.Do(t, http.MethodGet, "/v1/teams/"+team.TeamID+"/email-invitations", admin.Token, "")
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &emails)
	if emails.Total != 0 {
		t.Fatalf("email invitation should be gone after signup, got %d", emails.Total)
	}

	resp = ts.Do(t, http.MethodGet, "/v1/teams/"+team.TeamID+"/invitations", admin.Token, "")
	expectStatus(t, resp, http.StatusOK)

	var pending struct {
		TotalPending       int `json:"total_pending"`
		PendingInvitations []struct {
			UserID string `json:"user_id"`
		} `json:"pending_invitations"`
	}
	decode(t, resp, &pending)
	if pending.TotalPending != 1 || pending.PendingInvitations[0].UserID != "x" {
		t.Fatalf("unexpected pending invitations: %+v", pending)
	}

	resp = ts.Do(t, http.MethodGet, "/v1/invitations/token/"+token, "", "")
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &details)
	if details.Status != "pending" {
		t.Fatalf("expected pending after signup, got %s", details.Status)
	}

	resp = ts.Do(t, http.MethodPost, "/v1/invitations/token/"+token+"/accept", x.Token, "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.Do(t, http.MethodGet, "/v1/teams/"+team.TeamID+"/members", x.Token, "")
	expectStatus(t, resp, http.StatusOK)

	var members struct {
		TotalMembers int `json:"total_members"`
	}
	decode(t, resp, &members)
	if members.TotalMembers != 2 {
		t.Fatalf("expected 2 members, got %d", members.TotalMembers)
	}
}

func TestScenarioC_SoleAdminLeaves(t *testing.T) {
	ts := NewTestServer(t)

	admin := ts.Register(t, "admin", "admin@example.com", "Admin", "free")
	bob := ts.Register(t, "bob", "bob@example.com", "Bob", "free")

	team := ts.CreateTeam(t, admin, "Smiths")

	resp := ts.Do(t, http.MethodPost, "/v1/teams/"+team.TeamID+"/leave", admin.Token, "")
	expectError(t, resp, http.StatusConflict, "LAST_ADMIN")

	ts.Invite(t, admin, team.TeamID, bob.Email)
	resp = ts.Do(t, http.MethodPost, "/v1/teams/"+team.TeamID+"/accept", bob.Token, "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.Do(t, http.MethodPost, "/v1/teams/"+team.TeamID+"/leave", admin.Token, "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.Do(t, http.MethodGet, "/v1/teams/"+team.TeamID, bob.Token, "")
	expectStatus(t, resp, http.StatusOK)

	var view teamBody
	decode(t, resp, &view)

	if view.Role != "member" || view.MemberCount != 1 || len(view.Admins) != 0 {
		t.Fatalf("expected an adminless team with one member, got %+v", view)
	}
}

func TestTeamManagement(t *testing.T) {
	ts := NewTestServer(t)

	admin := ts.Register(t, "admin", "admin@example.com", "Admin", "annual")
	bob := ts.Register(t, "bob", "bob@example.com", "Bob", "free")
	eve := ts.Register(t, "eve", "eve@example.com", "Eve", "free")

	team := ts.CreateTeam(t, admin, "Smiths")

	resp := ts.Do(t, http.MethodPut, "/v1/teams/"+team.TeamID, admin.Token, `{"name": "Smith Family"}`)
	expectStatus(t, resp, http.StatusOK)

	var updated teamBody
	decode(t, resp, &updated)
	if updated.Name != "Smith Family" {
		t.Fatalf("expected renamed team, got %q", updated.Name)
	}

	resp = ts.Do(t, http.MethodPost, "/v1/teams", admin.Token, `{"name": "   "}`)
	expectError(t, resp, http.StatusBadRequest, "TEAM_NAME_REQUIRED")

	inv := ts.Invite(t, admin, team.TeamID, bob.Email)

	resp = ts.Do(t, http.MethodPost, "/v1/teams/"+team.TeamID+"/invite", admin.Token, `{"email": "BOB@example.com"}`)
	expectError(t, resp, http.StatusConflict, "INVITATION_EXISTS")

	resp = ts.Do(t, http.MethodPost, "/v1/invitations/token/"+tokenFromLink(t, inv.InvitationLink)+"/accept", eve.Token, "")
	expectError(t, resp, http.StatusForbidden, "EMAIL_MISMATCH")

	resp = ts.Do(t, http.MethodGet, "/v1/teams/"+team.TeamID, eve.Token, "")
	expectError(t, resp, http.StatusForbidden, "NOT_TEAM_MEMBER")

	resp = ts.Do(t, http.MethodPost, "/v1/teams/"+team.TeamID+"/accept", bob.Token, "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.Do(t, http.MethodGet, "/v1/teams/"+team.TeamID+"/shared-data", bob.Token, "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.Do(t, http.MethodGet, "/v1/teams/"+team.TeamID+"/members/admin/data", bob.Token, "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.Do(t, http.MethodDelete, "/v1/teams/"+team.TeamID+"/members/admin", bob.Token, "")
	expectError(t, resp, http.StatusForbidden, "NOT_TEAM_ADMIN")

	ts.Invite(t, admin, team.TeamID, eve.Email)
	resp = ts.Do(t, http.MethodDelete, "/v1/teams/"+team.TeamID+"/invitations?email=eve@example.com", admin.Token, "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.Do(t, http.MethodPost, "/v1/teams/"+team.TeamID+"/accept", eve.Token, "")
	expectError(t, resp, http.StatusNotFound, "NO_PENDING_INVITATION")

	resp = ts.Do(t, http.MethodDelete, "/v1/teams/"+team.TeamID+"/members/bob", admin.Token, "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = ts.Do(t, http.MethodDelete, "/v1/teams/"+team.TeamID, admin.Token, "")
	expectStatus(t, resp, http.StatusOK)

	var deleted struct {
		RemovedMembers int `json:"removed_members"`
	}
	decode(t, resp, &deleted)
	if deleted.RemovedMembers != 1 {
		t.Fatalf("expected 1 removed membership, got %d", deleted.RemovedMembers)
	}

	resp = ts.Do(t, http.MethodGet, "/v1/teams/"+team.TeamID, admin.Token, "")
	expectError(t, resp, http.StatusForbidden, "NOT_TEAM_MEMBER")

	resp = ts.Do(t, http.MethodGet, "/v1/teams", admin.Token, "")
	expectStatus(t, resp, http.StatusOK)

	var list struct {
		Teams []teamBody `json:"teams"`
	}
	decode(t, resp, &list)
	if len(list.Teams) != 0 {
		t.Fatalf("deleted team still listed: %+v", list.Teams)
	}
}
