package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"teams-service/internal/app"
	"teams-service/internal/config"
	"teams-service/internal/lib/accesstoken"
	"testing"
	"time"
)

const (
	authSecret   = "integration-access-secret"
	inviteSecret = "integration-invite-secret"
	linkBaseURL  = "http://invite.test/join/"
)

type TestServer struct {
	App    *app.App
	Server *httptest.Server
}

// NewTestServer wires the whole application on a fresh sqlite file.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	cfg := &config.Config{
		Env:     config.EnvLocal,
		Storage: config.StorageConfig{Driver: config.DriverSQLite},
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "teams.db")},
		Invite: config.InviteConfig{
			Secret:      inviteSecret,
			TTLDays:     30,
			LinkBaseURL: linkBaseURL,
		},
		Auth: config.AuthConfig{Secret: authSecret},
		Capacity: config.CapacityConfig{
			FreeTeams: 1,
			ProTeams:  100,
			FreeTasks: 6,
			ProTasks:  999999,
		},
		Team: config.TeamConfig{LastAdminPolicy: "allow"},
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	a, err := app.New(cfg, log)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}

	ts := &TestServer{
		App:    a,
		Server: httptest.NewServer(a.Handler()),
	}
	t.Cleanup(ts.Close)

	return ts
}

func (s *TestServer) Close() {
	s.Server.Close()
	s.App.Close()
}

// User is an authenticated caller of the API.
type User struct {
	ID    string
	Email string
	Token string
}

// Register signs an access token for the user and calls the account hook.
func (s *TestServer) Register(t *testing.T, id, email, name, tier string) User {
	t.Helper()

	u := SignUser(t, id, email, tier)

	body := fmt.Sprintf(`{"display_name": %q}`, name)
	resp := s.Do(t, http.MethodPost, "/v1/accounts", u.Token, body)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	return u
}

// SignUser issues an access token whose tier claim is tier.
func SignUser(t *testing.T, id, email, tier string) User {
	t.Helper()

	token, err := accesstoken.Sign(authSecret, id, email, tier, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign access token: %v", err)
	}

	return User{ID: id, Email: email, Token: token}
}

func (s *TestServer) Do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func expectStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()

	if resp.StatusCode != status {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d: %s", status, resp.StatusCode, string(body))
	}
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()

	if !strings.HasPrefix(link, linkBaseURL) {
		t.Fatalf("unexpected invitation link %q", link)
	}
	return strings.TrimPrefix(link, linkBaseURL)
}

type errorBody struct {
	Error struct {
		Code         string `json:"code"`
		Message      string `json:"message"`
		Detail       string `json:"detail"`
		Subscription struct {
			CurrentTier     string `json:"current_tier"`
			RequiredTier    string `json:"required_tier"`
			UpgradeRequired bool   `json:"upgrade_required"`
		} `json:"subscription"`
	} `json:"error"`
}

func expectError(t *testing.T, resp *http.Response, status int, code string) errorBody {
	t.Helper()

	expectStatus(t, resp, status)

	var body errorBody
	decode(t, resp, &body)

	if body.Error.Code != code {
		t.Fatalf("expected error code %s, got %s (%s)", code, body.Error.Code, body.Error.Message)
	}

	return body
}

type teamBody struct {
	TeamID      string `json:"team_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	MemberCount int    `json:"member_count"`
	Admins      []struct {
		UserID string `json:"user_id"`
	} `json:"admins"`
}

func (s *TestServer) CreateTeam(t *testing.T, u User, name string) teamBody {
	t.Helper()

	resp := s.Do(t, http.MethodPost, "/v1/teams", u.Token, fmt.Sprintf(`{"name": %q}`, name))
	expectStatus(t, resp, http.StatusCreated)

	var team teamBody
	decode(t, resp, &team)

	return team
}

type inviteBody struct {
	InvitedEmail   string `json:"invited_email"`
	IsRegistered   bool   `json:"is_registered"`
	Status         string `json:"status"`
	InvitationLink string `json:"invitation_link"`
	EmailSent      bool   `json:"email_sent"`
}

func (s *TestServer) Invite(t *testing.T, admin User, teamID, email string) inviteBody {
	t.Helper()

	resp := s.Do(t, http.MethodPost, "/v1/teams/"+teamID+"/invite", admin.Token, fmt.Sprintf(`{"email": %q}`, email))
	expectStatus(t, resp, http.StatusCreated)

	var inv inviteBody
	decode(t, resp, &inv)

	return inv
}
