package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_DomainCounters(t *testing.T) {
	m := New()

	m.InvitationSent("email")
	m.InvitationSent("email")
	m.InvitationSent("account")
	m.InvitationsConverted(3)
	m.CapacityDenied("teams")
	m.NotificationFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.invitationsSent.WithLabelValues("email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invitationsSent.WithLabelValues("account")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.signupConversions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.capacityDenials.WithLabelValues("teams")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifyFailures))
}

func TestMetrics_Middleware(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/teams/{teamID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/metrics", m.Handler().ServeHTTP)

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/teams/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestTotal.WithLabelValues(http.MethodGet, "/v1/teams/{teamID}", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "teams_http_requests_total"))
}
