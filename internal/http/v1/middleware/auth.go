// Package middleware authenticates v1 requests.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
	"teams-service/internal/http/v1/response"
	"teams-service/internal/lib/accesstoken"
	"teams-service/internal/lib/logger/sl"
)

type Verifier interface {
	Verify(token string) (accesstoken.Identity, error)
}

type actorKey struct{}

// Auth rejects requests without a valid bearer access token and stores the
// caller in the request context.
func Auth(verifier Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.Auth"

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				log.With(slog.String("op", op)).Warn("missing bearer token")
				response.Error(w, log, http.StatusUnauthorized, "UNAUTHORIZED", apperrors.ErrUnauthorized.Error())
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				log.With(slog.String("op", op)).Warn("invalid access token", sl.Err(err))
				response.Error(w, log, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired access token")
				return
			}

			actor := models.Actor{UserID: identity.UserID, Email: identity.Email, Tier: identity.Tier}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(models.Actor)
	return actor, ok
}
