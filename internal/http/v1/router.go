package v1

import (
	"github.com/go-chi/chi/v5"
	"log/slog"
	"teams-service/internal/http/v1/middleware"
	"teams-service/internal/http/v1/router"
	"teams-service/internal/service"
)

type Router interface {
	SetupRoutes(r chi.Router)
}

type RouterDependencies struct {
	TeamService       *service.TeamService
	InvitationService *service.InvitationService
	AccountService    *service.AccountService
	Verifier          middleware.Verifier
}

// SetupRoutes mounts the v1 API under /v1.
func SetupRoutes(r chi.Router, deps *RouterDependencies, log *slog.Logger) {
	auth := middleware.Auth(deps.Verifier, log)

	routers := []Router{
		router.NewTeamRouter(deps.TeamService, auth, log),
		router.NewInvitationRouter(deps.InvitationService, auth, log),
		router.NewAccountRouter(deps.AccountService, auth, log),
	}

	r.Route("/v1", func(r chi.Router) {
		for _, serviceRouter := range routers {
			serviceRouter.SetupRoutes(r)
		}
	})
}
