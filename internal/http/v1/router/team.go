package router

import (
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"
	"teams-service/internal/http/v1/handler"
	"teams-service/internal/service"
)

type TeamRouter struct {
	handler *handler.TeamHandler
	auth    func(http.Handler) http.Handler
}

func NewTeamRouter(teamService *service.TeamService, auth func(http.Handler) http.Handler, log *slog.Logger) *TeamRouter {
	return &TeamRouter{
		handler: handler.NewTeamHandler(teamService, log),
		auth:    auth,
	}
}

func (tr *TeamRouter) SetupRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(tr.auth)

		r.Post("/teams", tr.handler.CreateTeam)
		r.Get("/teams", tr.handler.GetTeams)
		r.Get("/teams/{teamID}", tr.handler.GetTeam)
		r.Put("/teams/{teamID}", tr.handler.UpdateTeam)
		r.Delete("/teams/{teamID}", tr.handler.DeleteTeam)

		r.Post("/teams/{teamID}/leave", tr.handler.LeaveTeam)
		r.Get("/teams/{teamID}/members", tr.handler.GetTeamMembers)
		r.Delete("/teams/{teamID}/members/{userID}", tr.handler.RemoveMember)
		r.Get("/teams/{teamID}/members/{userID}/data", tr.handler.GetMemberData)
		r.Get("/teams/{teamID}/shared-data", tr.handler.GetSharedData)
	})
}
