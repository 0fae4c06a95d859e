package router

import (
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"
	"teams-service/internal/http/v1/handler"
	"teams-service/internal/service"
)

type InvitationRouter struct {
	handler *handler.InvitationHandler
	auth    func(http.Handler) http.Handler
}

func NewInvitationRouter(invitationService *service.InvitationService, auth func(http.Handler) http.Handler, log *slog.Logger) *InvitationRouter {
	return &InvitationRouter{
		handler: handler.NewInvitationHandler(invitationService, log),
		auth:    auth,
	}
}

func (ir *InvitationRouter) SetupRoutes(r chi.Router) {
	// Invitation links are opened before the invitee has an account.
	r.Get("/invitations/token/{token}", ir.handler.GetInvitationFromToken)

	r.Group(func(r chi.Router) {
		r.Use(ir.auth)

		r.Post("/invitations/token/{token}/accept", ir.handler.AcceptInvitationByToken)

		r.Post("/teams/{teamID}/invite", ir.handler.InviteMember)
		r.Post("/teams/{teamID}/accept", ir.handler.AcceptInvitation)
		r.Get("/teams/{teamID}/invitations", ir.handler.GetPendingInvitations)
		r.Delete("/teams/{teamID}/invitations", ir.handler.CancelInvitation)
		r.Get("/teams/{teamID}/email-invitations", ir.handler.GetEmailInvitations)
	})
}
