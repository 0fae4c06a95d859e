package router

import (
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"
	"teams-service/internal/http/v1/handler"
	"teams-service/internal/service"
)

type AccountRouter struct {
	handler *handler.AccountHandler
	auth    func(http.Handler) http.Handler
}

func NewAccountRouter(accountService *service.AccountService, auth func(http.Handler) http.Handler, log *slog.Logger) *AccountRouter {
	return &AccountRouter{
		handler: handler.NewAccountHandler(accountService, log),
		auth:    auth,
	}
}

func (ar *AccountRouter) SetupRoutes(r chi.Router) {
	r.With(ar.auth).Post("/accounts", ar.handler.RegisterAccount)
}
