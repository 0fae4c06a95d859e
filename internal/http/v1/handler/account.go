package handler

import (
	"log/slog"
	"net/http"
	"teams-service/internal/domain/models"
	"teams-service/internal/http/v1/response"
	"teams-service/internal/lib/logger/sl"
	"teams-service/internal/service"
)

// RegisterAccountRequest carries the profile fields a caller may set. The
// user id, email and tier always come from the signed access token.
type RegisterAccountRequest struct {
	DisplayName string `json:"display_name"`
}

type AccountHandler struct {
	accountService *service.AccountService
	log            *slog.Logger
}

func NewAccountHandler(accountService *service.AccountService, log *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		log:            log,
	}
}

func (h *AccountHandler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	const op = "handler.account.RegisterAccount"

	log := h.log.With(slog.String("op", op))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	var req RegisterAccountRequest
	if !decodeBody(w, r, log, &req) {
		return
	}

	res, err := h.accountService.RegisterAccount(r.Context(), models.User{
		UserID:      actor.UserID,
		Email:       actor.Email,
		DisplayName: req.DisplayName,
		Tier:        actor.Tier,
	})
	if err != nil {
		log.Warn("failed to register account", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}

	response.JSON(w, log, status, res)
}
