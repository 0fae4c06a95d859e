package handler

import (
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"
	"teams-service/internal/http/v1/response"
	"teams-service/internal/lib/logger/sl"
	"teams-service/internal/service"
)

type InviteMemberRequest struct {
	Email string `json:"email"`
}

type InvitationHandler struct {
	invitationService *service.InvitationService
	log               *slog.Logger
}

func NewInvitationHandler(invitationService *service.InvitationService, log *slog.Logger) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
		log:               log,
	}
}

func (h *InvitationHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invitation.InviteMember"

	teamID := chi.URLParam(r, "teamID")
	log := h.log.With(slog.String("op", op), slog.String("team_id", teamID))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	var req InviteMemberRequest
	if !decodeBody(w, r, log, &req) {
		return
	}

	res, err := h.invitationService.InviteMember(r.Context(), teamID, actor, req.Email)
	if err != nil {
		log.Warn("failed to invite member", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusCreated, res)
	log.Info("member invited", slog.Bool("email_sent", res.EmailSent))
}

func (h *InvitationHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invitation.AcceptInvitation"

	teamID := chi.URLParam(r, "teamID")
	log := h.log.With(slog.String("op", op), slog.String("team_id", teamID))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	res, err := h.invitationService.AcceptInvitation(r.Context(), teamID, actor)
	if err != nil {
		log.Warn("failed to accept invitation", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, res)
}

func (h *InvitationHandler) GetInvitationFromToken(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invitation.GetInvitationFromToken"

	log := h.log.With(slog.String("op", op))

	details, err := h.invitationService.GetInvitationFromToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		log.Warn("failed to resolve invitation token", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, details)
}

func (h *InvitationHandler) AcceptInvitationByToken(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invitation.AcceptInvitationByToken"

	log := h.log.With(slog.String("op", op))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	res, err := h.invitationService.AcceptInvitationByToken(r.Context(), chi.URLParam(r, "token"), actor)
	if err != nil {
		log.Warn("failed to accept invitation by token", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, res)
}

func (h *InvitationHandler) GetPendingInvitations(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invitation.GetPendingInvitations"

	teamID := chi.URLParam(r, "teamID")
	log := h.log.With(slog.String("op", op), slog.String("team_id", teamID))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	res, err := h.invitationService.GetPendingInvitations(r.Context(), teamID, actor)
	if err != nil {
		log.Warn("failed to get pending invitations", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, res)
}

func (h *InvitationHandler) GetEmailInvitations(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invitation.GetEmailInvitations"

	teamID := chi.URLParam(r, "teamID")
	log := h.log.With(slog.String("op", op), slog.String("team_id", teamID))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	res, err := h.invitationService.GetEmailInvitations(r.Context(), teamID, actor)
	if err != nil {
		log.Warn("failed to get email invitations", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, res)
}

func (h *InvitationHandler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	const op = "handler.invitation.CancelInvitation"

	teamID := chi.URLParam(r, "teamID")
	log := h.log.With(slog.String("op", op), slog.String("team_id", teamID))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		log.Warn("email is required")
		response.Error(w, log, http.StatusBadRequest, "EMAIL_REQUIRED", "email query parameter is required")
		return
	}

	if err := h.invitationService.CancelInvitation(r.Context(), teamID, actor, email); err != nil {
		log.Warn("failed to cancel invitation", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, response.MessageResponse{Message: "Invitation cancelled"})
}
