package handler

import (
	"encoding/json"
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"
	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
	"teams-service/internal/http/v1/middleware"
	"teams-service/internal/http/v1/response"
	"teams-service/internal/lib/logger/sl"
	"teams-service/internal/service"
)

type (
	CreateTeamRequest struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	UpdateTeamRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
)

type TeamHandler struct {
	teamService *service.TeamService
	log         *slog.Logger
}

func NewTeamHandler(teamService *service.TeamService, log *slog.Logger) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		log:         log,
	}
}

// actorOrReject returns the authenticated caller, writing a 401 when the
// route was mounted without the auth middleware.
func actorOrReject(w http.ResponseWriter, r *http.Request, log *slog.Logger) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, log, http.StatusUnauthorized, "UNAUTHORIZED", apperrors.ErrUnauthorized.Error())
		return models.Actor{}, false
	}
	return actor, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Warn("invalid request body", sl.Err(err))
		response.Error(w, log, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return false
	}
	return true
}

func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.CreateTeam"

	log := h.log.With(slog.String("op", op))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	var req CreateTeamRequest
	if !decodeBody(w, r, log, &req) {
		return
	}

	team, err := h.teamService.CreateTeam(r.Context(), actor, req.Name, req.Description)
	if err != nil {
		log.Warn("failed to create team", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusCreated, team)
	log.Info("team created successfully", slog.String("team_id", team.TeamID))
}

func (h *TeamHandler) GetTeams(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.GetTeams"

	log := h.log.With(slog.String("op", op))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	teams, err := h.teamService.GetTeams(r.Context(), actor)
	if err != nil {
		log.Error("failed to get teams", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, teams)
}

func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.GetTeam"

	teamID := chi.URLParam(r, "teamID")
	log := h.log.With(slog.String("op", op), slog.String("team_id", teamID))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), teamID, actor)
	if err != nil {
		log.Warn("failed to get team", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, team)
}

func (h *TeamHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.UpdateTeam"

	teamID := chi.URLParam(r, "teamID")
	log := h.log.With(slog.String("op", op), slog.String("team_id", teamID))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	var req UpdateTeamRequest
	if !decodeBody(w, r, log, &req) {
		return
	}

	patch := models.TeamPatch{Name: req.Name, Description: req.Description}

	team, err := h.teamService.UpdateTeam(r.Context(), teamID, actor, patch)
	if err != nil {
		log.Warn("failed to update team", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, team)
	log.Info("team updated successfully")
}

func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.DeleteTeam"

	teamID := chi.URLParam(r, "teamID")
	log := h.log.With(slog.String("op", op), slog.String("team_id", teamID))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	res, err := h.teamService.DeleteTeam(r.Context(), teamID, actor)
	if err != nil {
		log.Warn("failed to delete team", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, res)
	log.Info("team deleted successfully")
}

func (h *TeamHandler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.LeaveTeam"

	teamID := chi.URLParam(r, "teamID")
	log := h.log.With(slog.String("op", op), slog.String("team_id", teamID))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	res, err := h.teamService.LeaveTeam(r.Context(), teamID, actor)
	if err != nil {
		log.Warn("failed to leave team", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, res)
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.RemoveMember"

	teamID := chi.URLParam(r, "teamID")
	userID := chi.URLParam(r, "userID")
	log := h.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("target_user_id", userID),
	)

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	res, err := h.teamService.RemoveMember(r.Context(), teamID, actor, userID)
	if err != nil {
		log.Warn("failed to remove member", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, res)
}

func (h *TeamHandler) GetTeamMembers(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.GetTeamMembers"

	teamID := chi.URLParam(r, "teamID")
	log := h.log.With(slog.String("op", op), slog.String("team_id", teamID))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	members, err := h.teamService.GetTeamMembers(r.Context(), teamID, actor)
	if err != nil {
		log.Warn("failed to get members", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, members)
}

func (h *TeamHandler) GetSharedData(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.GetSharedData"

	teamID := chi.URLParam(r, "teamID")
	log := h.log.With(slog.String("op", op), slog.String("team_id", teamID))

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	data, err := h.teamService.GetSharedData(r.Context(), teamID, actor)
	if err != nil {
		log.Warn("failed to get shared data", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, data)
}

func (h *TeamHandler) GetMemberData(w http.ResponseWriter, r *http.Request) {
	const op = "handler.team.GetMemberData"

	teamID := chi.URLParam(r, "teamID")
	userID := chi.URLParam(r, "userID")
	log := h.log.With(
		slog.String("op", op),
		slog.String("team_id", teamID),
		slog.String("target_user_id", userID),
	)

	actor, ok := actorOrReject(w, r, log)
	if !ok {
		return
	}

	data, err := h.teamService.GetMemberData(r.Context(), teamID, actor, userID)
	if err != nil {
		log.Warn("failed to get member data", sl.Err(err))
		response.FromError(w, log, err)
		return
	}

	response.JSON(w, log, http.StatusOK, data)
}
