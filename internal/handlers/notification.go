package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/authz"
	"github.com/stanstork/taller-api/internal/notification"
)

type NotificationHandler struct {
	service notification.Service
	logger  zerolog.Logger
}

func NewNotificationHandler(service notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	q := r.URL.Query()
	params := notification.ListParams{Cursor: strings.TrimSpace(q.Get("cursor"))}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, h.logger, apperr.Invalid("limit must be a positive integer"), "invalid limit")
			return
		}
		params.Limit = limit
	}
	if raw := strings.TrimSpace(q.Get("solo_no_leidas")); raw != "" {
		only, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, h.logger, apperr.Invalid("solo_no_leidas must be a boolean"), "invalid filter")
			return
		}
		params.SoloNoLeidas = only
	}

	page, err := h.service.List(r.Context(), actor.UsuarioID, params)
	if err != nil {
		writeError(w, h.logger, err, "failed to list notificaciones")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *NotificationHandler) CountUnread(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	count, err := h.service.CountUnread(r.Context(), actor.UsuarioID)
	if err != nil {
		writeError(w, h.logger, err, "failed to count notificaciones")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"no_leidas": count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	id := strings.TrimSpace(mux.Vars(r)["id"])
	n, err := h.service.MarkRead(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.logger.With().Str("notificacion_id", id).Logger(), err, "failed to mark notificacion as read")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFromRequest(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	count, err := h.service.MarkAllRead(r.Context(), actor.UsuarioID)
	if err != nil {
		writeError(w, h.logger, err, "failed to mark notificaciones as read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marcadas": count})
}
