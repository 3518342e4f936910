package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stanstork/taller-api/internal/authz"
	"github.com/stanstork/taller-api/internal/handlers"
	"github.com/stanstork/taller-api/internal/models"
)

// NewRouter wires every HTTP endpoint. Everything under /api except login
// requires a bearer token.
func NewRouter(
	health http.HandlerFunc,
	auth *handlers.AuthHandler,
	ordenes *handlers.OrdenHandler,
	notificaciones *handlers.NotificationHandler,
	alertas *handlers.AlertasHandler,
) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", health).Methods(http.MethodGet)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	api.Handle("/usuarios", authz.RequireRoleHandler(models.RolAdmin, http.HandlerFunc(auth.CreateUsuario))).Methods(http.MethodPost)

	api.Handle("/ordenes", authz.RequireRoleHandler(models.RolRecepcion, http.HandlerFunc(ordenes.Create))).Methods(http.MethodPost)
	api.HandleFunc("/ordenes/{id}", ordenes.Get).Methods(http.MethodGet)
	api.HandleFunc("/ordenes/{id}/historial", ordenes.History).Methods(http.MethodGet)
	api.HandleFunc("/ordenes/{id}/transiciones", ordenes.Transitions).Methods(http.MethodGet)
	api.HandleFunc("/ordenes/{id}/estado", ordenes.Transition).Methods(http.MethodPatch)
	api.HandleFunc("/ordenes/{id}/prioridad", ordenes.ChangePriority).Methods(http.MethodPatch)
	api.HandleFunc("/ordenes/{id}/tecnico", ordenes.ReassignTechnician).Methods(http.MethodPatch)
	api.HandleFunc("/ordenes/{id}/cotizacion", ordenes.UpdateQuotation).Methods(http.MethodPatch)

	api.HandleFunc("/notificaciones", notificaciones.List).Methods(http.MethodGet)
	api.HandleFunc("/notificaciones/no-leidas", notificaciones.CountUnread).Methods(http.MethodGet)
	api.HandleFunc("/notificaciones/leer-todas", notificaciones.MarkAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notificaciones/{id}/leer", notificaciones.MarkRead).Methods(http.MethodPost)

	api.Handle("/alertas/scan", authz.RequireRoleHandler(models.RolAdmin, http.HandlerFunc(alertas.Scan))).Methods(http.MethodPost)

	return router
}
