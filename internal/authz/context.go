package authz

import (
	"context"
	"net/http"

	"github.com/stanstork/taller-api/internal/models"
)

type contextKey string

const (
	userIDKey  contextKey = "usuario_id"
	userRolKey contextKey = "usuario_rol"
)

// WithIdentity stores the authenticated user and role on the context.
func WithIdentity(ctx context.Context, userID string, rol models.Rol) context.Context {
	if userID != "" {
		ctx = context.WithValue(ctx, userIDKey, userID)
	}
	if models.IsValidRol(rol) {
		ctx = context.WithValue(ctx, userRolKey, rol)
	}
	return ctx
}

func UserIDFromRequest(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value(userIDKey).(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}

func RolFromRequest(r *http.Request) (models.Rol, bool) {
	rol, ok := r.Context().Value(userRolKey).(models.Rol)
	if !ok || !models.IsValidRol(rol) {
		return "", false
	}
	return rol, true
}

// ActorFromRequest resolves the caller identity set by the JWT middleware.
func ActorFromRequest(r *http.Request) (models.Actor, bool) {
	uid, ok := UserIDFromRequest(r)
	if !ok {
		return models.Actor{}, false
	}
	rol, ok := RolFromRequest(r)
	if !ok {
		return models.Actor{}, false
	}
	return models.Actor{UsuarioID: uid, Rol: rol}, true
}
