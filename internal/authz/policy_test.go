package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stanstork/taller-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRolePolicyCanMutateOrder(t *testing.T) {
	p := NewRolePolicy()
	tecnico := "tec-1"
	assigned := models.Orden{ID: "o1", TecnicoID: &tecnico}
	unassigned := models.Orden{ID: "o2"}

	tests := []struct {
		name  string
		actor models.Actor
		orden models.Orden
		want  bool
	}{
		{"admin any order", models.Actor{UsuarioID: "a", Rol: models.RolAdmin}, unassigned, true},
		{"recepcion any order", models.Actor{UsuarioID: "r", Rol: models.RolRecepcion}, assigned, true},
		{"tecnico own order", models.Actor{UsuarioID: "tec-1", Rol: models.RolTecnico}, assigned, true},
		{"tecnico other order", models.Actor{UsuarioID: "tec-2", Rol: models.RolTecnico}, assigned, false},
		{"tecnico unassigned order", models.Actor{UsuarioID: "tec-1", Rol: models.RolTecnico}, unassigned, false},
		{"anonymous", models.Actor{Rol: models.RolAdmin}, unassigned, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CanMutateOrder(tt.actor, tt.orden))
		})
	}
}

func TestRolePolicyNotificationOwnership(t *testing.T) {
	p := NewRolePolicy()
	n := models.Notificacion{ID: "n1", UsuarioID: "u1"}
	assert.True(t, p.CanViewNotification(models.Actor{UsuarioID: "u1", Rol: models.RolTecnico}, n))
	assert.False(t, p.CanViewNotification(models.Actor{UsuarioID: "u2", Rol: models.RolAdmin}, n))
}

func TestRolePolicyCanCreateOrder(t *testing.T) {
	p := NewRolePolicy()
	assert.True(t, p.CanCreateOrder(models.Actor{UsuarioID: "r", Rol: models.RolRecepcion}))
	assert.False(t, p.CanCreateOrder(models.Actor{UsuarioID: "t", Rol: models.RolTecnico}))
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireRole(models.RolAdmin)(ok)

	req := httptest.NewRequest(http.MethodPost, "/api/alertas/scan", nil)
	req = req.WithContext(WithIdentity(req.Context(), "u1", models.RolTecnico))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/alertas/scan", nil)
	req = req.WithContext(WithIdentity(req.Context(), "u1", models.RolAdmin))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	actor, found := ActorFromRequest(req)
	assert.True(t, found)
	assert.Equal(t, models.Actor{UsuarioID: "u1", Rol: models.RolAdmin}, actor)
}
