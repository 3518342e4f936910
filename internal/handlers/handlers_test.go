package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/alertas"
	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/authz"
	"github.com/stanstork/taller-api/internal/handlers"
	"github.com/stanstork/taller-api/internal/models"
	"github.com/stanstork/taller-api/internal/notification"
	"github.com/stanstork/taller-api/internal/orden"
	"github.com/stanstork/taller-api/internal/repository"
	"github.com/stanstork/taller-api/internal/repository/memory"
	"github.com/stanstork/taller-api/internal/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type fakeUsuarios struct {
	byEmail   map[string]models.Usuario
	passwords map[string]string
}

func (f *fakeUsuarios) CreateUsuario(_ context.Context, email, password, nombre string, rol models.Rol) (models.Usuario, error) {
	if !models.IsValidRol(rol) {
		return models.Usuario{}, apperr.Invalid("invalid rol %q", rol)
	}
	u := models.Usuario{ID: "u-" + email, Email: email, Nombre: nombre, Rol: rol, Activo: true}
	f.byEmail[email] = u
	f.passwords[email] = password
	return u, nil
}

func (f *fakeUsuarios) Authenticate(_ context.Context, email, password string) (models.Usuario, error) {
	u, ok := f.byEmail[email]
	if !ok || f.passwords[email] != password {
		return models.Usuario{}, repository.ErrInvalidCredentials
	}
	return u, nil
}

func (f *fakeUsuarios) GetByID(_ context.Context, id string) (models.Usuario, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return models.Usuario{}, apperr.NotFound("usuario %s", id)
}

func (f *fakeUsuarios) ListByRol(_ context.Context, rol models.Rol) ([]models.Usuario, error) {
	var out []models.Usuario
	for _, u := range f.byEmail {
		if u.Rol == rol {
			out = append(out, u)
		}
	}
	return out, nil
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

type server struct {
	t       *testing.T
	handler http.Handler
	auth    *handlers.AuthHandler
	ordenes *memory.OrdenStore
}

func newServer(t *testing.T, db handlers.Pinger) *server {
	t.Helper()
	logger := zerolog.Nop()
	usuarios := &fakeUsuarios{byEmail: map[string]models.Usuario{}, passwords: map[string]string{}}
	_, err := usuarios.CreateUsuario(context.Background(), "recepcion@taller.test", "pw", "Recepción", models.RolRecepcion)
	require.NoError(t, err)

	ordenStore := memory.NewOrdenStore()
	notifStore := memory.NewNotificacionStore()
	policy := authz.NewRolePolicy()

	notifSvc := notification.NewService(notifStore, policy, logger)
	ordenSvc := orden.NewService(ordenStore, policy, notification.NewTrigger(notifSvc, "admin-1", logger), logger)
	engine := alertas.NewEngine(ordenStore, notifStore, notifSvc, alertas.Config{Cooldown: time.Hour, FallbackUsuarioID: "admin-1"}, logger)

	auth := handlers.NewAuthHandler(usuarios, secret, logger)
	router := routes.NewRouter(
		handlers.HealthCheck(db),
		auth,
		handlers.NewOrdenHandler(ordenSvc, logger),
		handlers.NewNotificationHandler(notifSvc, logger),
		handlers.NewAlertasHandler(engine, logger),
	)
	return &server{t: t, handler: router, auth: auth, ordenes: ordenStore}
}

func (s *server) token(id string, rol models.Rol) string {
	tok, err := s.auth.IssueToken(models.Usuario{ID: id, Rol: rol}, time.Now())
	require.NoError(s.t, err)
	return tok
}

func (s *server) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func TestHealth(t *testing.T) {
	s := newServer(t, pinger{})
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)

	s = newServer(t, pinger{err: errors.New("connection refused")})
	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodGet, "/health", "", nil).Code)
}

func TestLogin(t *testing.T) {
	s := newServer(t, nil)

	rr := s.do(http.MethodPost, "/api/login", "", map[string]string{"email": "recepcion@taller.test", "password": "pw"})
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rr, &resp)
	require.NotEmpty(t, resp.Token)

	rr = s.do(http.MethodGet, "/api/notificaciones", resp.Token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodPost, "/api/login", "", map[string]string{"email": "recepcion@taller.test", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	s := newServer(t, nil)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/notificaciones", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/notificaciones", "garbage", nil).Code)

	other, err := handlers.NewAuthHandler(nil, "other-secret", zerolog.Nop()).IssueToken(models.Usuario{ID: "x", Rol: models.RolAdmin}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/notificaciones", other, nil).Code)
}

func TestOrdenLifecycle(t *testing.T) {
	s := newServer(t, nil)
	recepcion := s.token("rec-1", models.RolRecepcion)
	tecnico := s.token("tec-1", models.RolTecnico)

	rr := s.do(http.MethodPost, "/api/ordenes", tecnico, map[string]string{"cliente_id": "cli-1"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(http.MethodPost, "/api/ordenes", recepcion, map[string]string{
		"cliente_id":    "cli-1",
		"tipo_servicio": "laptop",
		"tecnico_id":    "tec-1",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created orden.Detalle
	decode(t, rr, &created)
	assert.Equal(t, models.EstadoRecibido, created.Estado)
	assert.Equal(t, orden.SemaforoAzul, created.Semaforo)
	base := "/api/ordenes/" + created.ID

	rr = s.do(http.MethodPatch, base+"/estado", tecnico, map[string]string{"estado": "ENTREGADO"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var rejection map[string]string
	decode(t, rr, &rejection)
	assert.Equal(t, "RECIBIDO", rejection["from"])
	assert.Equal(t, "ENTREGADO", rejection["to"])

	rr = s.do(http.MethodPatch, base+"/estado", tecnico, map[string]string{"estado": "EN_DIAGNOSTICO"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var detalle orden.Detalle
	decode(t, rr, &detalle)
	assert.Equal(t, models.EstadoEnDiagnostico, detalle.Estado)
	assert.Equal(t, orden.SemaforoVerde, detalle.Semaforo)
	require.NotNil(t, detalle.DiagnosticoEn)

	otro := s.token("tec-2", models.RolTecnico)
	rr = s.do(http.MethodPatch, base+"/estado", otro, map[string]string{"estado": "EN_REPARACION"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(http.MethodPatch, base+"/cotizacion", tecnico, map[string]string{"monto": "950.00"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPatch, base+"/prioridad", recepcion, map[string]string{"prioridad": "URGENTE"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodPatch, base+"/tecnico", recepcion, map[string]string{"tecnico_id": "tec-2"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, base+"/historial", recepcion, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var hist struct {
		Historial []models.HistorialEstado `json:"historial"`
	}
	decode(t, rr, &hist)
	require.Len(t, hist.Historial, 1)
	assert.Equal(t, models.EstadoEnDiagnostico, hist.Historial[0].EstadoNuevo)

	rr = s.do(http.MethodGet, base+"/transiciones", recepcion, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var trans struct {
		Transiciones []models.Estado `json:"transiciones"`
	}
	decode(t, rr, &trans)
	assert.ElementsMatch(t, orden.AllowedTransitions(models.EstadoEnDiagnostico), trans.Transiciones)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/ordenes/missing", recepcion, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, base+"/estado", recepcion, map[string]string{"bogus": "x"}).Code)
}

func TestNotificationEndpoints(t *testing.T) {
	s := newServer(t, nil)
	recepcion := s.token("rec-1", models.RolRecepcion)
	tecnico := s.token("tec-1", models.RolTecnico)

	for i := 0; i < 3; i++ {
		rr := s.do(http.MethodPost, "/api/ordenes", recepcion, map[string]string{"cliente_id": "cli-1", "tecnico_id": "tec-1"})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := s.do(http.MethodGet, "/api/notificaciones/no-leidas", tecnico, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var count map[string]int64
	decode(t, rr, &count)
	assert.Equal(t, int64(3), count["no_leidas"])

	rr = s.do(http.MethodGet, "/api/notificaciones?limit=2", tecnico, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page notification.Page
	decode(t, rr, &page)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextCursor)

	rr = s.do(http.MethodGet, "/api/notificaciones?limit=2&cursor="+*page.NextCursor, tecnico, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rest notification.Page
	decode(t, rr, &rest)
	assert.Len(t, rest.Items, 1)
	assert.Nil(t, rest.NextCursor)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/notificaciones?limit=abc", tecnico, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/notificaciones?cursor=%25%25", tecnico, nil).Code)

	id := page.Items[0].ID
	rr = s.do(http.MethodPost, "/api/notificaciones/"+id+"/leer", recepcion, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = s.do(http.MethodPost, "/api/notificaciones/"+id+"/leer", tecnico, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(http.MethodPost, "/api/notificaciones/missing/leer", tecnico, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(http.MethodGet, "/api/notificaciones?solo_no_leidas=true", tecnico, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &page)
	assert.Len(t, page.Items, 2)

	rr = s.do(http.MethodPost, "/api/notificaciones/leer-todas", tecnico, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var marked map[string]int64
	decode(t, rr, &marked)
	assert.Equal(t, int64(2), marked["marcadas"])
}

func TestAlertScanEndpoint(t *testing.T) {
	s := newServer(t, nil)
	listo := time.Now().Add(-6 * 24 * time.Hour)
	tec := "tec-1"
	s.ordenes.Put(models.Orden{
		ID: "o-listo", Folio: 1, Estado: models.EstadoListoEntrega, TecnicoID: &tec,
		ListoEn: &listo, CreadoEn: listo, ActualizadoEn: listo,
	})

	rr := s.do(http.MethodPost, "/api/alertas/scan", s.token("tec-1", models.RolTecnico), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	admin := s.token("admin-1", models.RolAdmin)
	rr = s.do(http.MethodPost, "/api/alertas/scan", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var summary alertas.ScanSummary
	decode(t, rr, &summary)
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Created)

	rr = s.do(http.MethodPost, "/api/alertas/scan", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &summary)
	assert.Zero(t, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
}

func TestCreateUsuarioRequiresAdmin(t *testing.T) {
	s := newServer(t, nil)
	body := map[string]string{"email": "nuevo@taller.test", "password": "pw", "nombre": "Nuevo", "rol": "TECNICO"}

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/usuarios", s.token("rec-1", models.RolRecepcion), body).Code)

	rr := s.do(http.MethodPost, "/api/usuarios", s.token("admin-1", models.RolAdmin), body)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.False(t, strings.Contains(rr.Body.String(), "password"))
}
