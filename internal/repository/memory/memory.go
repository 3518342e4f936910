// Package memory provides in-process repositories with the same semantics
// as the Postgres ones, including unread-alert uniqueness. Service and
// handler tests use them as their backing store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/models"
	"github.com/stanstork/taller-api/internal/repository"
)

type OrdenStore struct {
	mu        sync.Mutex
	ordenes   map[string]models.Orden
	historial map[string][]models.HistorialEstado
	folio     int64
}

var _ repository.OrdenRepository = (*OrdenStore)(nil)

func NewOrdenStore() *OrdenStore {
	return &OrdenStore{
		ordenes:   make(map[string]models.Orden),
		historial: make(map[string][]models.HistorialEstado),
	}
}

func (s *OrdenStore) Create(_ context.Context, o models.Orden) (models.Orden, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if _, exists := s.ordenes[o.ID]; exists {
		return models.Orden{}, apperr.Conflict("orden %s already exists", o.ID)
	}
	s.folio++
	o.Folio = s.folio
	o.Version = 1
	s.ordenes[o.ID] = o.Clone()
	return o.Clone(), nil
}

// Put stores an order as-is, replacing any previous row. Used to seed fixtures.
func (s *OrdenStore) Put(o models.Orden) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Version == 0 {
		o.Version = 1
	}
	s.ordenes[o.ID] = o.Clone()
}

func (s *OrdenStore) GetByID(_ context.Context, id string) (models.Orden, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.ordenes[id]
	if !ok {
		return models.Orden{}, apperr.NotFound("orden %s", id)
	}
	return o.Clone(), nil
}

func (s *OrdenStore) ListActive(_ context.Context) ([]models.Orden, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Orden
	for _, o := range s.ordenes {
		if !o.Estado.Terminal() {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreadoEn.Equal(out[j].CreadoEn) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreadoEn.Before(out[j].CreadoEn)
	})
	return out, nil
}

func (s *OrdenStore) Save(_ context.Context, o *models.Orden, expectedVersion int64, h *models.HistorialEstado) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.ordenes[o.ID]
	if !ok {
		return apperr.NotFound("orden %s", o.ID)
	}
	if current.Version != expectedVersion {
		return apperr.Conflict("orden %s changed since version %d", o.ID, expectedVersion)
	}

	o.Version = expectedVersion + 1
	s.ordenes[o.ID] = o.Clone()
	if h != nil {
		h.ID = uuid.NewString()
		s.historial[o.ID] = append(s.historial[o.ID], *h)
	}
	return nil
}

func (s *OrdenStore) ListHistorial(_ context.Context, ordenID string) ([]models.HistorialEstado, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.HistorialEstado, len(s.historial[ordenID]))
	copy(out, s.historial[ordenID])
	return out, nil
}

type alertKey struct {
	ordenID string
	tipo    models.TipoNotificacion
}

type NotificacionStore struct {
	mu      sync.Mutex
	items   map[string]models.Notificacion
	alertas map[string]bool
	unread  map[alertKey]string
}

var _ repository.NotificacionRepository = (*NotificacionStore)(nil)

func NewNotificacionStore() *NotificacionStore {
	return &NotificacionStore{
		items:   make(map[string]models.Notificacion),
		alertas: make(map[string]bool),
		unread:  make(map[alertKey]string),
	}
}

func (s *NotificacionStore) Insert(_ context.Context, n models.Notificacion) (models.Notificacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(n), nil
}

func (s *NotificacionStore) InsertAlert(_ context.Context, n models.Notificacion) (models.Notificacion, bool, error) {
	if n.OrdenID == nil {
		return models.Notificacion{}, false, apperr.Invalid("alert %s without orden", n.Tipo)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := alertKey{ordenID: *n.OrdenID, tipo: n.Tipo}
	if _, exists := s.unread[key]; exists {
		return models.Notificacion{}, false, nil
	}
	created := s.insertLocked(n)
	s.alertas[created.ID] = true
	s.unread[key] = created.ID
	return created, true, nil
}

func (s *NotificacionStore) insertLocked(n models.Notificacion) models.Notificacion {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreadaEn.IsZero() {
		n.CreadaEn = time.Now().UTC()
	}
	n.Leida = false
	n.LeidaEn = nil
	s.items[n.ID] = n
	return n
}

func (s *NotificacionStore) GetByID(_ context.Context, id string) (models.Notificacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return models.Notificacion{}, apperr.NotFound("notificacion %s", id)
	}
	return n, nil
}

func (s *NotificacionStore) Query(_ context.Context, usuarioID string, filter repository.NotificacionFilter) ([]models.Notificacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Notificacion
	for _, n := range s.items {
		if n.UsuarioID != usuarioID {
			continue
		}
		if filter.SoloNoLeidas && n.Leida {
			continue
		}
		if filter.Cursor != nil && !olderThan(n, *filter.Cursor) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return olderThan(out[j], repository.Cursor{CreadaEn: out[i].CreadaEn, ID: out[i].ID})
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// olderThan reports whether n sorts strictly after the cursor in (creada_en, id) descending order.
func olderThan(n models.Notificacion, c repository.Cursor) bool {
	if n.CreadaEn.Equal(c.CreadaEn) {
		return n.ID < c.ID
	}
	return n.CreadaEn.Before(c.CreadaEn)
}

func (s *NotificacionStore) CountUnread(_ context.Context, usuarioID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, n := range s.items {
		if n.UsuarioID == usuarioID && !n.Leida {
			count++
		}
	}
	return count, nil
}

func (s *NotificacionStore) UpdateReadFlag(_ context.Context, id string, at time.Time) (models.Notificacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return models.Notificacion{}, apperr.NotFound("notificacion %s", id)
	}
	s.markLocked(&n, at)
	return n, nil
}

func (s *NotificacionStore) MarkAllRead(_ context.Context, usuarioID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, n := range s.items {
		if n.UsuarioID == usuarioID && !n.Leida {
			s.markLocked(&n, at)
			count++
		}
	}
	return count, nil
}

func (s *NotificacionStore) markLocked(n *models.Notificacion, at time.Time) {
	if n.Leida {
		return
	}
	n.Leida = true
	t := at
	n.LeidaEn = &t
	s.items[n.ID] = *n
	if s.alertas[n.ID] && n.OrdenID != nil {
		delete(s.unread, alertKey{ordenID: *n.OrdenID, tipo: n.Tipo})
	}
}

func (s *NotificacionStore) ExistsUnresolved(_ context.Context, ordenID string, tipo models.TipoNotificacion, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.items {
		if !s.alertas[id] || n.OrdenID == nil || *n.OrdenID != ordenID || n.Tipo != tipo {
			continue
		}
		if !n.Leida || (n.LeidaEn != nil && n.LeidaEn.After(since)) {
			return true, nil
		}
	}
	return false, nil
}
