package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/authz"
	"github.com/stanstork/taller-api/internal/models"
	"github.com/stanstork/taller-api/internal/repository"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

type ListParams struct {
	SoloNoLeidas bool
	Limit        int
	Cursor       string
}

// Page is one slice of a user's inbox. NextCursor is nil on the last page.
type Page struct {
	Items      []models.Notificacion `json:"items"`
	NextCursor *string               `json:"next_cursor"`
}

type Service interface {
	// Publish stores a notification and fans it out to the configured notifiers.
	Publish(ctx context.Context, n models.Notificacion) (models.Notificacion, error)
	// PublishAlert stores a scan alert unless an unread one exists for the
	// same order and kind. The boolean reports whether it was created.
	PublishAlert(ctx context.Context, n models.Notificacion) (models.Notificacion, bool, error)
	List(ctx context.Context, usuarioID string, params ListParams) (Page, error)
	CountUnread(ctx context.Context, usuarioID string) (int64, error)
	MarkRead(ctx context.Context, actor models.Actor, id string) (models.Notificacion, error)
	MarkAllRead(ctx context.Context, usuarioID string) (int64, error)
}

type service struct {
	repo      repository.NotificacionRepository
	policy    authz.Policy
	logger    zerolog.Logger
	notifiers []Notifier
	now       func() time.Time
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithNotifiers(notifiers ...Notifier) Option {
	return func(s *service) {
		for _, n := range notifiers {
			if n != nil {
				s.notifiers = append(s.notifiers, n)
			}
		}
	}
}

func NewService(repo repository.NotificacionRepository, policy authz.Policy, logger zerolog.Logger, opts ...Option) Service {
	s := &service{
		repo:   repo,
		policy: policy,
		logger: logger.With().Str("component", "notification_service").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Publish(ctx context.Context, n models.Notificacion) (models.Notificacion, error) {
	if err := s.prepare(&n); err != nil {
		return models.Notificacion{}, err
	}
	created, err := s.repo.Insert(ctx, n)
	if err != nil {
		s.logger.Error().Err(err).Str("tipo", string(n.Tipo)).Msg("failed to persist notification")
		return models.Notificacion{}, err
	}
	s.deliver(ctx, created)
	return created, nil
}

func (s *service) PublishAlert(ctx context.Context, n models.Notificacion) (models.Notificacion, bool, error) {
	if !n.Tipo.Alerta() {
		return models.Notificacion{}, false, apperr.Invalid("%s is not an alert", n.Tipo)
	}
	if err := s.prepare(&n); err != nil {
		return models.Notificacion{}, false, err
	}
	created, ok, err := s.repo.InsertAlert(ctx, n)
	if err != nil || !ok {
		return created, ok, err
	}
	s.deliver(ctx, created)
	return created, true, nil
}

func (s *service) prepare(n *models.Notificacion) error {
	n.UsuarioID = strings.TrimSpace(n.UsuarioID)
	if n.UsuarioID == "" {
		return apperr.Invalid("usuario_id is required")
	}
	if n.Tipo == "" {
		return apperr.Invalid("tipo is required")
	}
	if n.Prioridad == "" {
		n.Prioridad = models.PrioridadNormal
	}
	n.Titulo = strings.TrimSpace(n.Titulo)
	if n.Titulo == "" {
		n.Titulo = string(n.Tipo)
	}
	n.Mensaje = strings.TrimSpace(n.Mensaje)
	if n.CreadaEn.IsZero() {
		n.CreadaEn = s.now()
	}
	return nil
}

func (s *service) deliver(ctx context.Context, n models.Notificacion) {
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), n)
		}
	}
}

func (s *service) List(ctx context.Context, usuarioID string, params ListParams) (Page, error) {
	limit := params.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	filter := repository.NotificacionFilter{SoloNoLeidas: params.SoloNoLeidas, Limit: limit + 1}
	if params.Cursor != "" {
		c, err := DecodeCursor(params.Cursor)
		if err != nil {
			return Page{}, err
		}
		filter.Cursor = &c
	}

	items, err := s.repo.Query(ctx, usuarioID, filter)
	if err != nil {
		return Page{}, err
	}

	page := Page{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		next := EncodeCursor(repository.Cursor{CreadaEn: last.CreadaEn, ID: last.ID})
		page.NextCursor = &next
	}
	if page.Items == nil {
		page.Items = []models.Notificacion{}
	}
	return page, nil
}

func (s *service) CountUnread(ctx context.Context, usuarioID string) (int64, error) {
	return s.repo.CountUnread(ctx, usuarioID)
}

func (s *service) MarkRead(ctx context.Context, actor models.Actor, id string) (models.Notificacion, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.Notificacion{}, err
	}
	if !s.policy.CanViewNotification(actor, n) {
		return models.Notificacion{}, apperr.Forbidden("notificacion %s belongs to another user", id)
	}
	if n.Leida {
		return n, nil
	}
	return s.repo.UpdateReadFlag(ctx, id, s.now())
}

func (s *service) MarkAllRead(ctx context.Context, usuarioID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, usuarioID, s.now())
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
