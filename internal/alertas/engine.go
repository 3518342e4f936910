// Package alertas implements the periodic scan that raises time-based alerts
// for active orders.
package alertas

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/models"
	"github.com/stanstork/taller-api/internal/notification"
	"github.com/stanstork/taller-api/internal/repository"
)

// ScanFailure is an order that could not be processed. It is reported in the
// summary and never aborts the scan.
type ScanFailure struct {
	OrdenID string                  `json:"orden_id"`
	Tipo    models.TipoNotificacion `json:"tipo,omitempty"`
	Error   string                  `json:"error"`
}

type ScanSummary struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Scanned    int           `json:"scanned"`
	Created    int           `json:"created"`
	Skipped    int           `json:"skipped"`
	Failures   []ScanFailure `json:"failures"`
}

// Scanner is the entry point used by the schedulers and the HTTP trigger.
type Scanner interface {
	Run(ctx context.Context) (ScanSummary, error)
}

type Config struct {
	Cooldown          time.Duration
	Inactivity        time.Duration
	FallbackUsuarioID string
}

type Engine struct {
	ordenes        repository.OrdenRepository
	notificaciones repository.NotificacionRepository
	publisher      notification.Service
	rules          []Rule
	cfg            Config
	now            func() time.Time
	logger         zerolog.Logger
}

var _ Scanner = (*Engine)(nil)

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithRules(rules ...Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

func NewEngine(
	ordenes repository.OrdenRepository,
	notificaciones repository.NotificacionRepository,
	publisher notification.Service,
	cfg Config,
	logger zerolog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		ordenes:        ordenes,
		notificaciones: notificaciones,
		publisher:      publisher,
		rules:          DefaultRules(cfg.Inactivity),
		cfg:            cfg,
		now:            func() time.Time { return time.Now().UTC() },
		logger:         logger.With().Str("component", "alert_scan").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run performs one sweep over all active orders. Only a failure to list the
// orders is returned as an error; everything else lands in Failures.
func (e *Engine) Run(ctx context.Context) (ScanSummary, error) {
	summary := ScanSummary{StartedAt: e.now(), Failures: []ScanFailure{}}

	ordenes, err := e.ordenes.ListActive(ctx)
	if err != nil {
		if !errors.Is(err, apperr.ErrRepositoryUnavailable) {
			err = apperr.Unavailable(err, "list active ordenes")
		}
		e.logger.Error().Err(err).Msg("alert scan aborted")
		return summary, err
	}

	for _, o := range ordenes {
		if o.Estado.Terminal() {
			continue
		}
		summary.Scanned++
		e.scanOrden(ctx, o, &summary)
	}

	summary.FinishedAt = e.now()
	e.logger.Info().
		Int("scanned", summary.Scanned).
		Int("created", summary.Created).
		Int("skipped", summary.Skipped).
		Int("failures", len(summary.Failures)).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("alert scan finished")
	return summary, nil
}

func (e *Engine) scanOrden(ctx context.Context, o models.Orden, summary *ScanSummary) {
	now := e.now()
	for _, rule := range e.rules {
		if !rule.Breached(o, now) {
			continue
		}
		created, err := e.raise(ctx, o, rule, now)
		if err != nil {
			e.logger.Warn().
				Err(err).
				Str("orden_id", o.ID).
				Str("tipo", string(rule.Tipo)).
				Msg("alert scan failed for orden")
			summary.Failures = append(summary.Failures, ScanFailure{
				OrdenID: o.ID,
				Tipo:    rule.Tipo,
				Error:   err.Error(),
			})
			continue
		}
		if created {
			summary.Created++
		} else {
			summary.Skipped++
		}
	}
}

func (e *Engine) raise(ctx context.Context, o models.Orden, rule Rule, now time.Time) (bool, error) {
	recipient := e.cfg.FallbackUsuarioID
	if o.TecnicoID != nil && *o.TecnicoID != "" {
		recipient = *o.TecnicoID
	}
	if recipient == "" {
		return false, errors.Errorf("orden %s has no technician and no fallback recipient is configured", o.ID)
	}

	exists, err := e.notificaciones.ExistsUnresolved(ctx, o.ID, rule.Tipo, now.Add(-e.cfg.Cooldown))
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	titulo, mensaje := rule.Describe(o, now)
	ordenID := o.ID
	_, created, err := e.publisher.PublishAlert(ctx, models.Notificacion{
		UsuarioID: recipient,
		Tipo:      rule.Tipo,
		Prioridad: rule.Prioridad,
		OrdenID:   &ordenID,
		Titulo:    titulo,
		Mensaje:   mensaje,
		CreadaEn:  now,
	})
	return created, err
}
