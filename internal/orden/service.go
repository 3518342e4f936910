package orden

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/authz"
	"github.com/stanstork/taller-api/internal/events"
	"github.com/stanstork/taller-api/internal/models"
	"github.com/stanstork/taller-api/internal/repository"
)

// Detalle is an order together with its derived urgency and next legal states.
type Detalle struct {
	models.Orden
	Semaforo     Semaforo        `json:"semaforo"`
	Transiciones []models.Estado `json:"transiciones"`
}

type Service struct {
	repo   repository.OrdenRepository
	policy authz.Policy
	sink   events.Sink
	now    func() time.Time
	logger zerolog.Logger
}

type Option func(*Service)

// WithClock overrides the time source used for stamping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo repository.OrdenRepository, policy authz.Policy, sink events.Sink, logger zerolog.Logger, opts ...Option) *Service {
	if sink == nil {
		sink = events.Nop{}
	}
	s := &Service{
		repo:   repo,
		policy: policy,
		sink:   sink,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With().Str("component", "orden_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, id string) (Detalle, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Detalle{}, err
	}
	return s.detalle(o), nil
}

func (s *Service) History(ctx context.Context, id string) ([]models.HistorialEstado, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListHistorial(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor models.Actor, in models.NuevaOrden) (models.Orden, error) {
	if !s.policy.CanCreateOrder(actor) {
		return models.Orden{}, apperr.Forbidden("usuario %s cannot create orders", actor.UsuarioID)
	}
	if strings.TrimSpace(in.ClienteID) == "" {
		return models.Orden{}, apperr.Invalid("cliente_id is required")
	}
	if in.Prioridad == "" {
		in.Prioridad = models.PrioridadNormal
	}
	if !in.Prioridad.Valid() {
		return models.Orden{}, apperr.Invalid("unknown prioridad %q", in.Prioridad)
	}

	now := s.now()
	o := models.Orden{
		Estado:        models.EstadoRecibido,
		Prioridad:     in.Prioridad,
		TipoServicio:  strings.TrimSpace(in.TipoServicio),
		ClienteID:     strings.TrimSpace(in.ClienteID),
		Descripcion:   strings.TrimSpace(in.Descripcion),
		TecnicoID:     normalizeID(in.TecnicoID),
		RecibidoEn:    &now,
		CreadoEn:      now,
		ActualizadoEn: now,
	}
	created, err := s.repo.Create(ctx, o)
	if err != nil {
		return models.Orden{}, err
	}
	s.logger.Info().Str("orden_id", created.ID).Int64("folio", created.Folio).Msg("orden received")
	s.emit(ctx, events.New(events.KindOrdenCreada, created, actor.UsuarioID, now, nil))
	return created, nil
}

// Transition validates and applies a state change. Two concurrent calls from
// the same starting version cannot both succeed; the loser gets ErrConflict.
func (s *Service) Transition(ctx context.Context, actor models.Actor, id string, to models.Estado, motivo *string) (Detalle, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Detalle{}, err
	}
	if !s.policy.CanMutateOrder(actor, o) {
		return Detalle{}, apperr.Forbidden("usuario %s cannot modify orden %s", actor.UsuarioID, id)
	}

	from, version := o.Estado, o.Version
	now := s.now()
	h, err := Apply(&o, to, actor.UsuarioID, trimmed(motivo), now)
	if err != nil {
		return Detalle{}, err
	}
	if h == nil {
		return s.detalle(o), nil
	}

	if err := s.repo.Save(ctx, &o, version, h); err != nil {
		return Detalle{}, err
	}

	s.logger.Info().
		Str("orden_id", o.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("actor_id", actor.UsuarioID).
		Msg("orden transitioned")

	payload := map[string]interface{}{
		"estado_anterior": from,
		"estado_nuevo":    to,
	}
	if h.Motivo != nil {
		payload["motivo"] = *h.Motivo
	}
	s.emit(ctx, events.New(events.KindEstadoCambiado, o, actor.UsuarioID, now, payload))
	if to == models.EstadoCancelado {
		s.emit(ctx, events.New(events.KindOrdenCancelada, o, actor.UsuarioID, now, payload))
	}
	return s.detalle(o), nil
}

func (s *Service) ChangePriority(ctx context.Context, actor models.Actor, id string, p models.Prioridad) (Detalle, error) {
	if !p.Valid() {
		return Detalle{}, apperr.Invalid("unknown prioridad %q", p)
	}
	return s.mutate(ctx, actor, id, func(o *models.Orden) (*events.Event, error) {
		prev := o.Prioridad
		if prev == p {
			return nil, nil
		}
		o.Prioridad = p
		if p.Rank() <= prev.Rank() {
			return &events.Event{}, nil
		}
		evt := events.New(events.KindPrioridadEscalada, *o, actor.UsuarioID, o.ActualizadoEn, map[string]interface{}{
			"prioridad_anterior": prev,
			"prioridad_nueva":    p,
		})
		return &evt, nil
	})
}

func (s *Service) ReassignTechnician(ctx context.Context, actor models.Actor, id, tecnicoID string) (Detalle, error) {
	tecnicoID = strings.TrimSpace(tecnicoID)
	if tecnicoID == "" {
		return Detalle{}, apperr.Invalid("tecnico_id is required")
	}
	return s.mutate(ctx, actor, id, func(o *models.Orden) (*events.Event, error) {
		if o.Estado.Terminal() {
			return nil, apperr.Invalid("orden %s is %s", o.ID, o.Estado)
		}
		if o.TecnicoID != nil && *o.TecnicoID == tecnicoID {
			return nil, nil
		}
		payload := map[string]interface{}{"tecnico_nuevo": tecnicoID}
		if o.TecnicoID != nil {
			payload["tecnico_anterior"] = *o.TecnicoID
		}
		o.TecnicoID = &tecnicoID
		evt := events.New(events.KindTecnicoReasignado, *o, actor.UsuarioID, o.ActualizadoEn, payload)
		return &evt, nil
	})
}

func (s *Service) UpdateQuotation(ctx context.Context, actor models.Actor, id string, monto decimal.Decimal) (Detalle, error) {
	if monto.IsNegative() {
		return Detalle{}, apperr.Invalid("monto must not be negative")
	}
	return s.mutate(ctx, actor, id, func(o *models.Orden) (*events.Event, error) {
		if o.Estado.Terminal() {
			return nil, apperr.Invalid("orden %s is %s", o.ID, o.Estado)
		}
		if o.MontoCotizacion != nil && o.MontoCotizacion.Equal(monto) {
			return nil, nil
		}
		payload := map[string]interface{}{"monto_nuevo": monto.StringFixed(2)}
		if o.MontoCotizacion != nil {
			payload["monto_anterior"] = o.MontoCotizacion.StringFixed(2)
		}
		m := monto
		o.MontoCotizacion = &m
		evt := events.New(events.KindCotizacionModificada, *o, actor.UsuarioID, o.ActualizadoEn, payload)
		return &evt, nil
	})
}

// mutate loads, authorizes and saves a non-state change. change returns nil
// when there is nothing to persist, and an event with an empty Kind when the
// change is persisted silently.
func (s *Service) mutate(ctx context.Context, actor models.Actor, id string, change func(o *models.Orden) (*events.Event, error)) (Detalle, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Detalle{}, err
	}
	if !s.policy.CanMutateOrder(actor, o) {
		return Detalle{}, apperr.Forbidden("usuario %s cannot modify orden %s", actor.UsuarioID, id)
	}

	version := o.Version
	o.ActualizadoEn = s.now()
	evt, err := change(&o)
	if err != nil {
		return Detalle{}, err
	}
	if evt == nil {
		return s.Get(ctx, id)
	}
	if err := s.repo.Save(ctx, &o, version, nil); err != nil {
		return Detalle{}, err
	}
	if evt.Kind != "" {
		evt.Orden.Version = o.Version
		s.emit(ctx, *evt)
	}
	return s.detalle(o), nil
}

func (s *Service) emit(ctx context.Context, evt events.Event) {
	if err := s.sink.Emit(ctx, evt); err != nil {
		s.logger.Warn().
			Err(err).
			Str("event", string(evt.Kind)).
			Str("orden_id", evt.OrdenID).
			Msg("failed to emit orden event")
	}
}

func (s *Service) detalle(o models.Orden) Detalle {
	return Detalle{
		Orden:        o,
		Semaforo:     Calcular(o, s.now()),
		Transiciones: AllowedTransitions(o.Estado),
	}
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
