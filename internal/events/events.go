// Package events carries domain events raised by the order service to
// fire-and-forget sinks (notification trigger, message broker).
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stanstork/taller-api/internal/models"
)

type Kind string

const (
	KindOrdenCreada          Kind = "orden_creada"
	KindEstadoCambiado       Kind = "estado_cambiado"
	KindOrdenCancelada       Kind = "orden_cancelada"
	KindTecnicoReasignado    Kind = "tecnico_reasignado"
	KindPrioridadEscalada    Kind = "prioridad_escalada"
	KindCotizacionModificada Kind = "cotizacion_modificada"
)

type Event struct {
	ID         string                 `json:"id"`
	Kind       Kind                   `json:"kind"`
	OrdenID    string                 `json:"orden_id"`
	ActorID    string                 `json:"actor_id"`
	OcurridoEn time.Time              `json:"ocurrido_en"`
	Orden      models.Orden           `json:"orden"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// New builds an event with a fresh id around a snapshot of the order.
func New(kind Kind, o models.Orden, actorID string, at time.Time, payload map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		OrdenID:    o.ID,
		ActorID:    actorID,
		OcurridoEn: at,
		Orden:      o.Clone(),
		Payload:    payload,
	}
}

// Sink receives domain events. Emit must not block on delivery beyond the
// collaborator's own timeout.
type Sink interface {
	Emit(ctx context.Context, evt Event) error
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, evt Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }
