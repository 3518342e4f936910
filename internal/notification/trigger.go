package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/events"
	"github.com/stanstork/taller-api/internal/models"
)

var kindTipos = map[events.Kind]models.TipoNotificacion{
	events.KindOrdenCreada:          models.NotificacionOrdenCreada,
	events.KindEstadoCambiado:       models.NotificacionEstadoCambiado,
	events.KindOrdenCancelada:       models.NotificacionOrdenCancelada,
	events.KindTecnicoReasignado:    models.NotificacionTecnicoReasignado,
	events.KindPrioridadEscalada:    models.NotificacionPrioridadEscalada,
	events.KindCotizacionModificada: models.NotificacionCotizacionModificada,
}

// Trigger is an events.Sink that turns order events into inbox entries for
// the people working the order. The actor who caused the event is never notified.
type Trigger struct {
	svc      Service
	fallback string
	logger   zerolog.Logger
}

var _ events.Sink = (*Trigger)(nil)

// NewTrigger builds a Trigger. fallbackUsuarioID receives events for orders
// without an assigned technician; empty disables that.
func NewTrigger(svc Service, fallbackUsuarioID string, logger zerolog.Logger) *Trigger {
	return &Trigger{
		svc:      svc,
		fallback: fallbackUsuarioID,
		logger:   logger.With().Str("component", "notification_trigger").Logger(),
	}
}

func (t *Trigger) Emit(ctx context.Context, evt events.Event) error {
	tipo, ok := kindTipos[evt.Kind]
	if !ok {
		return nil
	}
	metadata, err := json.Marshal(eventMetadata(evt))
	if err != nil {
		return err
	}

	titulo, mensaje := describe(evt)
	var errs []error
	for _, usuarioID := range t.recipients(evt) {
		ordenID := evt.OrdenID
		_, err := t.svc.Publish(ctx, models.Notificacion{
			UsuarioID: usuarioID,
			Tipo:      tipo,
			Prioridad: evt.Orden.Prioridad,
			OrdenID:   &ordenID,
			Titulo:    titulo,
			Mensaje:   mensaje,
			Metadata:  metadata,
			CreadaEn:  evt.OcurridoEn,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Trigger) recipients(evt events.Event) []string {
	var candidates []string
	if evt.Orden.TecnicoID != nil {
		candidates = append(candidates, *evt.Orden.TecnicoID)
	}
	if prev, ok := evt.Payload["tecnico_anterior"].(string); ok {
		candidates = append(candidates, prev)
	}
	if len(candidates) == 0 && t.fallback != "" {
		candidates = append(candidates, t.fallback)
	}

	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, id := range candidates {
		if id == "" || id == evt.ActorID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func eventMetadata(evt events.Event) map[string]interface{} {
	meta := map[string]interface{}{
		"evento_id": evt.ID,
		"folio":     evt.Orden.Folio,
		"estado":    evt.Orden.Estado,
		"actor_id":  evt.ActorID,
	}
	for k, v := range evt.Payload {
		meta[k] = v
	}
	return meta
}

func describe(evt events.Event) (string, string) {
	folio := evt.Orden.Folio
	switch evt.Kind {
	case events.KindOrdenCreada:
		return fmt.Sprintf("Orden #%d recibida", folio),
			fmt.Sprintf("Se registró la orden #%d (%s).", folio, evt.Orden.TipoServicio)
	case events.KindEstadoCambiado:
		return fmt.Sprintf("Orden #%d: %v", folio, evt.Payload["estado_nuevo"]),
			fmt.Sprintf("La orden #%d pasó de %v a %v.", folio, evt.Payload["estado_anterior"], evt.Payload["estado_nuevo"])
	case events.KindOrdenCancelada:
		msg := fmt.Sprintf("La orden #%d fue cancelada.", folio)
		if motivo, ok := evt.Payload["motivo"].(string); ok {
			msg = fmt.Sprintf("La orden #%d fue cancelada: %s", folio, motivo)
		}
		return fmt.Sprintf("Orden #%d cancelada", folio), msg
	case events.KindTecnicoReasignado:
		return fmt.Sprintf("Orden #%d reasignada", folio),
			fmt.Sprintf("La orden #%d fue asignada a %v.", folio, evt.Payload["tecnico_nuevo"])
	case events.KindPrioridadEscalada:
		return fmt.Sprintf("Orden #%d escalada a %s", folio, evt.Orden.Prioridad),
			fmt.Sprintf("La prioridad de la orden #%d subió de %v a %v.", folio, evt.Payload["prioridad_anterior"], evt.Payload["prioridad_nueva"])
	case events.KindCotizacionModificada:
		return fmt.Sprintf("Orden #%d: cotización actualizada", folio),
			fmt.Sprintf("Nuevo monto de cotización para la orden #%d: %v.", folio, evt.Payload["monto_nuevo"])
	}
	return string(evt.Kind), ""
}
