package orden

import (
	"time"

	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/models"
)

// Apply moves o to the requested state in place and returns the history
// entry to persist. A self-transition is accepted and leaves o untouched;
// it returns a nil entry because nothing happened.
func Apply(o *models.Orden, to models.Estado, actorID string, motivo *string, now time.Time) (*models.HistorialEstado, error) {
	if !to.Valid() {
		return nil, apperr.Invalid("unknown estado %q", to)
	}
	from := o.Estado
	if !IsValidTransition(from, to) {
		return nil, apperr.InvalidTransition(from, to)
	}
	if from == to {
		return nil, nil
	}

	o.Estado = to
	if hito := milestone(o, to); hito != nil && *hito == nil {
		t := now
		*hito = &t
	}
	o.ActualizadoEn = now

	return &models.HistorialEstado{
		OrdenID:        o.ID,
		EstadoAnterior: from,
		EstadoNuevo:    to,
		ActorID:        actorID,
		Motivo:         motivo,
		Timestamp:      now,
	}, nil
}

// milestone returns the timestamp field stamped when an order enters e, or
// nil for states without one. Reactivation does not reset stamped fields.
func milestone(o *models.Orden, e models.Estado) **time.Time {
	switch e {
	case models.EstadoRecibido:
		return &o.RecibidoEn
	case models.EstadoEnDiagnostico:
		return &o.DiagnosticoEn
	case models.EstadoCotizacionPendiente:
		return &o.CotizacionEn
	case models.EstadoListoEntrega:
		return &o.ListoEn
	case models.EstadoEntregado:
		return &o.EntregadoEn
	case models.EstadoCancelado:
		return &o.CanceladoEn
	}
	return nil
}
