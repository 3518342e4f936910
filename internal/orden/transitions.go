package orden

import "github.com/stanstork/taller-api/internal/models"

// transitions is the adjacency table of legal state moves. ENTREGADO is
// terminal; CANCELADO can only be reactivated back to RECIBIDO.
var transitions = map[models.Estado][]models.Estado{
	models.EstadoRecibido: {
		models.EstadoEnDiagnostico,
		models.EstadoCancelado,
	},
	models.EstadoEnDiagnostico: {
		models.EstadoEsperaRefacciones,
		models.EstadoCotizacionPendiente,
		models.EstadoEnReparacion,
		models.EstadoRecibido,
		models.EstadoCancelado,
	},
	models.EstadoEsperaRefacciones: {
		models.EstadoEnDiagnostico,
		models.EstadoEnReparacion,
		models.EstadoCancelado,
	},
	models.EstadoCotizacionPendiente: {
		models.EstadoEnReparacion,
		models.EstadoEnDiagnostico,
		models.EstadoCancelado,
	},
	models.EstadoEnReparacion: {
		models.EstadoReparado,
		models.EstadoEsperaRefacciones,
		models.EstadoEnDiagnostico,
		models.EstadoCancelado,
	},
	models.EstadoReparado: {
		models.EstadoListoEntrega,
		models.EstadoEnReparacion,
		models.EstadoCancelado,
	},
	models.EstadoListoEntrega: {
		models.EstadoEntregado,
		models.EstadoCancelado,
	},
	models.EstadoEntregado: {},
	models.EstadoCancelado: {
		models.EstadoRecibido,
	},
}

// IsValidTransition reports whether an order may move from one state to
// another. A self-transition is always valid.
func IsValidTransition(from, to models.Estado) bool {
	if from == to {
		return true
	}
	return contains(transitions[from], to)
}

// AllowedTransitions returns the states reachable in one step from the
// given state, excluding the self-transition.
func AllowedTransitions(from models.Estado) []models.Estado {
	next := transitions[from]
	out := make([]models.Estado, len(next))
	copy(out, next)
	return out
}

func contains(arr []models.Estado, s models.Estado) bool {
	for _, v := range arr {
		if v == s {
			return true
		}
	}
	return false
}
