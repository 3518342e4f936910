package orden

import (
	"time"

	"github.com/stanstork/taller-api/internal/models"
)

type Semaforo string

const (
	SemaforoRojo     Semaforo = "RED"
	SemaforoNaranja  Semaforo = "ORANGE"
	SemaforoAmarillo Semaforo = "YELLOW"
	SemaforoVerde    Semaforo = "GREEN"
	SemaforoAzul     Semaforo = "BLUE"
)

// Thresholds shared with the alert scan engine.
const (
	UmbralSinCotizacion = 72 * time.Hour
	UmbralSinRecoger    = 5 * 24 * time.Hour
)

// Calcular derives the urgency color of an order at the given instant.
// Conditions are checked from most to least urgent and the first match wins.
func Calcular(o models.Orden, now time.Time) Semaforo {
	switch {
	case SinRecoger(o, now):
		return SemaforoRojo
	case EsperandoRefacciones(o):
		return SemaforoNaranja
	case SinCotizacion(o, now):
		return SemaforoAmarillo
	case enProceso(o.Estado):
		return SemaforoVerde
	default:
		return SemaforoAzul
	}
}

// SinRecoger reports an order ready for pickup for longer than UmbralSinRecoger.
func SinRecoger(o models.Orden, now time.Time) bool {
	return o.Estado == models.EstadoListoEntrega &&
		o.ListoEn != nil &&
		now.Sub(*o.ListoEn) > UmbralSinRecoger
}

// EsperandoRefacciones reports an order blocked on parts.
func EsperandoRefacciones(o models.Orden) bool {
	return o.Estado == models.EstadoEsperaRefacciones
}

// SinCotizacion reports an order in diagnosis longer than UmbralSinCotizacion
// without a quotation having been issued.
func SinCotizacion(o models.Orden, now time.Time) bool {
	return o.Estado == models.EstadoEnDiagnostico &&
		o.DiagnosticoEn != nil &&
		o.CotizacionEn == nil &&
		now.Sub(*o.DiagnosticoEn) > UmbralSinCotizacion
}

func enProceso(e models.Estado) bool {
	switch e {
	case models.EstadoEnDiagnostico,
		models.EstadoEsperaRefacciones,
		models.EstadoCotizacionPendiente,
		models.EstadoEnReparacion,
		models.EstadoReparado,
		models.EstadoListoEntrega:
		return true
	}
	return false
}
