package alertas

import (
	"fmt"
	"time"

	"github.com/stanstork/taller-api/internal/models"
	"github.com/stanstork/taller-api/internal/orden"
)

// Rule is a time-based condition evaluated for every active order.
type Rule struct {
	Tipo      models.TipoNotificacion
	Prioridad models.Prioridad
	Breached  func(o models.Orden, now time.Time) bool
	Describe  func(o models.Orden, now time.Time) (titulo, mensaje string)
}

// DefaultRules returns the color-backed rules plus the inactivity rule.
// Color rules share their thresholds with orden.Calcular.
func DefaultRules(inactivity time.Duration) []Rule {
	rules := []Rule{
		{
			Tipo:      models.AlertaSinRecoger,
			Prioridad: models.PrioridadUrgente,
			Breached:  orden.SinRecoger,
			Describe: func(o models.Orden, now time.Time) (string, string) {
				return fmt.Sprintf("Orden #%d sin recoger", o.Folio),
					fmt.Sprintf("La orden #%d está lista para entrega desde hace %s.", o.Folio, since(o.ListoEn, now))
			},
		},
		{
			Tipo:      models.AlertaRefacciones,
			Prioridad: models.PrioridadAlta,
			Breached: func(o models.Orden, _ time.Time) bool {
				return orden.EsperandoRefacciones(o)
			},
			Describe: func(o models.Orden, _ time.Time) (string, string) {
				return fmt.Sprintf("Orden #%d en espera de refacciones", o.Folio),
					fmt.Sprintf("La orden #%d está detenida esperando refacciones.", o.Folio)
			},
		},
		{
			Tipo:      models.AlertaSinCotizacion,
			Prioridad: models.PrioridadAlta,
			Breached:  orden.SinCotizacion,
			Describe: func(o models.Orden, now time.Time) (string, string) {
				return fmt.Sprintf("Orden #%d sin cotización", o.Folio),
					fmt.Sprintf("La orden #%d lleva %s en diagnóstico sin cotización.", o.Folio, since(o.DiagnosticoEn, now))
			},
		},
	}
	if inactivity > 0 {
		rules = append(rules, Rule{
			Tipo:      models.AlertaInactiva,
			Prioridad: models.PrioridadNormal,
			Breached: func(o models.Orden, now time.Time) bool {
				return !o.Estado.Terminal() && now.Sub(lastActivity(o)) > inactivity
			},
			Describe: func(o models.Orden, now time.Time) (string, string) {
				last := lastActivity(o)
				return fmt.Sprintf("Orden #%d sin actividad", o.Folio),
					fmt.Sprintf("La orden #%d no registra actividad desde hace %s.", o.Folio, since(&last, now))
			},
		})
	}
	return rules
}

func lastActivity(o models.Orden) time.Time {
	if o.ActualizadoEn.After(o.CreadoEn) {
		return o.ActualizadoEn
	}
	return o.CreadoEn
}

func since(t *time.Time, now time.Time) string {
	if t == nil {
		return "un tiempo indeterminado"
	}
	d := now.Sub(*t)
	if d >= 24*time.Hour {
		return fmt.Sprintf("%d días", int(d.Hours()/24))
	}
	return fmt.Sprintf("%d horas", int(d.Hours()))
}
