package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Estado string

const (
	EstadoRecibido            Estado = "RECIBIDO"
	EstadoEnDiagnostico       Estado = "EN_DIAGNOSTICO"
	EstadoEsperaRefacciones   Estado = "ESPERA_REFACCIONES"
	EstadoCotizacionPendiente Estado = "COTIZACION_PENDIENTE"
	EstadoEnReparacion        Estado = "EN_REPARACION"
	EstadoReparado            Estado = "REPARADO"
	EstadoListoEntrega        Estado = "LISTO_ENTREGA"
	EstadoEntregado           Estado = "ENTREGADO"
	EstadoCancelado           Estado = "CANCELADO"
)

// Estados lists every order state in lifecycle order.
var Estados = []Estado{
	EstadoRecibido,
	EstadoEnDiagnostico,
	EstadoEsperaRefacciones,
	EstadoCotizacionPendiente,
	EstadoEnReparacion,
	EstadoReparado,
	EstadoListoEntrega,
	EstadoEntregado,
	EstadoCancelado,
}

func (e Estado) Valid() bool {
	for _, s := range Estados {
		if s == e {
			return true
		}
	}
	return false
}

// Terminal reports whether the state is excluded from alert scans.
func (e Estado) Terminal() bool {
	return e == EstadoEntregado || e == EstadoCancelado
}

type Prioridad string

const (
	PrioridadBaja    Prioridad = "BAJA"
	PrioridadNormal  Prioridad = "NORMAL"
	PrioridadAlta    Prioridad = "ALTA"
	PrioridadUrgente Prioridad = "URGENTE"
)

var prioridadRank = map[Prioridad]int{
	PrioridadBaja:    0,
	PrioridadNormal:  1,
	PrioridadAlta:    2,
	PrioridadUrgente: 3,
}

func (p Prioridad) Valid() bool {
	_, ok := prioridadRank[p]
	return ok
}

// Rank orders priorities; unknown values rank below BAJA.
func (p Prioridad) Rank() int {
	if r, ok := prioridadRank[p]; ok {
		return r
	}
	return -1
}

// Orden is one repair job. Milestone timestamps are stamped once, the first
// time the order enters the matching state.
type Orden struct {
	ID              string           `json:"id" db:"id"`
	Folio           int64            `json:"folio" db:"folio"`
	Estado          Estado           `json:"estado" db:"estado"`
	Prioridad       Prioridad        `json:"prioridad" db:"prioridad"`
	TipoServicio    string           `json:"tipo_servicio" db:"tipo_servicio"`
	ClienteID       string           `json:"cliente_id" db:"cliente_id"`
	Descripcion     string           `json:"descripcion" db:"descripcion"`
	TecnicoID       *string          `json:"tecnico_id,omitempty" db:"tecnico_id"`
	MontoCotizacion *decimal.Decimal `json:"monto_cotizacion,omitempty" db:"monto_cotizacion"`
	RecibidoEn      *time.Time       `json:"recibido_en,omitempty" db:"recibido_en"`
	DiagnosticoEn   *time.Time       `json:"diagnostico_en,omitempty" db:"diagnostico_en"`
	CotizacionEn    *time.Time       `json:"cotizacion_en,omitempty" db:"cotizacion_en"`
	ListoEn         *time.Time       `json:"listo_en,omitempty" db:"listo_en"`
	EntregadoEn     *time.Time       `json:"entregado_en,omitempty" db:"entregado_en"`
	CanceladoEn     *time.Time       `json:"cancelado_en,omitempty" db:"cancelado_en"`
	CreadoEn        time.Time        `json:"creado_en" db:"creado_en"`
	ActualizadoEn   time.Time        `json:"actualizado_en" db:"actualizado_en"`
	Version         int64            `json:"version" db:"version"`
}

// Clone returns a deep copy so callers can mutate without aliasing stored rows.
func (o Orden) Clone() Orden {
	c := o
	c.TecnicoID = cloneString(o.TecnicoID)
	if o.MontoCotizacion != nil {
		m := *o.MontoCotizacion
		c.MontoCotizacion = &m
	}
	c.RecibidoEn = cloneTime(o.RecibidoEn)
	c.DiagnosticoEn = cloneTime(o.DiagnosticoEn)
	c.CotizacionEn = cloneTime(o.CotizacionEn)
	c.ListoEn = cloneTime(o.ListoEn)
	c.EntregadoEn = cloneTime(o.EntregadoEn)
	c.CanceladoEn = cloneTime(o.CanceladoEn)
	return c
}

// HistorialEstado is an immutable audit record of one accepted transition.
type HistorialEstado struct {
	ID             string    `json:"id" db:"id"`
	OrdenID        string    `json:"orden_id" db:"orden_id"`
	EstadoAnterior Estado    `json:"estado_anterior" db:"estado_anterior"`
	EstadoNuevo    Estado    `json:"estado_nuevo" db:"estado_nuevo"`
	ActorID        string    `json:"actor_id" db:"actor_id"`
	Motivo         *string   `json:"motivo,omitempty" db:"motivo"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
}

// NuevaOrden carries the caller-supplied fields of an order being received.
type NuevaOrden struct {
	ClienteID    string    `json:"cliente_id"`
	TipoServicio string    `json:"tipo_servicio"`
	Descripcion  string    `json:"descripcion"`
	Prioridad    Prioridad `json:"prioridad"`
	TecnicoID    *string   `json:"tecnico_id,omitempty"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
