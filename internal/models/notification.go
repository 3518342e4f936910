package models

import (
	"encoding/json"
	"time"
)

type TipoNotificacion string

const (
	NotificacionOrdenCreada          TipoNotificacion = "ORDEN_CREADA"
	NotificacionEstadoCambiado       TipoNotificacion = "ESTADO_CAMBIADO"
	NotificacionOrdenCancelada       TipoNotificacion = "ORDEN_CANCELADA"
	NotificacionTecnicoReasignado    TipoNotificacion = "TECNICO_REASIGNADO"
	NotificacionPrioridadEscalada    TipoNotificacion = "PRIORIDAD_ESCALADA"
	NotificacionCotizacionModificada TipoNotificacion = "COTIZACION_MODIFICADA"

	// Time-based alerts raised by the scan engine.
	AlertaSinRecoger    TipoNotificacion = "ALERTA_SIN_RECOGER"
	AlertaRefacciones   TipoNotificacion = "ALERTA_REFACCIONES"
	AlertaSinCotizacion TipoNotificacion = "ALERTA_SIN_COTIZACION"
	AlertaInactiva      TipoNotificacion = "ALERTA_INACTIVA"
)

// Alerta reports whether the kind is produced by the scan engine and is
// therefore subject to per-order de-duplication.
func (t TipoNotificacion) Alerta() bool {
	switch t {
	case AlertaSinRecoger, AlertaRefacciones, AlertaSinCotizacion, AlertaInactiva:
		return true
	}
	return false
}

type Notificacion struct {
	ID        string           `json:"id" db:"id"`
	UsuarioID string           `json:"usuario_id" db:"usuario_id"`
	Tipo      TipoNotificacion `json:"tipo" db:"tipo"`
	Prioridad Prioridad        `json:"prioridad" db:"prioridad"`
	OrdenID   *string          `json:"orden_id,omitempty" db:"orden_id"`
	Titulo    string           `json:"titulo" db:"titulo"`
	Mensaje   string           `json:"mensaje" db:"mensaje"`
	Metadata  json.RawMessage  `json:"metadata,omitempty" db:"metadata"`
	Leida     bool             `json:"leida" db:"leida"`
	LeidaEn   *time.Time       `json:"leida_en,omitempty" db:"leida_en"`
	CreadaEn  time.Time        `json:"creada_en" db:"creada_en"`
}
