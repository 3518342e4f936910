package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/models"
)

// OrdenRepository persists orders and their state history.
type OrdenRepository interface {
	Create(ctx context.Context, o models.Orden) (models.Orden, error)
	GetByID(ctx context.Context, id string) (models.Orden, error)
	ListActive(ctx context.Context) ([]models.Orden, error)
	// Save updates the order if its stored version still equals expectedVersion
	// and appends h (when non-nil) in the same transaction. On success o.Version
	// is advanced; a stale version yields apperr.ErrConflict.
	Save(ctx context.Context, o *models.Orden, expectedVersion int64, h *models.HistorialEstado) error
	ListHistorial(ctx context.Context, ordenID string) ([]models.HistorialEstado, error)
}

type ordenRepository struct {
	db *sql.DB
}

func NewOrdenRepository(db *sql.DB) OrdenRepository {
	return &ordenRepository{db: db}
}

const ordenColumns = `id, folio, estado, prioridad, tipo_servicio, cliente_id, descripcion, tecnico_id,
		monto_cotizacion, recibido_en, diagnostico_en, cotizacion_en, listo_en, entregado_en,
		cancelado_en, creado_en, actualizado_en, version`

func (r *ordenRepository) Create(ctx context.Context, o models.Orden) (models.Orden, error) {
	query := `
		INSERT INTO taller.ordenes (estado, prioridad, tipo_servicio, cliente_id, descripcion, tecnico_id,
			recibido_en, creado_en, actualizado_en, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
		RETURNING ` + ordenColumns

	row := r.db.QueryRowContext(ctx, query,
		o.Estado,
		o.Prioridad,
		o.TipoServicio,
		o.ClienteID,
		o.Descripcion,
		nullString(o.TecnicoID),
		nullTime(o.RecibidoEn),
		o.CreadoEn,
		o.ActualizadoEn,
	)
	created, err := scanOrden(row)
	if err != nil {
		return models.Orden{}, translateWrite(err, "create orden")
	}
	return created, nil
}

func (r *ordenRepository) GetByID(ctx context.Context, id string) (models.Orden, error) {
	query := `SELECT ` + ordenColumns + ` FROM taller.ordenes WHERE id = $1`
	o, err := scanOrden(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.Orden{}, translate(err, "orden "+id)
	}
	return o, nil
}

func (r *ordenRepository) ListActive(ctx context.Context) ([]models.Orden, error) {
	query := `
		SELECT ` + ordenColumns + `
		FROM taller.ordenes
		WHERE estado NOT IN ($1, $2)
		ORDER BY creado_en ASC`

	rows, err := r.db.QueryContext(ctx, query, models.EstadoEntregado, models.EstadoCancelado)
	if err != nil {
		return nil, apperr.Unavailable(err, "list active ordenes")
	}
	defer rows.Close()

	var ordenes []models.Orden
	for rows.Next() {
		o, err := scanOrden(rows)
		if err != nil {
			return nil, apperr.Unavailable(err, "scan orden")
		}
		ordenes = append(ordenes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err, "list active ordenes")
	}
	return ordenes, nil
}

func (r *ordenRepository) Save(ctx context.Context, o *models.Orden, expectedVersion int64, h *models.HistorialEstado) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return apperr.Unavailable(err, "begin transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE taller.ordenes
		SET estado = $3, prioridad = $4, tecnico_id = $5, monto_cotizacion = $6,
			recibido_en = $7, diagnostico_en = $8, cotizacion_en = $9, listo_en = $10,
			entregado_en = $11, cancelado_en = $12, actualizado_en = $13, version = version + 1
		WHERE id = $1 AND version = $2`,
		o.ID,
		expectedVersion,
		o.Estado,
		o.Prioridad,
		nullString(o.TecnicoID),
		nullDecimal(o.MontoCotizacion),
		nullTime(o.RecibidoEn),
		nullTime(o.DiagnosticoEn),
		nullTime(o.CotizacionEn),
		nullTime(o.ListoEn),
		nullTime(o.EntregadoEn),
		nullTime(o.CanceladoEn),
		o.ActualizadoEn,
	)
	if err != nil {
		return translateWrite(err, "update orden")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Unavailable(err, "rows affected")
	}
	if affected == 0 {
		return apperr.Conflict("orden %s changed since version %d", o.ID, expectedVersion)
	}

	if h != nil {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO taller.historial_estados (orden_id, estado_anterior, estado_nuevo, actor_id, motivo, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			h.OrdenID, h.EstadoAnterior, h.EstadoNuevo, h.ActorID, nullString(h.Motivo), h.Timestamp,
		).Scan(&h.ID)
		if err != nil {
			return translateWrite(err, "insert historial")
		}
	}

	if err := tx.Commit(); err != nil {
		return translateWrite(err, "commit orden")
	}
	o.Version = expectedVersion + 1
	return nil
}

func (r *ordenRepository) ListHistorial(ctx context.Context, ordenID string) ([]models.HistorialEstado, error) {
	query := `
		SELECT id, orden_id, estado_anterior, estado_nuevo, actor_id, motivo, timestamp
		FROM taller.historial_estados
		WHERE orden_id = $1
		ORDER BY timestamp ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, ordenID)
	if err != nil {
		return nil, apperr.Unavailable(err, "list historial")
	}
	defer rows.Close()

	var historial []models.HistorialEstado
	for rows.Next() {
		var (
			h      models.HistorialEstado
			motivo sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.OrdenID, &h.EstadoAnterior, &h.EstadoNuevo, &h.ActorID, &motivo, &h.Timestamp); err != nil {
			return nil, apperr.Unavailable(err, "scan historial")
		}
		if motivo.Valid {
			v := motivo.String
			h.Motivo = &v
		}
		historial = append(historial, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err, "list historial")
	}
	return historial, nil
}

func scanOrden(scanner rowScanner) (models.Orden, error) {
	var (
		o                                                   models.Orden
		tecnicoID                                           sql.NullString
		monto                                               decimal.NullDecimal
		recibido, diagnostico, cotizacion, listo, entregado sql.NullTime
		cancelado                                           sql.NullTime
	)

	if err := scanner.Scan(
		&o.ID,
		&o.Folio,
		&o.Estado,
		&o.Prioridad,
		&o.TipoServicio,
		&o.ClienteID,
		&o.Descripcion,
		&tecnicoID,
		&monto,
		&recibido,
		&diagnostico,
		&cotizacion,
		&listo,
		&entregado,
		&cancelado,
		&o.CreadoEn,
		&o.ActualizadoEn,
		&o.Version,
	); err != nil {
		return models.Orden{}, err
	}

	if tecnicoID.Valid {
		v := tecnicoID.String
		o.TecnicoID = &v
	}
	if monto.Valid {
		v := monto.Decimal
		o.MontoCotizacion = &v
	}
	o.RecibidoEn = timePtr(recibido)
	o.DiagnosticoEn = timePtr(diagnostico)
	o.CotizacionEn = timePtr(cotizacion)
	o.ListoEn = timePtr(listo)
	o.EntregadoEn = timePtr(entregado)
	o.CanceladoEn = timePtr(cancelado)
	return o, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
