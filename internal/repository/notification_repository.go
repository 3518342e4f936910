package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/models"
)

// Cursor is the keyset position of the last item of a page. Items strictly
// older than (CreadaEn, ID) belong to the next page.
type Cursor struct {
	CreadaEn time.Time
	ID       string
}

type NotificacionFilter struct {
	SoloNoLeidas bool
	Cursor       *Cursor
	Limit        int
}

type NotificacionRepository interface {
	Insert(ctx context.Context, n models.Notificacion) (models.Notificacion, error)
	// InsertAlert inserts a scan alert unless an unread alert already exists for
	// the same (orden_id, tipo); a partial unique index enforces it. The boolean reports whether a row was created.
	InsertAlert(ctx context.Context, n models.Notificacion) (models.Notificacion, bool, error)
	GetByID(ctx context.Context, id string) (models.Notificacion, error)
	Query(ctx context.Context, usuarioID string, filter NotificacionFilter) ([]models.Notificacion, error)
	CountUnread(ctx context.Context, usuarioID string) (int64, error)
	UpdateReadFlag(ctx context.Context, id string, at time.Time) (models.Notificacion, error)
	MarkAllRead(ctx context.Context, usuarioID string, at time.Time) (int64, error)
	// ExistsUnresolved reports an unread alert for (ordenID, tipo), or one read after since.
	ExistsUnresolved(ctx context.Context, ordenID string, tipo models.TipoNotificacion, since time.Time) (bool, error)
}

type notificacionRepository struct {
	db *sql.DB
}

func NewNotificacionRepository(db *sql.DB) NotificacionRepository {
	return &notificacionRepository{db: db}
}

const notificacionColumns = `id, usuario_id, tipo, prioridad, orden_id, titulo, mensaje, metadata, leida, leida_en, creada_en`

func (r *notificacionRepository) Insert(ctx context.Context, n models.Notificacion) (models.Notificacion, error) {
	query := `
		INSERT INTO taller.notificaciones (usuario_id, tipo, prioridad, orden_id, titulo, mensaje, metadata, creada_en, alerta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + notificacionColumns

	row := r.db.QueryRowContext(ctx, query, insertArgs(n, false)...)
	created, err := scanNotificacion(row)
	if err != nil {
		return models.Notificacion{}, translateWrite(err, "insert notificacion")
	}
	return created, nil
}

func (r *notificacionRepository) InsertAlert(ctx context.Context, n models.Notificacion) (models.Notificacion, bool, error) {
	if n.OrdenID == nil {
		return models.Notificacion{}, false, apperr.Invalid("alert %s without orden", n.Tipo)
	}
	query := `
		INSERT INTO taller.notificaciones (usuario_id, tipo, prioridad, orden_id, titulo, mensaje, metadata, creada_en, alerta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (orden_id, tipo) WHERE alerta AND NOT leida DO NOTHING
		RETURNING ` + notificacionColumns

	row := r.db.QueryRowContext(ctx, query, insertArgs(n, true)...)
	created, err := scanNotificacion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notificacion{}, false, nil
	}
	if err != nil {
		return models.Notificacion{}, false, translateWrite(err, "insert alert")
	}
	return created, true, nil
}

func (r *notificacionRepository) GetByID(ctx context.Context, id string) (models.Notificacion, error) {
	query := `SELECT ` + notificacionColumns + ` FROM taller.notificaciones WHERE id = $1`
	n, err := scanNotificacion(r.db.QueryRowContext(ctx, query, strings.TrimSpace(id)))
	if err != nil {
		return models.Notificacion{}, translate(err, "notificacion "+id)
	}
	return n, nil
}

func (r *notificacionRepository) Query(ctx context.Context, usuarioID string, filter NotificacionFilter) ([]models.Notificacion, error) {
	var b strings.Builder
	args := []interface{}{strings.TrimSpace(usuarioID)}

	b.WriteString(`SELECT ` + notificacionColumns + ` FROM taller.notificaciones WHERE usuario_id = $1`)
	if filter.SoloNoLeidas {
		b.WriteString(` AND leida = FALSE`)
	}
	if filter.Cursor != nil {
		args = append(args, filter.Cursor.CreadaEn, filter.Cursor.ID)
		fmt.Fprintf(&b, ` AND (creada_en, id) < ($%d, $%d)`, len(args)-1, len(args))
	}
	args = append(args, filter.Limit)
	fmt.Fprintf(&b, ` ORDER BY creada_en DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, apperr.Unavailable(err, "query notificaciones")
	}
	defer rows.Close()

	var notificaciones []models.Notificacion
	for rows.Next() {
		n, err := scanNotificacion(rows)
		if err != nil {
			return nil, apperr.Unavailable(err, "scan notificacion")
		}
		notificaciones = append(notificaciones, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err, "query notificaciones")
	}
	return notificaciones, nil
}

func (r *notificacionRepository) CountUnread(ctx context.Context, usuarioID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM taller.notificaciones
		WHERE usuario_id = $1 AND leida = FALSE`, strings.TrimSpace(usuarioID)).Scan(&count)
	if err != nil {
		return 0, apperr.Unavailable(err, "count unread")
	}
	return count, nil
}

func (r *notificacionRepository) UpdateReadFlag(ctx context.Context, id string, at time.Time) (models.Notificacion, error) {
	query := `
		UPDATE taller.notificaciones
		SET leida = TRUE, leida_en = COALESCE(leida_en, $2)
		WHERE id = $1
		RETURNING ` + notificacionColumns
	n, err := scanNotificacion(r.db.QueryRowContext(ctx, query, strings.TrimSpace(id), at))
	if err != nil {
		return models.Notificacion{}, translate(err, "notificacion "+id)
	}
	return n, nil
}

func (r *notificacionRepository) MarkAllRead(ctx context.Context, usuarioID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE taller.notificaciones
		SET leida = TRUE, leida_en = $2
		WHERE usuario_id = $1 AND leida = FALSE`, strings.TrimSpace(usuarioID), at)
	if err != nil {
		return 0, apperr.Unavailable(err, "mark all read")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Unavailable(err, "rows affected")
	}
	return affected, nil
}

func (r *notificacionRepository) ExistsUnresolved(ctx context.Context, ordenID string, tipo models.TipoNotificacion, since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM taller.notificaciones
			WHERE orden_id = $1 AND tipo = $2 AND alerta AND (leida = FALSE OR leida_en > $3)
		)`, ordenID, tipo, since).Scan(&exists)
	if err != nil {
		return false, apperr.Unavailable(err, "exists unresolved")
	}
	return exists, nil
}

func insertArgs(n models.Notificacion, alerta bool) []interface{} {
	var metadata interface{}
	if len(n.Metadata) > 0 {
		metadata = []byte(n.Metadata)
	}
	return []interface{}{
		n.UsuarioID,
		n.Tipo,
		n.Prioridad,
		nullString(n.OrdenID),
		n.Titulo,
		n.Mensaje,
		metadata,
		n.CreadaEn,
		alerta,
	}
}

func scanNotificacion(scanner rowScanner) (models.Notificacion, error) {
	var (
		n           models.Notificacion
		ordenID     sql.NullString
		metadataRaw []byte
		leidaEn     sql.NullTime
	)

	if err := scanner.Scan(
		&n.ID,
		&n.UsuarioID,
		&n.Tipo,
		&n.Prioridad,
		&ordenID,
		&n.Titulo,
		&n.Mensaje,
		&metadataRaw,
		&n.Leida,
		&leidaEn,
		&n.CreadaEn,
	); err != nil {
		return models.Notificacion{}, err
	}

	if ordenID.Valid {
		v := ordenID.String
		n.OrdenID = &v
	}
	if len(metadataRaw) > 0 {
		n.Metadata = metadataRaw
	}
	n.LeidaEn = timePtr(leidaEn)
	return n, nil
}
