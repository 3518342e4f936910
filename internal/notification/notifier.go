package notification

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/models"
)

// Notifier delivers a stored notification over an out-of-band channel.
type Notifier interface {
	Notify(ctx context.Context, n models.Notificacion) error
}

func logNotifyError(logger zerolog.Logger, err error, channel string, n models.Notificacion) {
	if err == nil {
		return
	}
	ev := logger.Warn().
		Err(err).
		Str("notificacion_id", n.ID).
		Str("tipo", string(n.Tipo)).
		Str("channel", channel)
	if n.OrdenID != nil {
		ev = ev.Str("orden_id", *n.OrdenID)
	}
	ev.Msg("failed to deliver notification")
}
