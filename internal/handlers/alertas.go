package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/alertas"
)

type AlertasHandler struct {
	scanner alertas.Scanner
	logger  zerolog.Logger
}

func NewAlertasHandler(scanner alertas.Scanner, logger zerolog.Logger) *AlertasHandler {
	return &AlertasHandler{
		scanner: scanner,
		logger:  logger.With().Str("handler", "alertas").Logger(),
	}
}

// Scan runs the alert scan synchronously and returns its summary.
func (h *AlertasHandler) Scan(w http.ResponseWriter, r *http.Request) {
	summary, err := h.scanner.Run(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "alert scan failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
