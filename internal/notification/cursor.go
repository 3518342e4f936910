package notification

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/repository"
)

// EncodeCursor renders a keyset position as an opaque URL-safe token.
func EncodeCursor(c repository.Cursor) string {
	raw := c.CreadaEn.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(token string) (repository.Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return repository.Cursor{}, apperr.Invalid("malformed cursor")
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return repository.Cursor{}, apperr.Invalid("malformed cursor")
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return repository.Cursor{}, apperr.Invalid("malformed cursor timestamp")
	}
	return repository.Cursor{CreadaEn: at, ID: id}, nil
}
