package apperr

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionErrorMatchesSentinel(t *testing.T) {
	err := InvalidTransition("ENTREGADO", "RECIBIDO")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrConflict))

	var te *TransitionError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "ENTREGADO", te.From)
	assert.Equal(t, "RECIBIDO", te.To)
}

func TestUnavailableKeepsCause(t *testing.T) {
	err := Unavailable(sql.ErrConnDone, "list active orders")
	assert.True(t, errors.Is(err, ErrRepositoryUnavailable))
	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.Contains(t, err.Error(), "list active orders")
	assert.True(t, IsRetryable(err))
	assert.Nil(t, Unavailable(nil, "noop"))
}

func TestHelpersWrapSentinels(t *testing.T) {
	assert.True(t, errors.Is(NotFound("orden %s", "x"), ErrNotFound))
	assert.True(t, errors.Is(Forbidden("nope"), ErrForbidden))
	assert.True(t, errors.Is(Conflict("orden %s", "x"), ErrConflict))
	assert.True(t, errors.Is(Invalid("bad"), ErrInvalidInput))
	assert.False(t, IsRetryable(Forbidden("nope")))
}
