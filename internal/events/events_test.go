package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stanstork/taller-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	got []Event
	err error
}

func (r *recordingSink) Emit(_ context.Context, evt Event) error {
	r.got = append(r.got, evt)
	return r.err
}

func TestMultiDeliversToEverySink(t *testing.T) {
	boom := errors.New("broker down")
	first := &recordingSink{err: boom}
	second := &recordingSink{}

	tecnico := "tec-1"
	o := models.Orden{ID: "ord-1", Estado: models.EstadoRecibido, TecnicoID: &tecnico}
	evt := New(KindOrdenCreada, o, "usr-1", time.Now(), nil)

	err := Multi{first, nil, second}.Emit(context.Background(), evt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Len(t, first.got, 1)
	assert.Len(t, second.got, 1)
	assert.Equal(t, "ord-1", second.got[0].OrdenID)
	assert.NotEmpty(t, second.got[0].ID)
}

func TestNewSnapshotsOrder(t *testing.T) {
	tecnico := "tec-1"
	o := models.Orden{ID: "ord-1", TecnicoID: &tecnico}
	evt := New(KindEstadoCambiado, o, "usr-1", time.Now(), nil)

	*o.TecnicoID = "tec-2"
	assert.Equal(t, "tec-1", *evt.Orden.TecnicoID)
}
