package orden

import (
	"testing"
	"time"

	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfTransitionAlwaysValid(t *testing.T) {
	for _, s := range models.Estados {
		assert.True(t, IsValidTransition(s, s), "self transition for %s", s)
	}
}

func TestTransitionTableIsExact(t *testing.T) {
	legal := map[models.Estado][]models.Estado{
		models.EstadoRecibido:            {models.EstadoEnDiagnostico, models.EstadoCancelado},
		models.EstadoEnDiagnostico:       {models.EstadoEsperaRefacciones, models.EstadoCotizacionPendiente, models.EstadoEnReparacion, models.EstadoRecibido, models.EstadoCancelado},
		models.EstadoEsperaRefacciones:   {models.EstadoEnDiagnostico, models.EstadoEnReparacion, models.EstadoCancelado},
		models.EstadoCotizacionPendiente: {models.EstadoEnReparacion, models.EstadoEnDiagnostico, models.EstadoCancelado},
		models.EstadoEnReparacion:        {models.EstadoReparado, models.EstadoEsperaRefacciones, models.EstadoEnDiagnostico, models.EstadoCancelado},
		models.EstadoReparado:            {models.EstadoListoEntrega, models.EstadoEnReparacion, models.EstadoCancelado},
		models.EstadoListoEntrega:        {models.EstadoEntregado, models.EstadoCancelado},
		models.EstadoEntregado:           {},
		models.EstadoCancelado:           {models.EstadoRecibido},
	}

	for _, from := range models.Estados {
		for _, to := range models.Estados {
			if from == to {
				continue
			}
			want := contains(legal[from], to)
			assert.Equal(t, want, IsValidTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestEntregadoIsTerminal(t *testing.T) {
	assert.Empty(t, AllowedTransitions(models.EstadoEntregado))
	for _, to := range models.Estados {
		if to == models.EstadoEntregado {
			continue
		}
		assert.False(t, IsValidTransition(models.EstadoEntregado, to))
	}
}

func TestCanceladoOnlyReactivates(t *testing.T) {
	assert.Equal(t, []models.Estado{models.EstadoRecibido}, AllowedTransitions(models.EstadoCancelado))
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	next := AllowedTransitions(models.EstadoRecibido)
	next[0] = models.EstadoEntregado
	assert.True(t, IsValidTransition(models.EstadoRecibido, models.EstadoEnDiagnostico))
}

func TestApplyStampsMilestoneOnce(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	o := models.Orden{ID: "o1", Estado: models.EstadoRecibido, RecibidoEn: &t0}

	h, err := Apply(&o, models.EstadoEnDiagnostico, "tec-1", nil, t0.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, h)
	require.NotNil(t, o.DiagnosticoEn)
	first := *o.DiagnosticoEn

	_, err = Apply(&o, models.EstadoEsperaRefacciones, "tec-1", nil, t0.Add(2*time.Hour))
	require.NoError(t, err)
	_, err = Apply(&o, models.EstadoEnDiagnostico, "tec-1", nil, t0.Add(3*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first, *o.DiagnosticoEn)
	assert.Equal(t, t0.Add(3*time.Hour), o.ActualizadoEn)
}

func TestApplySelfTransitionIsNoop(t *testing.T) {
	o := models.Orden{ID: "o1", Estado: models.EstadoEnReparacion}
	h, err := Apply(&o, models.EstadoEnReparacion, "tec-1", nil, time.Now())
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.True(t, o.ActualizadoEn.IsZero())
}

func TestApplyRejectsIllegalEdge(t *testing.T) {
	o := models.Orden{ID: "o1", Estado: models.EstadoRecibido}
	_, err := Apply(&o, models.EstadoEntregado, "tec-1", nil, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, models.EstadoRecibido, o.Estado)

	_, err = Apply(&o, models.Estado("PERDIDO"), "tec-1", nil, time.Now())
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestApplyReactivationKeepsMilestones(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	o := models.Orden{ID: "o1", Estado: models.EstadoRecibido, RecibidoEn: &t0}

	_, err := Apply(&o, models.EstadoCancelado, "adm", nil, t0.Add(time.Hour))
	require.NoError(t, err)
	h, err := Apply(&o, models.EstadoRecibido, "adm", nil, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, h)

	assert.Equal(t, t0, *o.RecibidoEn)
	assert.Equal(t, t0.Add(time.Hour), *o.CanceladoEn)
}
