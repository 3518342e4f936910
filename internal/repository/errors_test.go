package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stanstork/taller-api/internal/apperr"
	"github.com/stanstork/taller-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateClassifiesPostgresErrors(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		lookup    error
		write     error
		retryable bool
	}{
		{"malformed uuid", &pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"}, apperr.ErrNotFound, apperr.ErrInvalidInput, false},
		{"foreign key", &pq.Error{Code: "23503", Message: "violates foreign key constraint"}, apperr.ErrInvalidInput, apperr.ErrInvalidInput, false},
		{"unique", &pq.Error{Code: "23505", Message: "duplicate key value"}, apperr.ErrInvalidInput, apperr.ErrInvalidInput, false},
		{"check", &pq.Error{Code: "23514", Message: "violates check constraint"}, apperr.ErrInvalidInput, apperr.ErrInvalidInput, false},
		{"connection failure", &pq.Error{Code: "08006", Message: "connection failure"}, apperr.ErrRepositoryUnavailable, apperr.ErrRepositoryUnavailable, true},
		{"network", errors.New("read tcp: connection reset"), apperr.ErrRepositoryUnavailable, apperr.ErrRepositoryUnavailable, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translate(tc.err, "orden x")
			assert.True(t, errors.Is(got, tc.lookup), "lookup: %v", got)
			assert.Equal(t, tc.retryable, apperr.IsRetryable(got))

			got = translateWrite(tc.err, "update orden")
			assert.True(t, errors.Is(got, tc.write), "write: %v", got)
			assert.Equal(t, tc.retryable, apperr.IsRetryable(got))
		})
	}
}

func TestOrdenGetByIDMalformedIDIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM taller.ordenes").
		WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"})

	_, err := NewOrdenRepository(db).GetByID(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.False(t, apperr.IsRetryable(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificacionGetByIDMalformedIDIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM taller.notificaciones").
		WillReturnError(&pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"})

	_, err := NewNotificacionRepository(db).GetByID(context.Background(), "garbage")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReadFlagMalformedIDIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("UPDATE taller.notificaciones").
		WillReturnError(&pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"})

	_, err := NewNotificacionRepository(db).UpdateReadFlag(context.Background(), "garbage", time.Now())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrdenSaveUnknownTecnicoIsInvalidInput(t *testing.T) {
	db, mock := newMock(t)
	tec := "no-such-user"

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE taller.ordenes").
		WillReturnError(&pq.Error{Code: "23503", Message: `insert or update on table "ordenes" violates foreign key constraint`})
	mock.ExpectRollback()

	o := &models.Orden{ID: "o-1", TecnicoID: &tec, Version: 2}
	err := NewOrdenRepository(db).Save(context.Background(), o, 2, nil)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.False(t, apperr.IsRetryable(err))
	assert.Equal(t, int64(2), o.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrdenCreateCheckViolationIsInvalidInput(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO taller.ordenes").
		WillReturnError(&pq.Error{Code: "23514", Message: `new row violates check constraint "ordenes_prioridad_check"`})

	_, err := NewOrdenRepository(db).Create(context.Background(), models.Orden{ClienteID: "cli-1", Prioridad: "X"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUsuarioDuplicateEmailIsInvalidInput(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO taller.usuarios").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := NewUsuarioRepository(db).CreateUsuario(context.Background(), "ana@taller.test", "pw", "Ana", models.RolTecnico)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	require.NoError(t, mock.ExpectationsWereMet())
}
