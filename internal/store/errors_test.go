package store

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/internal/apperr"
	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

func newMockStore(t *testing.T) (*Store[models.Client, *models.Client], sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return New[models.Client](gormDB, "client"), mock, mockDB
}

func TestTranslatePostgresErrors(t *testing.T) {
	t.Run("unique violation is a conflict", func(t *testing.T) {
		clients, mock, mockDB := newMockStore(t)
		defer mockDB.Close()

		mock.ExpectQuery(`INSERT INTO "clients"`).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

		err := clients.Create(context.Background(), alice, newClient("Acme Inc"))
		assert.True(t, errors.Is(err, apperr.ErrConflict), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure is transient", func(t *testing.T) {
		clients, mock, mockDB := newMockStore(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "clients" WHERE user_id = \$1 AND id = \$2`).
			WillReturnError(&pgconn.PgError{Code: "08006", Message: "connection failure"})

		_, err := clients.Get(context.Background(), alice, 7)
		assert.True(t, errors.Is(err, apperr.ErrTransient), "got %v", err)
		assert.True(t, apperr.IsRetryable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("network error is transient", func(t *testing.T) {
		clients, mock, mockDB := newMockStore(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "clients"`).
			WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})

		_, err := clients.Count(context.Background(), alice, nil)
		assert.True(t, errors.Is(err, apperr.ErrTransient), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not found", func(t *testing.T) {
		clients, mock, mockDB := newMockStore(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "clients" WHERE user_id = \$1 AND id = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "business_name", "status"}))

		_, err := clients.Get(context.Background(), alice, 7)
		assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors are internal", func(t *testing.T) {
		clients, mock, mockDB := newMockStore(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "clients"`).
			WillReturnError(&pgconn.PgError{Code: "42P01", Message: "relation does not exist"})

		_, err := clients.Get(context.Background(), alice, 7)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTranslatePassesThroughKinds(t *testing.T) {
	original := apperr.Field("email", "invalid_email")
	assert.Same(t, original, Translate(original, "client"))
	assert.Nil(t, Translate(nil, "client"))
	assert.True(t, errors.Is(Translate(context.DeadlineExceeded, "client"), apperr.ErrTransient))
}
