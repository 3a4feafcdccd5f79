package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx_Commit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE invoices").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE invoices SET status = 'PAID'")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentinel := errors.New("insert failed")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), db, func(tx *sql.Tx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowsAffected(t *testing.T) {
	assert.Equal(t, int64(3), RowsAffected(sqlmock.NewResult(0, 3)))
	assert.Equal(t, int64(0), RowsAffected(sqlmock.NewErrorResult(errors.New("unsupported"))))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}

func TestIsConstraintViolation(t *testing.T) {
	period := &pq.Error{Code: "23505", Constraint: "idx_invoices_client_period"}

	assert.True(t, IsConstraintViolation(period, "idx_invoices_client_period"))
	assert.True(t, IsConstraintViolation(fmt.Errorf("insert: %w", period), "idx_invoices_client_period"))
	assert.False(t, IsConstraintViolation(&pq.Error{Code: "23505", Constraint: "invoices_org_id_number_key"}, "idx_invoices_client_period"))
	assert.False(t, IsConstraintViolation(&pq.Error{Code: "23503", Constraint: "idx_invoices_client_period"}, "idx_invoices_client_period"))
	assert.False(t, IsConstraintViolation(errors.New("other"), "idx_invoices_client_period"))
}
