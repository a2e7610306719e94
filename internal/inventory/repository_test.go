package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO products").
		WithArgs("Keyboard", "mechanical", 120.00, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

	repo := NewPostgresRepository(mock)
	p := Product{Name: "Keyboard", Description: "mechanical", Price: 120.00, Stock: 10}
	require.NoError(t, repo.Create(context.Background(), &p))
	require.Equal(t, int64(1), p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, name, description, price, stock").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "price", "stock"}).
			AddRow(int64(1), "Keyboard", "mechanical", 120.00, 10))

	repo := NewPostgresRepository(mock)
	p, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Keyboard", p.Name)
	require.Equal(t, 10, p.Stock)
}

func TestPostgresRepositoryGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, name, description, price, stock").
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresRepository(mock)
	_, err = repo.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepositoryReduceStock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery("SELECT stock FROM products").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(10))
	mock.ExpectExec("UPDATE products SET stock").
		WithArgs(int64(1), 4).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	require.NoError(t, repo.ReduceStock(context.Background(), 1, 4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryReduceStockInsufficient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery("SELECT stock FROM products").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(3))
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	err = repo.ReduceStock(context.Background(), 1, 5)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryReduceStockNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery("SELECT stock FROM products").
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	require.ErrorIs(t, repo.ReduceStock(context.Background(), 99, 1), ErrNotFound)
}

func TestPostgresRepositoryUpdateNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE products").
		WithArgs(int64(99), "Keyboard", "", 120.00, 5).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresRepository(mock)
	err = repo.Update(context.Background(), Product{ID: 99, Name: "Keyboard", Price: 120.00, Stock: 5})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepositoryDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM products").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewPostgresRepository(mock)
	require.NoError(t, repo.Delete(context.Background(), 1))
}

func TestPostgresRepositoryCountFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnError(errors.New("connection reset"))

	repo := NewPostgresRepository(mock)
	_, _, err = repo.List(context.Background(), 1, 10)
	require.ErrorContains(t, err, "count products")
}
