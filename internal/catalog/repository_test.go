package catalog

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVariant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN products p")).
		WithArgs("var-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "product_id", "product_name", "name", "price", "weight_grams", "stock", "active",
		}).AddRow("var-1", "prod-1", "Soy Candle", "Lavender", 75_000, 500, 10, true))

	v, err := repo.GetVariant(context.Background(), "var-1")
	require.NoError(t, err)

	assert.Equal(t, int64(75_000), v.Price)
	assert.Equal(t, 500, v.WeightGrams)
	assert.Equal(t, "Soy Candle - Lavender", v.DisplayName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVariant_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN products p")).
		WithArgs("var-ghost").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "product_id", "product_name", "name", "price", "weight_grams", "stock", "active",
		}))

	_, err = repo.GetVariant(context.Background(), "var-ghost")
	assert.ErrorIs(t, err, ErrVariantNotFound)
}
