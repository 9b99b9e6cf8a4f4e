package catalog

import (
	"context"
	"database/sql"
	"errors"
)

var ErrVariantNotFound = errors.New("variant not found")

type Repository interface {
	GetVariant(ctx context.Context, variantID string) (*Variant, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetVariant(ctx context.Context, variantID string) (*Variant, error) {
	const q = `
	SELECT v.id, v.product_id, p.name, v.name, v.price, v.weight_grams, v.stock, v.active
	FROM variants v
	JOIN products p ON p.id = v.product_id
	WHERE v.id = $1;
	`

	var v Variant
	err := r.db.QueryRowContext(ctx, q, variantID).Scan(
		&v.ID, &v.ProductID, &v.ProductName, &v.Name,
		&v.Price, &v.WeightGrams, &v.Stock, &v.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}

	return &v, nil
}
