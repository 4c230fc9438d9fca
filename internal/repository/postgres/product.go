package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/pkg/database"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT id, name, price::text, created_at FROM products WHERE id = $1`

	var (
		p     domain.Product
		price string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &price, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse product price %q: %w", price, err)
	}
	return &p, nil
}
