package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ajoedv/fotolio/internal/domain"
	"github.com/ajoedv/fotolio/pkg/database"
	apperrors "github.com/ajoedv/fotolio/pkg/errors"
)

// ProfileRepository implements repository.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	pool database.DBTX
}

// NewProfileRepository creates a new PostgreSQL-backed profile repository.
func NewProfileRepository(pool database.DBTX) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// GetByUserID retrieves the user's saved checkout details.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT user_id, full_name, email, phone, address1, address2, city, postcode, country, updated_at
		FROM profiles
		WHERE user_id = $1`

	var p domain.Profile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.FullName,
		&p.Email,
		&p.Phone,
		&p.Address1,
		&p.Address2,
		&p.City,
		&p.Postcode,
		&p.Country,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}

// Upsert creates or replaces the user's saved checkout details.
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (user_id, full_name, email, phone, address1, address2, city, postcode, country, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (user_id)
		DO UPDATE SET
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address1 = EXCLUDED.address1,
			address2 = EXCLUDED.address2,
			city = EXCLUDED.city,
			postcode = EXCLUDED.postcode,
			country = EXCLUDED.country,
			updated_at = now()`

	if _, err := r.pool.Exec(ctx, query,
		p.UserID,
		p.FullName,
		p.Email,
		p.Phone,
		p.Address1,
		p.Address2,
		p.City,
		p.Postcode,
		p.Country,
	); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
