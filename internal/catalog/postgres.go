package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tunelease/server/internal/domain"
)

// PostgresCatalog reads tracks and companies from the platform tables.
type PostgresCatalog struct {
	db *pgxpool.Pool
}

// NewPostgresCatalog creates a postgres-backed catalog.
func NewPostgresCatalog(db *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// Track returns a track by id.
func (c *PostgresCatalog) Track(ctx context.Context, id string) (*domain.Track, error) {
	query := `
		SELECT id, title, access, size_bytes, duration_sec, use_price, created_at
		FROM tracks
		WHERE id = $1
	`
	var t domain.Track
	err := c.db.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&t.Access,
		&t.SizeBytes,
		&t.DurationSec,
		&t.UsePrice,
		&t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return &t, nil
}

// Company returns a company by id.
func (c *PostgresCatalog) Company(ctx context.Context, id string) (*domain.Company, error) {
	query := `
		SELECT id, name, grade, subscription_active, created_at
		FROM companies
		WHERE id = $1
	`
	var co domain.Company
	err := c.db.QueryRow(ctx, query, id).Scan(
		&co.ID,
		&co.Name,
		&co.Grade,
		&co.SubscriptionActive,
		&co.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &co, nil
}
