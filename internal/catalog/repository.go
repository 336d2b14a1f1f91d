package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound occurs when no offering matches the identifier.
var ErrNotFound = errors.New("offering not found")

// Repository persists stylist offerings.
type Repository interface {
	Create(ctx context.Context, o Offering) error
	Get(ctx context.Context, id string) (Offering, error)
	ListByStylist(ctx context.Context, stylistID string) ([]Offering, error)
}

// PostgresRepository stores offerings in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an offering record.
func (r *PostgresRepository) Create(ctx context.Context, o Offering) error {
	id, err := uuid.Parse(o.ID)
	if err != nil {
		return fmt.Errorf("parse offering id: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO offerings
        (id, stylist_id, stylist_name, name, price, duration_min, slots, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, o.StylistID, o.StylistName, o.Name, o.Price, o.DurationMin, o.Slots, o.Active, o.CreatedAt.UTC())
	return err
}

// Get fetches an offering by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Offering, error) {
	offeringID, err := uuid.Parse(id)
	if err != nil {
		return Offering{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, stylist_id, stylist_name, name, price, duration_min, slots, active, created_at
        FROM offerings WHERE id = $1`, offeringID)
	return scanOffering(row)
}

// ListByStylist returns the stylist's active offerings.
func (r *PostgresRepository) ListByStylist(ctx context.Context, stylistID string) ([]Offering, error) {
	rows, err := r.db.Query(ctx, `SELECT id, stylist_id, stylist_name, name, price, duration_min, slots, active, created_at
        FROM offerings WHERE stylist_id = $1 AND active ORDER BY created_at DESC`, stylistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Offering
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOffering(row pgx.Row) (Offering, error) {
	var (
		o  Offering
		id uuid.UUID
	)
	if err := row.Scan(&id, &o.StylistID, &o.StylistName, &o.Name, &o.Price,
		&o.DurationMin, &o.Slots, &o.Active, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Offering{}, ErrNotFound
		}
		return Offering{}, err
	}
	o.ID = id.String()
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}
