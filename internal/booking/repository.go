package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound occurs when no booking matches the identifier.
	ErrNotFound = errors.New("booking not found")

	// ErrStaleVersion occurs when an update was made against a version that
	// another writer has already advanced.
	ErrStaleVersion = errors.New("booking modified concurrently")
)

// Repository persists bookings.
type Repository interface {
	Create(ctx context.Context, b Booking) error
	Get(ctx context.Context, id string) (Booking, error)
	// Update writes the booking guarded by its optimistic version and bumps
	// the version on success.
	Update(ctx context.Context, b Booking) (Booking, error)
	ListByClient(ctx context.Context, clientID string, limit int) ([]Booking, error)
	ListByStylist(ctx context.Context, stylistID string, limit int) ([]Booking, error)
	// SlotTaken reports whether a live booking already occupies the
	// stylist's slot on the given date.
	SlotTaken(ctx context.Context, stylistID string, date time.Time, slot string) (bool, error)
}

const bookingColumns = `id, client_id, client_name, client_email, client_phone,
    stylist_id, stylist_name, service_id, service_name, service_price, service_duration,
    scheduled_date, time_slot, status, payment_status,
    dispute_reason, dispute_resolution, dispute_history, version, created_at, updated_at`

// PostgresRepository stores bookings in PostgreSQL with dispute history as
// a JSONB column.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a booking record.
func (r *PostgresRepository) Create(ctx context.Context, b Booking) error {
	id, err := uuid.Parse(b.ID)
	if err != nil {
		return fmt.Errorf("parse booking id: %w", err)
	}
	history, err := json.Marshal(b.DisputeHistory)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO bookings (`+bookingColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		id, b.ClientID, b.ClientName, b.ClientEmail, b.ClientPhone,
		b.StylistID, b.StylistName, b.ServiceID, b.ServiceName, b.ServicePrice, b.ServiceDuration,
		b.ScheduledDate.UTC(), b.TimeSlot, string(b.Status), string(b.PaymentStatus),
		b.DisputeReason, b.DisputeResolution, history, b.Version, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	return err
}

// Get fetches a booking by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Booking, error) {
	bookingID, err := uuid.Parse(id)
	if err != nil {
		return Booking{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
	return scanBooking(row)
}

// Update writes the booking guarded by the optimistic version column.
func (r *PostgresRepository) Update(ctx context.Context, b Booking) (Booking, error) {
	id, err := uuid.Parse(b.ID)
	if err != nil {
		return Booking{}, ErrNotFound
	}
	history, err := json.Marshal(b.DisputeHistory)
	if err != nil {
		return Booking{}, err
	}
	now := time.Now().UTC()
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET
        status = $1, payment_status = $2, dispute_reason = $3, dispute_resolution = $4,
        dispute_history = $5, version = version + 1, updated_at = $6
        WHERE id = $7 AND version = $8`,
		string(b.Status), string(b.PaymentStatus), b.DisputeReason, b.DisputeResolution,
		history, now, id, b.Version)
	if err != nil {
		return Booking{}, err
	}
	if cmd.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, b.ID); errors.Is(getErr, ErrNotFound) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, ErrStaleVersion
	}
	b.Version++
	b.UpdatedAt = now
	return b, nil
}

// ListByClient returns the client's bookings newest-first.
func (r *PostgresRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]Booking, error) {
	return r.list(ctx, "client_id", clientID, limit)
}

// ListByStylist returns the stylist's bookings newest-first.
func (r *PostgresRepository) ListByStylist(ctx context.Context, stylistID string, limit int) ([]Booking, error) {
	return r.list(ctx, "stylist_id", stylistID, limit)
}

// SlotTaken reports whether a live booking occupies the slot.
func (r *PostgresRepository) SlotTaken(ctx context.Context, stylistID string, date time.Time, slot string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
        SELECT 1 FROM bookings
        WHERE stylist_id = $1 AND scheduled_date = $2 AND time_slot = $3 AND status <> $4)`,
		stylistID, date.UTC(), slot, string(StatusCancelled)).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) list(ctx context.Context, column, value string, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
        WHERE `+column+` = $1 ORDER BY created_at DESC LIMIT $2`, value, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (Booking, error) {
	var (
		b       Booking
		id      uuid.UUID
		history []byte
	)
	err := row.Scan(&id, &b.ClientID, &b.ClientName, &b.ClientEmail, &b.ClientPhone,
		&b.StylistID, &b.StylistName, &b.ServiceID, &b.ServiceName, &b.ServicePrice, &b.ServiceDuration,
		&b.ScheduledDate, &b.TimeSlot, &b.Status, &b.PaymentStatus,
		&b.DisputeReason, &b.DisputeResolution, &history, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}
	b.ID = id.String()
	if len(history) > 0 {
		if err := json.Unmarshal(history, &b.DisputeHistory); err != nil {
			return Booking{}, err
		}
	}
	b.ScheduledDate = b.ScheduledDate.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}
