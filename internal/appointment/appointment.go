package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotSupported = errors.New("service point does not take appointments")
	ErrPastDate     = errors.New("appointment date is in the past")
)

type Appointment struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	ServicePointID int64     `json:"service_point_id"`
	ServiceTypeID  *int64    `json:"service_type_id,omitempty"`
	Date           string    `json:"appointment_date"` // YYYY-MM-DD
	Time           string    `json:"appointment_time"` // HH:MM
	Status         string    `json:"status"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Insert(ctx context.Context, a *Appointment) error {
	return s.DB.QueryRow(ctx, `
		INSERT INTO appointments (
			user_id, service_point_id, service_type_id,
			appointment_date, appointment_time, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, created_at
	`,
		a.UserID, a.ServicePointID, a.ServiceTypeID, a.Date, a.Time, a.Notes,
	).Scan(&a.ID, &a.Status, &a.CreatedAt)
}

func (s *Store) ListForUser(ctx context.Context, userID int64) ([]Appointment, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, user_id, service_point_id, service_type_id,
		       to_char(appointment_date, 'YYYY-MM-DD'),
		       to_char(appointment_time, 'HH24:MI'),
		       status, notes, created_at
		FROM appointments
		WHERE user_id = $1
		ORDER BY appointment_date, appointment_time
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Appointment, 0)
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.ServicePointID, &a.ServiceTypeID,
			&a.Date, &a.Time, &a.Status, &a.Notes, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ValidateSlot rejects malformed or past slots before anything hits the
// database.
func ValidateSlot(date, clock string, now time.Time) error {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return errors.New("appointment_date must be YYYY-MM-DD")
	}
	tm, err := time.Parse("15:04", clock)
	if err != nil {
		return errors.New("appointment_time must be HH:MM")
	}

	slot := time.Date(d.Year(), d.Month(), d.Day(), tm.Hour(), tm.Minute(), 0, 0, time.UTC)
	if slot.Before(now.UTC()) {
		return ErrPastDate
	}
	return nil
}
