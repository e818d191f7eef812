package notification

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists notifications in Postgres.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Insert(ctx context.Context, userID int64, message string) error {
	_, err := s.DB.Exec(ctx,
		`INSERT INTO notifications (user_id, message) VALUES ($1, $2)`,
		userID, message)
	return err
}

func (s *Store) ListForUser(ctx context.Context, userID int64) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, user_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 100
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flips is_read for a notification the user owns. Returns false when
// no owned row matched.
func (s *Store) MarkRead(ctx context.Context, userID, id int64) (bool, error) {
	tag, err := s.DB.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) Delete(ctx context.Context, userID, id int64) (bool, error) {
	tag, err := s.DB.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Inserter is what the dispatcher needs from the store.
type Inserter interface {
	Insert(ctx context.Context, userID int64, message string) error
}

// Dispatcher is the fire-and-forget write side used by the queue engine.
// A failed insert is logged and swallowed: queue mutations never roll back
// because a notification row could not be written.
type Dispatcher struct {
	Store Inserter
}

func NewDispatcher(store Inserter) *Dispatcher {
	return &Dispatcher{Store: store}
}

func (d *Dispatcher) Notify(ctx context.Context, userID int64, message string) {
	if err := d.Store.Insert(ctx, userID, message); err != nil {
		logrus.Errorf("notification insert failed for user %d: %v", userID, err)
	}
}
