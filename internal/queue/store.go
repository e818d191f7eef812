package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"queueflow/internal/servicepoint"
)

// PGStore is the durable queue state in Postgres. All mutating access goes
// through WithinTx under the engine's per-service-point serialization, so
// plain read-committed transactions are enough: nothing else writes the same
// service point concurrently.
type PGStore struct {
	DB *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{DB: db}
}

const entryColumns = `
	id, service_point_id, organization_type, user_id, service_type_id, reference, ticket_number,
	status, priority, position, joined_at, called_at, served_at, abandoned_at
`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var userID *int64
	err := row.Scan(
		&e.ID, &e.ServicePointID, &e.OrganizationType, &userID, &e.ServiceTypeID,
		&e.Reference, &e.TicketNumber, &e.Status, &e.Priority, &e.Position,
		&e.JoinedAt, &e.CalledAt, &e.ServedAt, &e.AbandonedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID != nil {
		e.UserID = *userID
	}
	return &e, nil
}

func (s *PGStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) ActiveEntriesForUser(ctx context.Context, userID int64) ([]*Entry, error) {
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM queue_entries
		WHERE user_id = $1 AND status IN ('waiting', 'called')
		ORDER BY joined_at
	`, entryColumns), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (s *PGStore) HistoryForUser(ctx context.Context, userID int64) ([]*Entry, error) {
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM queue_entries
		WHERE user_id = $1 AND status IN ('served', 'abandoned')
		ORDER BY joined_at DESC
		LIMIT 100
	`, entryColumns), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (s *PGStore) EntryByID(ctx context.Context, id int64) (*Entry, error) {
	e, err := scanEntry(s.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM queue_entries WHERE id = $1`, entryColumns), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *PGStore) ServicePointIDsByOrg(ctx context.Context, orgType string) ([]int64, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT id FROM service_points WHERE organization_type = $1 ORDER BY id`, orgType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func collectEntries(rows pgx.Rows) ([]*Entry, error) {
	entries := make([]*Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =======================
// TX
// =======================

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) ServicePoint(ctx context.Context, id int64) (*servicepoint.ServicePoint, error) {
	var sp servicepoint.ServicePoint
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, description, location, organization_type,
		       is_active, is_paused, max_queue_length,
		       supports_priority, supports_appointments, created_at
		FROM service_points
		WHERE id = $1
	`, id).Scan(
		&sp.ID, &sp.Name, &sp.Description, &sp.Location, &sp.OrganizationType,
		&sp.IsActive, &sp.IsPaused, &sp.MaxQueueLength,
		&sp.SupportsPriority, &sp.SupportsAppointments, &sp.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFoundOrForbidden
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (t *pgTx) ActiveEntries(ctx context.Context, servicePointID int64) ([]*Entry, error) {
	rows, err := t.tx.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM queue_entries
		WHERE service_point_id = $1 AND status IN ('waiting', 'called')
		ORDER BY priority DESC, ticket_number
	`, entryColumns), servicePointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (t *pgTx) ActiveEntryForUser(ctx context.Context, userID, servicePointID int64) (*Entry, error) {
	e, err := scanEntry(t.tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM queue_entries
		WHERE user_id = $1
		  AND status IN ('waiting', 'called')
		  AND ($2 = 0 OR service_point_id = $2)
		ORDER BY joined_at
		LIMIT 1
	`, entryColumns), userID, servicePointID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (t *pgTx) EntryByID(ctx context.Context, id int64) (*Entry, error) {
	e, err := scanEntry(t.tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM queue_entries WHERE id = $1`, entryColumns), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (t *pgTx) ServiceTypeExists(ctx context.Context, serviceTypeID, servicePointID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM service_types
			WHERE id = $1 AND service_point_id = $2 AND is_active
		)
	`, serviceTypeID, servicePointID).Scan(&exists)
	return exists, err
}

// NextTicketNumber is monotonic per service point. Safe without row locks
// because the engine serializes all writers of one service point.
func (t *pgTx) NextTicketNumber(ctx context.Context, servicePointID int64) (int, error) {
	var next int
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(ticket_number), 0) + 1
		FROM queue_entries
		WHERE service_point_id = $1
	`, servicePointID).Scan(&next)
	return next, err
}

func (t *pgTx) InsertEntry(ctx context.Context, e *Entry) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO queue_entries (
			service_point_id, organization_type, user_id, service_type_id,
			reference, ticket_number, status, priority, position, joined_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		e.ServicePointID, e.OrganizationType, e.UserID, e.ServiceTypeID,
		e.Reference, e.TicketNumber, e.Status, e.Priority, e.Position, e.JoinedAt,
	).Scan(&e.ID)
}

func (t *pgTx) UpdateEntry(ctx context.Context, e *Entry) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE queue_entries
		SET status = $2, position = $3,
		    called_at = $4, served_at = $5, abandoned_at = $6
		WHERE id = $1
	`, e.ID, e.Status, e.Position, e.CalledAt, e.ServedAt, e.AbandonedAt)
	return err
}

func (t *pgTx) UpdatePositions(ctx context.Context, entries []*Entry) error {
	for _, e := range entries {
		if _, err := t.tx.Exec(ctx,
			`UPDATE queue_entries SET position = $2 WHERE id = $1`,
			e.ID, e.Position); err != nil {
			return err
		}
	}
	return nil
}

// DeleteServicePoint removes the record itself. queue_entries keep their
// service_point_id on purpose: terminal history feeds analytics.
func (t *pgTx) DeleteServicePoint(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM service_points WHERE id = $1`, id)
	return err
}
