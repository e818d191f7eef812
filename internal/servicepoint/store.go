package servicepoint

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("service point not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// queue_length is always derived from the active entry set, per the
// single-writer invariant there is no stored counter to drift.
const listQuery = `
	SELECT
		sp.id,
		sp.name,
		sp.description,
		sp.location,
		sp.latitude,
		sp.longitude,
		sp.map_url,
		sp.organization_type,
		sp.is_active,
		sp.is_paused,
		sp.max_queue_length,
		sp.supports_priority,
		sp.supports_appointments,
		sp.created_at,
		(
			SELECT COUNT(*) FROM queue_entries qe
			WHERE qe.service_point_id = sp.id
			  AND qe.status IN ('waiting', 'called')
		) AS queue_length
	FROM service_points sp
	WHERE sp.is_active
	ORDER BY sp.id
`

func (s *Store) List(ctx context.Context) ([]ServicePoint, error) {
	rows, err := s.DB.Query(ctx, listQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]ServicePoint, 0)
	for rows.Next() {
		var sp ServicePoint
		if err := rows.Scan(
			&sp.ID, &sp.Name, &sp.Description, &sp.Location,
			&sp.Latitude, &sp.Longitude, &sp.MapURL,
			&sp.OrganizationType, &sp.IsActive, &sp.IsPaused,
			&sp.MaxQueueLength, &sp.SupportsPriority, &sp.SupportsAppointments,
			&sp.CreatedAt, &sp.QueueLength,
		); err != nil {
			return nil, err
		}
		points = append(points, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachServiceTypes(ctx, points); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Store) attachServiceTypes(ctx context.Context, points []ServicePoint) error {
	if len(points) == 0 {
		return nil
	}

	ids := make([]int64, len(points))
	index := make(map[int64]*ServicePoint, len(points))
	for i := range points {
		ids[i] = points[i].ID
		points[i].ServiceTypes = []ServiceType{}
		index[points[i].ID] = &points[i]
	}

	rows, err := s.DB.Query(ctx, `
		SELECT id, service_point_id, name, description, estimated_duration, is_active
		FROM service_types
		WHERE service_point_id = ANY($1) AND is_active
		ORDER BY id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var st ServiceType
		if err := rows.Scan(&st.ID, &st.ServicePointID, &st.Name, &st.Description, &st.EstimatedDuration, &st.IsActive); err != nil {
			return err
		}
		if sp, ok := index[st.ServicePointID]; ok {
			sp.ServiceTypes = append(sp.ServiceTypes, st)
		}
	}
	return rows.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (*ServicePoint, error) {
	var sp ServicePoint
	err := s.DB.QueryRow(ctx, `
		SELECT
			id, name, description, location, latitude, longitude, map_url,
			organization_type, is_active, is_paused, max_queue_length,
			supports_priority, supports_appointments, created_at,
			(
				SELECT COUNT(*) FROM queue_entries qe
				WHERE qe.service_point_id = service_points.id
				  AND qe.status IN ('waiting', 'called')
			)
		FROM service_points
		WHERE id = $1
	`, id).Scan(
		&sp.ID, &sp.Name, &sp.Description, &sp.Location,
		&sp.Latitude, &sp.Longitude, &sp.MapURL,
		&sp.OrganizationType, &sp.IsActive, &sp.IsPaused,
		&sp.MaxQueueLength, &sp.SupportsPriority, &sp.SupportsAppointments,
		&sp.CreatedAt, &sp.QueueLength,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *Store) Create(ctx context.Context, sp *ServicePoint, createdBy int64) error {
	return s.DB.QueryRow(ctx, `
		INSERT INTO service_points (
			name, description, location, latitude, longitude, map_url,
			organization_type, max_queue_length, supports_priority,
			supports_appointments, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, is_active, is_paused, created_at
	`,
		sp.Name, sp.Description, sp.Location, sp.Latitude, sp.Longitude,
		sp.MapURL, sp.OrganizationType, sp.MaxQueueLength,
		sp.SupportsPriority, sp.SupportsAppointments, createdBy,
	).Scan(&sp.ID, &sp.IsActive, &sp.IsPaused, &sp.CreatedAt)
}

// SetPaused is organization-scoped: a point belonging to another organization
// reports ErrNotFound, indistinguishable from a missing one.
func (s *Store) SetPaused(ctx context.Context, id int64, paused bool, orgType string) error {
	tag, err := s.DB.Exec(ctx,
		`UPDATE service_points
		 SET is_paused = $2
		 WHERE id = $1 AND is_active AND organization_type = $3`,
		id, paused, orgType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ServiceTypes(ctx context.Context, servicePointID int64) ([]ServiceType, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, service_point_id, name, description, estimated_duration, is_active
		FROM service_types
		WHERE service_point_id = $1 AND is_active
		ORDER BY id
	`, servicePointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]ServiceType, 0)
	for rows.Next() {
		var st ServiceType
		if err := rows.Scan(&st.ID, &st.ServicePointID, &st.Name, &st.Description, &st.EstimatedDuration, &st.IsActive); err != nil {
			return nil, err
		}
		types = append(types, st)
	}
	return types, rows.Err()
}
