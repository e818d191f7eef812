package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sample is the slice of a queue entry the aggregator needs. Entries carry
// their organization type themselves, so samples from deleted service points
// still count.
type Sample struct {
	Status      string
	JoinedAt    time.Time
	ServedAt    *time.Time
	AbandonedAt *time.Time
}

type Report struct {
	OrganizationType string  `json:"organization_type"`
	WindowDays       int     `json:"window_days"`
	TotalEntries     int     `json:"total_entries"`
	Served           int     `json:"served"`
	Abandoned        int     `json:"abandoned"`
	AverageWaitMin   float64 `json:"average_wait_minutes"`
	BusiestHour      string  `json:"busiest_hour"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Samples returns the window's entries for one organization, optionally
// narrowed to a single service point (servicePointID 0 = all).
func (s *Store) Samples(ctx context.Context, orgType string, servicePointID int64, since time.Time) ([]Sample, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT status, joined_at, served_at, abandoned_at
		FROM queue_entries
		WHERE organization_type = $1
		  AND ($2 = 0 OR service_point_id = $2)
		  AND joined_at >= $3
	`, orgType, servicePointID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.Status, &sm.JoinedAt, &sm.ServedAt, &sm.AbandonedAt); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Aggregator turns raw samples into the staff analytics report.
type Aggregator struct {
	Store interface {
		Samples(ctx context.Context, orgType string, servicePointID int64, since time.Time) ([]Sample, error)
	}
}

func (a *Aggregator) Report(ctx context.Context, orgType string, servicePointID int64, windowDays int) (*Report, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	samples, err := a.Store.Samples(ctx, orgType, servicePointID, since)
	if err != nil {
		return nil, err
	}

	r := summarize(samples)
	r.OrganizationType = orgType
	r.WindowDays = windowDays
	return r, nil
}

func summarize(samples []Sample) *Report {
	r := &Report{
		TotalEntries: len(samples),
		BusiestHour:  "N/A",
	}

	var totalWait time.Duration
	waits := 0
	hours := make(map[int]int)

	for _, sm := range samples {
		hours[sm.JoinedAt.UTC().Hour()]++

		switch sm.Status {
		case "served":
			r.Served++
			if sm.ServedAt != nil {
				totalWait += sm.ServedAt.Sub(sm.JoinedAt)
				waits++
			}
		case "abandoned":
			r.Abandoned++
		}
	}

	if waits > 0 {
		mean := totalWait / time.Duration(waits)
		r.AverageWaitMin = math.Round(mean.Minutes()*10) / 10
	}

	if len(samples) > 0 {
		r.BusiestHour = fmt.Sprintf("%02d:00", busiestHour(hours))
	}
	return r
}

// busiestHour is the mode of the join hours; ties break toward the earlier
// hour so the answer is deterministic.
func busiestHour(hours map[int]int) int {
	best, bestCount := 0, -1
	for h := 0; h < 24; h++ {
		if c := hours[h]; c > bestCount {
			best, bestCount = h, c
		}
	}
	return best
}
