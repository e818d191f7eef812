package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(hour int) time.Time {
	return time.Date(2026, 3, 10, hour, 15, 0, 0, time.UTC)
}

func servedAfter(joined time.Time, d time.Duration) Sample {
	served := joined.Add(d)
	return Sample{Status: "served", JoinedAt: joined, ServedAt: &served}
}

func TestSummarizeEmpty(t *testing.T) {
	r := summarize(nil)

	assert.Equal(t, 0, r.TotalEntries)
	assert.Equal(t, "N/A", r.BusiestHour)
	assert.Zero(t, r.AverageWaitMin)
}

func TestSummarizeCountsAndWait(t *testing.T) {
	samples := []Sample{
		servedAfter(ts(9), 10*time.Minute),
		servedAfter(ts(9), 20*time.Minute),
		{Status: "abandoned", JoinedAt: ts(14)},
		{Status: "waiting", JoinedAt: ts(14)},
	}

	r := summarize(samples)

	assert.Equal(t, 4, r.TotalEntries)
	assert.Equal(t, 2, r.Served)
	assert.Equal(t, 1, r.Abandoned)
	assert.Equal(t, 15.0, r.AverageWaitMin)
}

func TestBusiestHourModeWithTieBreak(t *testing.T) {
	samples := []Sample{
		{Status: "waiting", JoinedAt: ts(14)},
		{Status: "waiting", JoinedAt: ts(14)},
		{Status: "waiting", JoinedAt: ts(9)},
	}
	assert.Equal(t, "14:00", summarize(samples).BusiestHour)

	// two-way tie resolves to the earlier hour
	tie := []Sample{
		{Status: "waiting", JoinedAt: ts(14)},
		{Status: "waiting", JoinedAt: ts(9)},
	}
	assert.Equal(t, "09:00", summarize(tie).BusiestHour)
}

func TestSummarizeServedWithoutTimestamp(t *testing.T) {
	// a served row missing served_at contributes to counts, not to the mean
	samples := []Sample{
		{Status: "served", JoinedAt: ts(9)},
		servedAfter(ts(9), 30*time.Minute),
	}

	r := summarize(samples)
	assert.Equal(t, 2, r.Served)
	assert.Equal(t, 30.0, r.AverageWaitMin)
}

type stubSamples struct {
	gotOrg string
	gotSP  int64
	since  time.Time
}

func (s *stubSamples) Samples(ctx context.Context, orgType string, servicePointID int64, since time.Time) ([]Sample, error) {
	s.gotOrg = orgType
	s.gotSP = servicePointID
	s.since = since
	return nil, nil
}

func TestReportDefaultsWindow(t *testing.T) {
	stub := &stubSamples{}
	agg := &Aggregator{Store: stub}

	r, err := agg.Report(context.Background(), "bank", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 7, r.WindowDays)
	assert.Equal(t, "bank", stub.gotOrg)
	assert.Zero(t, stub.gotSP)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -7), stub.since, time.Minute)
}
