package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakePatientStats struct {
	total  int64
	counts map[string]int64
	since  time.Time
}

func (f *fakePatientStats) CountAll(_ context.Context) (int64, error) { return f.total, nil }

func (f *fakePatientStats) CountCreatedSince(_ context.Context, since time.Time) (map[string]int64, error) {
	f.since = since
	return f.counts, nil
}

type fakeRiskStats struct {
	risks map[int64]float64
}

func (f *fakeRiskStats) LatestRiskPerPatient(_ context.Context) (map[int64]float64, error) {
	return f.risks, nil
}

func newTestService(patients *fakePatientStats, risks *fakeRiskStats, now time.Time) *Service {
	svc := NewService(patients, risks, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestStats_TrailingTwelveMonthsZeroFilled(t *testing.T) {
	patients := &fakePatientStats{
		total: 40,
		counts: map[string]int64{
			"2026-08": 3,
			"2026-05": 1,
			"2025-09": 7,
		},
	}
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestService(patients, &fakeRiskStats{}, now)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalPatients != 40 {
		t.Errorf("expected 40 total, got %d", stats.TotalPatients)
	}
	if len(stats.MonthlyNewPatients) != 12 {
		t.Fatalf("expected 12 months, got %d", len(stats.MonthlyNewPatients))
	}
	if stats.MonthlyNewPatients[0].Month != "2025-09" {
		t.Errorf("window should start 11 months back, got %s", stats.MonthlyNewPatients[0].Month)
	}
	if stats.MonthlyNewPatients[11].Month != "2026-08" {
		t.Errorf("window should end at the current month, got %s", stats.MonthlyNewPatients[11].Month)
	}
	if stats.MonthlyNewPatients[0].Count != 7 || stats.MonthlyNewPatients[11].Count != 3 {
		t.Errorf("counts misplaced: %+v", stats.MonthlyNewPatients)
	}
	// A month with no patients must show as zero, not be dropped.
	if stats.MonthlyNewPatients[1].Count != 0 {
		t.Errorf("expected zero-filled month, got %+v", stats.MonthlyNewPatients[1])
	}
	if !patients.since.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("query window should start at the first of the oldest month, got %v", patients.since)
	}
}

func TestStats_MonthKeysAreUTC(t *testing.T) {
	// Local wall time is already September 1st, but in UTC it is still
	// August 31st. The window must follow UTC so keys match the repository's
	// UTC bucketing.
	sydney := time.FixedZone("AEST", 10*60*60)
	now := time.Date(2026, 9, 1, 5, 0, 0, 0, sydney) // 2026-08-31T19:00Z

	patients := &fakePatientStats{counts: map[string]int64{"2026-08": 2}}
	svc := newTestService(patients, &fakeRiskStats{}, now)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stats.MonthlyNewPatients[11].Month; got != "2026-08" {
		t.Errorf("window should end at the current UTC month, got %s", got)
	}
	if got := stats.MonthlyNewPatients[11].Count; got != 2 {
		t.Errorf("expected boundary creations under the UTC month, got %d", got)
	}
	if !patients.since.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("query window should start at the first of the oldest UTC month, got %v", patients.since)
	}
}

func TestStats_RiskBuckets(t *testing.T) {
	risks := &fakeRiskStats{risks: map[int64]float64{
		1: 10,   // low
		2: 24.9, // low
		3: 25,   // medium boundary
		4: 60,   // medium boundary
		5: 60.1, // high
		6: 95,   // high
	}}
	svc := newTestService(&fakePatientStats{}, risks, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.RiskBuckets.Low != 2 {
		t.Errorf("expected 2 low, got %d", stats.RiskBuckets.Low)
	}
	if stats.RiskBuckets.Medium != 2 {
		t.Errorf("expected 2 medium, got %d", stats.RiskBuckets.Medium)
	}
	if stats.RiskBuckets.High != 2 {
		t.Errorf("expected 2 high, got %d", stats.RiskBuckets.High)
	}
}
