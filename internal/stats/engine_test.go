package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/clickpace/internal/model"
)

func TestComputeEngine(t *testing.T) {
	delays := []float64{100, 125, 84, 143, 110, 90, 100, 130, 95, 120}
	diag := model.EngineDiagnostics{Actions: 10, PatternBreaks: 2, VarianceAdjustments: 1, Variance: 300, VarianceOK: true}
	act := Activity{Session: 20 * time.Second, Active: 15 * time.Second}

	r, ok := ComputeEngine(delays, diag, act, 12)
	require.True(t, ok)
	assert.Equal(t, 10, r.Total)
	assert.InDelta(t, 1000.0/109.7, r.AvgCPS, 1e-9)
	assert.InDelta(t, 1000.0/143, r.MinCPS, 1e-9)
	assert.InDelta(t, 1000.0/84, r.MaxCPS, 1e-9)
	assert.Equal(t, 84.0, r.P10Ms)
	assert.Equal(t, 100.0, r.P50Ms)
	assert.Equal(t, 130.0, r.P90Ms)
	assert.InDelta(t, 10.0, r.MedianCPS, 1e-9)
	assert.Equal(t, 2, r.PatternBreaks)
	assert.InDelta(t, 5.0, r.IdleSeconds, 1e-9)
	assert.InDelta(t, 75.0, r.UptimePct, 1e-9)
	assert.True(t, r.CeilingRespected)
}

func TestComputeEngineCeilingViolation(t *testing.T) {
	r, ok := ComputeEngine([]float64{70, 100}, model.EngineDiagnostics{}, Activity{}, 12)
	require.True(t, ok)
	assert.False(t, r.CeilingRespected)
	assert.Equal(t, 2, r.Total)
	assert.Zero(t, r.UptimePct)
}

func TestComputeEngineEmpty(t *testing.T) {
	_, ok := ComputeEngine(nil, model.EngineDiagnostics{Actions: 3}, Activity{}, 12)
	assert.False(t, ok)
}

func TestActivityOfCountsIdleBeforeFirstEvent(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := model.SessionRecord{
		CreatedAt:      t0,
		ClosedAt:       t0.Add(10 * time.Second),
		StartedAt:      t0.Add(1 * time.Second),
		EndedAt:        t0.Add(9 * time.Second),
		ActiveDuration: 9500 * time.Millisecond,
	}
	act := ActivityOf(rec)
	assert.Equal(t, 10*time.Second, act.Session)
	assert.Equal(t, 9500*time.Millisecond, act.Active)

	r, ok := ComputeEngine([]float64{100, 110}, model.EngineDiagnostics{}, act, 12)
	require.True(t, ok)
	assert.InDelta(t, 95.0, r.UptimePct, 1e-9)
	assert.InDelta(t, 0.5, r.IdleSeconds, 1e-9)
}

func TestActivityOfStoredRecordFallsBackToEvents(t *testing.T) {
	t0 := time.Unix(100, 0)
	rec := model.SessionRecord{StartedAt: t0, EndedAt: t0.Add(4 * time.Second), ActiveDuration: 3 * time.Second}
	assert.Equal(t, Activity{Session: 4 * time.Second, Active: 3 * time.Second}, ActivityOf(rec))
	assert.Equal(t, Activity{}, ActivityOf(model.SessionRecord{}))
}
