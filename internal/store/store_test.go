package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/clickpace/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "clickpace.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func testRecord(id string, kind model.SessionKind, start time.Time) model.SessionRecord {
	rec := model.SessionRecord{
		ID:                id,
		Name:              "run " + id,
		Kind:              kind,
		StartedAt:         start,
		EndedAt:           start.Add(2 * time.Second),
		DurationBound:     10 * time.Second,
		ActiveDuration:    1500 * time.Millisecond,
		DoubleThresholdMs: 50,
	}
	ts := start
	for i := 0; i < 4; i++ {
		ev := model.Event{Index: i + 1, Timestamp: ts, Label: "LEFT"}
		if i > 0 {
			ev.DelayMs = 125.5
		}
		rec.Events = append(rec.Events, ev)
		ts = ts.Add(125500 * time.Microsecond)
	}
	return rec
}

func TestInsertAndGetSession(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)
	rec := testRecord("a", model.KindBenchmark, start)
	agg := model.SessionAggregate{Clicks: 4, Doubles: 0, DurationMs: 2000, CPS: 2, MeanDelayMs: 125.5, Consistency: "Excellent"}

	id, err := st.InsertSession(ctx, rec, agg)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, gotAgg, err := st.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "a" || got.Kind != model.KindBenchmark || got.Name != "run a" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.StartedAt.Equal(start) || !got.EndedAt.Equal(rec.EndedAt) {
		t.Fatalf("times did not round-trip: %v %v", got.StartedAt, got.EndedAt)
	}
	if got.DurationBound != 10*time.Second || got.ActiveDuration != 1500*time.Millisecond || got.DoubleThresholdMs != 50 {
		t.Fatalf("unexpected settings: %+v", got)
	}
	if len(got.Events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(got.Events))
	}
	for i, ev := range got.Events {
		if ev.Index != i+1 || !ev.Timestamp.Equal(rec.Events[i].Timestamp) || ev.DelayMs != rec.Events[i].DelayMs {
			t.Fatalf("event %d mismatch: %+v", i, ev)
		}
	}
	if gotAgg.SessionID != id || gotAgg.CPS != 2 || gotAgg.Consistency != "Excellent" {
		t.Fatalf("unexpected aggregate: %+v", gotAgg)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	st := openTestStore(t)
	if _, _, err := st.GetSession(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.LatestSessionID(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateUUIDRollsBack(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := testRecord("dup", model.KindClicker, time.Unix(0, 0))
	if _, err := st.InsertSession(ctx, rec, model.SessionAggregate{}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := st.InsertSession(ctx, rec, model.SessionAggregate{}); err == nil {
		t.Fatalf("expected unique constraint error")
	}
	sessions, err := st.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
}

func TestListSessionsFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kinds := []model.SessionKind{model.KindBenchmark, model.KindClicker, model.KindBenchmark}
	var ids []int64
	for i, kind := range kinds {
		rec := testRecord(string(rune('a'+i)), kind, base.Add(time.Duration(i)*time.Hour))
		id, err := st.InsertSession(ctx, rec, model.SessionAggregate{CPS: float64(i)})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, id)
	}

	bench, err := st.ListSessions(ctx, model.StatsConfig{Kind: model.KindBenchmark})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bench) != 2 || bench[0].SessionID != ids[0] || bench[1].SessionID != ids[2] {
		t.Fatalf("unexpected benchmark sessions: %+v", bench)
	}

	since := base.Add(90 * time.Minute)
	recent, err := st.ListSessions(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 1 || recent[0].SessionID != ids[2] {
		t.Fatalf("unexpected recent sessions: %+v", recent)
	}

	latest, err := st.LatestSessionID(ctx, model.KindClicker)
	if err != nil || latest != ids[1] {
		t.Fatalf("latest clicker: %d %v", latest, err)
	}
}
