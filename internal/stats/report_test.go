package stats

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/clickpace/internal/model"
	"github.com/verte-zerg/clickpace/internal/store"
)

func TestBuildHistory(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "clickpace.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 4; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		rec := model.SessionRecord{
			ID:        fmt.Sprintf("s%d", i),
			Kind:      model.KindBenchmark,
			StartedAt: start,
			EndedAt:   start.Add(10 * time.Second),
		}
		for j := 0; j < 10+i*10; j++ {
			ev := model.Event{Index: j + 1, Timestamp: start.Add(time.Duration(j) * 100 * time.Millisecond)}
			if j > 0 {
				ev.DelayMs = 100
			}
			rec.Events = append(rec.Events, ev)
		}
		id, err := st.InsertSession(ctx, rec, Summarize(rec))
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	cfg := model.StatsConfig{
		Kind:        model.KindBenchmark,
		Last:        3,
		CurveWindow: 2,
	}
	history, err := BuildHistory(ctx, st, cfg, 1)
	if err != nil {
		t.Fatalf("build history: %v", err)
	}
	if len(history.Sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(history.Sessions))
	}
	if history.Sessions[0].SessionID != ids[1] || history.Sessions[2].SessionID != ids[3] {
		t.Fatalf("unexpected session ids: %+v", history.Sessions)
	}
	if len(history.Window) != 2 || history.Window[0].SessionID != ids[2] {
		t.Fatalf("unexpected window: %+v", history.Window)
	}
	if len(history.Top) != 1 || history.Top[0].SessionID != ids[3] {
		t.Fatalf("unexpected top sessions: %+v", history.Top)
	}
	if history.Top[0].CPS != 4 {
		t.Fatalf("expected 4 cps, got %v", history.Top[0].CPS)
	}
}
