package stats

import (
	"testing"
	"time"

	"github.com/verte-zerg/clickpace/internal/model"
)

func TestTopSessionsByCPS(t *testing.T) {
	base := time.Unix(1000, 0)
	sessions := []model.SessionAggregate{
		{SessionID: 1, CPS: 7.5, EndedAt: base},
		{SessionID: 2, CPS: 9.1, EndedAt: base.Add(time.Minute)},
		{SessionID: 3, CPS: 7.5, EndedAt: base.Add(2 * time.Minute)},
	}
	top := TopSessionsByCPS(sessions, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(top))
	}
	if top[0].SessionID != 2 || top[1].SessionID != 3 {
		t.Fatalf("unexpected order: %+v", top)
	}
	if sessions[0].SessionID != 1 {
		t.Fatalf("input reordered")
	}
	if got := TopSessionsByCPS(sessions, 0); got != nil {
		t.Fatalf("expected nil for n=0")
	}
}
