package stats

import (
	"context"

	"github.com/verte-zerg/clickpace/internal/model"
	"github.com/verte-zerg/clickpace/internal/store"
)

// History contains precomputed data for history rendering.
type History struct {
	Sessions []model.SessionAggregate
	Window   []model.SessionAggregate
	Top      []model.SessionAggregate
}

// HistoryLister is the part of the store BuildHistory needs.
type HistoryLister interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
}

var _ HistoryLister = (*store.Store)(nil)

// BuildHistory loads and prepares stored sessions for rendering.
func BuildHistory(ctx context.Context, st HistoryLister, cfg model.StatsConfig, top int) (History, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return History{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return History{
		Sessions: sessions,
		Window:   lastSessions(sessions, cfg.CurveWindow),
		Top:      TopSessionsByCPS(sessions, top),
	}, nil
}

func lastSessions(sessions []model.SessionAggregate, window int) []model.SessionAggregate {
	if window <= 0 || len(sessions) <= window {
		return sessions
	}
	return sessions[len(sessions)-window:]
}
