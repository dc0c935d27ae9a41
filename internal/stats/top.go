package stats

import (
	"sort"

	"github.com/verte-zerg/clickpace/internal/model"
)

// TopSessionsByCPS returns the n fastest sessions, newest first on ties.
func TopSessionsByCPS(sessions []model.SessionAggregate, n int) []model.SessionAggregate {
	if n <= 0 || len(sessions) == 0 {
		return nil
	}
	items := append([]model.SessionAggregate(nil), sessions...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CPS == items[j].CPS {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].CPS > items[j].CPS
	})
	return items[:min(n, len(items))]
}
