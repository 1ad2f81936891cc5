package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tytell/fishdb/pkg/domain"
)

// NewTankOccupancyRule returns the warning rule reporting tanks hosting more
// than one live fish record. Concurrent moves can legitimately race, so
// multi-occupancy is detected after the fact rather than blocked.
func NewTankOccupancyRule() domain.Rule {
	return tankOccupancyRule{}
}

type tankOccupancyRule struct{}

func (tankOccupancyRule) Name() string { return "tank_occupancy" }

func (tankOccupancyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, v := range occupancyWarnings(view) {
		res.Violations = append(res.Violations, v)
	}
	return res, nil
}

// occupancyWarnings builds a warn violation per tank referenced by more than
// one live fish id. Shared with the service-level occupancy report.
func occupancyWarnings(view domain.RuleView) []domain.Violation {
	occupants := make(map[string][]string)
	for _, fish := range view.ListFish() {
		if fish.Tank == nil || !fish.Alive() {
			continue
		}
		occupants[*fish.Tank] = append(occupants[*fish.Tank], fish.ID)
	}
	tanks := make([]string, 0, len(occupants))
	for tank, ids := range occupants {
		if len(ids) > 1 {
			tanks = append(tanks, tank)
		}
	}
	sort.Strings(tanks)

	var out []domain.Violation
	for _, tank := range tanks {
		ids := occupants[tank]
		sort.Strings(ids)
		out = append(out, domain.Violation{
			Rule:     "tank_occupancy",
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("tank %s hosts %d fish records: %s", tank, len(ids), strings.Join(ids, ", ")),
			Entity:   domain.EntityTank,
			EntityID: tank,
		})
	}
	return out
}
