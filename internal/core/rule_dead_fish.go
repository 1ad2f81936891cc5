package core

import (
	"context"
	"fmt"

	"github.com/tytell/fishdb/pkg/domain"
)

// NewDeadFishAccountingRule returns the blocking rule keeping death terminal:
// a dead fish has no tank and a count of zero, and a record that was dead
// before the transaction cannot be mutated back to life.
func NewDeadFishAccountingRule() domain.Rule {
	return deadFishAccountingRule{}
}

type deadFishAccountingRule struct{}

func (deadFishAccountingRule) Name() string { return "dead_fish_accounting" }

func (deadFishAccountingRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, fish := range view.ListFish() {
		if fish.Status != domain.StatusDead {
			continue
		}
		if fish.Tank != nil {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "dead_fish_accounting",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("dead fish %s still assigned to tank %s", fish.ID, *fish.Tank),
				Entity:   domain.EntityFish,
				EntityID: fish.ID,
			})
		}
		if fish.NumberInGroup != 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "dead_fish_accounting",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("dead fish %s has non-zero count %d", fish.ID, fish.NumberInGroup),
				Entity:   domain.EntityFish,
				EntityID: fish.ID,
			})
		}
	}
	for _, change := range changes {
		if change.Entity != domain.EntityFish || change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := change.Before.(domain.Fish)
		if !ok || before.Status != domain.StatusDead {
			continue
		}
		after, ok := change.After.(domain.Fish)
		if !ok {
			continue
		}
		if after.Status != domain.StatusDead || after.Tank != nil || after.NumberInGroup != 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "dead_fish_accounting",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("fish %s is dead and cannot be mutated", before.ID),
				Entity:   domain.EntityFish,
				EntityID: before.ID,
			})
		}
	}
	return res, nil
}
