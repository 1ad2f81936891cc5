package core

import (
	"context"
	"fmt"

	"github.com/tytell/fishdb/pkg/domain"
)

// NewGroupCountRule returns the blocking rule requiring every fish record to
// carry a non-negative count.
func NewGroupCountRule() domain.Rule {
	return groupCountRule{}
}

type groupCountRule struct{}

func (groupCountRule) Name() string { return "group_count" }

func (groupCountRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, fish := range view.ListFish() {
		if fish.NumberInGroup < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "group_count",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("fish %s has negative count %d", fish.ID, fish.NumberInGroup),
				Entity:   domain.EntityFish,
				EntityID: fish.ID,
			})
		}
	}
	return res, nil
}
