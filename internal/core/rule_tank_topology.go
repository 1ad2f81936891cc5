package core

import (
	"context"
	"fmt"

	"github.com/tytell/fishdb/pkg/domain"
)

// NewTankTopologyRule returns the blocking rule enforcing the hospital/system
// invariant: a hospital tank belongs to no system, a regular tank must
// reference an existing system, and every tank has a positive volume.
func NewTankTopologyRule() domain.Rule {
	return tankTopologyRule{}
}

type tankTopologyRule struct{}

func (tankTopologyRule) Name() string { return "tank_topology" }

func (tankTopologyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, tank := range view.ListTanks() {
		if tank.Volume <= 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "tank_topology",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("tank %s has non-positive volume %g", tank.Name, tank.Volume),
				Entity:   domain.EntityTank,
				EntityID: tank.Name,
			})
		}
		switch {
		case tank.IsHospital && tank.System != nil:
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "tank_topology",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("hospital tank %s must not belong to a system (has %s)", tank.Name, *tank.System),
				Entity:   domain.EntityTank,
				EntityID: tank.Name,
			})
		case !tank.IsHospital && tank.System == nil:
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "tank_topology",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("tank %s must belong to a system", tank.Name),
				Entity:   domain.EntityTank,
				EntityID: tank.Name,
			})
		case !tank.IsHospital && tank.System != nil:
			if _, ok := view.FindSystem(*tank.System); !ok {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "tank_topology",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("tank %s references unknown system %s", tank.Name, *tank.System),
					Entity:   domain.EntityTank,
					EntityID: tank.Name,
				})
			}
		}
	}
	return res, nil
}
