package core

import "github.com/tytell/fishdb/pkg/domain"

// NewDefaultRulesEngine returns the rules engine with the built-in invariants
// registered: tank topology, dead-fish accounting, non-negative group counts,
// and the multi-occupancy warning.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewTankTopologyRule())
	engine.Register(NewDeadFishAccountingRule())
	engine.Register(NewGroupCountRule())
	engine.Register(NewTankOccupancyRule())
	return engine
}
