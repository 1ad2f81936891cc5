package core

import (
	"context"
	"sort"
	"strings"

	"github.com/tytell/fishdb/pkg/domain"
)

// TankInput describes a tank to create or update.
type TankInput struct {
	Name            string
	Volume          float64
	IsHospital      bool
	System          string
	Shelf           int
	PositionInShelf int
	Active          *bool
}

// buildTank validates a tank input against the transactional state and
// returns the record to persist. A hospital tank's system is forced to nil
// regardless of the input; a regular tank must reference an existing system.
func buildTank(tx domain.Transaction, in TankInput) (domain.Tank, domain.ValidationError) {
	var verr domain.ValidationError
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "name is required")
	}
	if in.Volume <= 0 {
		verr.Add("volume", "volume must be positive, got %g", in.Volume)
	}
	if in.Shelf < 1 {
		verr.Add("shelf", "shelf must be at least 1")
	}
	if in.PositionInShelf < 1 {
		verr.Add("position_in_shelf", "position must be at least 1")
	}

	tank := domain.Tank{
		Name:            in.Name,
		Volume:          in.Volume,
		IsHospital:      in.IsHospital,
		Shelf:           in.Shelf,
		PositionInShelf: in.PositionInShelf,
		Active:          true,
	}
	if in.Active != nil {
		tank.Active = *in.Active
	}
	if !in.IsHospital {
		if in.System == "" {
			verr.Add("system", "a regular tank must belong to a system")
		} else if _, ok := tx.FindSystem(in.System); !ok {
			verr.Add("system", "unknown system %q", in.System)
		} else {
			system := in.System
			tank.System = &system
		}
	}
	return tank, verr
}

// AddTank creates one tank, reporting problems as a per-field error list.
func (s *Service) AddTank(ctx context.Context, session domain.Session, in TankInput) (domain.Tank, domain.Result, error) {
	ctx, finish := s.begin(ctx, "add_tank")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.Tank{}, domain.Result{}, opErr
	}

	var created domain.Tank
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, exists := tx.FindTank(in.Name); exists {
			var verr domain.ValidationError
			verr.Add("name", "tank %q already exists", in.Name)
			return verr
		}
		tank, verr := buildTank(tx, in)
		if !verr.Empty() {
			return verr
		}
		var err error
		created, err = tx.CreateTank(tank)
		return err
	})
	opErr = err
	if err == nil {
		s.reference.Invalidate(refTanks)
		s.logWarnings("add_tank", res)
	}
	return created, res, err
}

// AddTanks creates a batch of tanks with best-effort semantics: a row that
// fails validation is reported by name and does not block the rest.
func (s *Service) AddTanks(ctx context.Context, session domain.Session, rows []TankInput) (domain.BatchResult, error) {
	ctx, finish := s.begin(ctx, "add_tanks")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.BatchResult{}, opErr
	}

	var result domain.BatchResult
	for _, row := range rows {
		_, _, err := s.AddTank(ctx, session, row)
		if err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{ID: row.Name, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, row.Name)
	}
	return result, nil
}

// UpdateTanks applies a batch of tank edits with best-effort semantics.
func (s *Service) UpdateTanks(ctx context.Context, session domain.Session, rows []TankInput) (domain.BatchResult, error) {
	ctx, finish := s.begin(ctx, "update_tanks")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.BatchResult{}, opErr
	}

	var result domain.BatchResult
	for _, row := range rows {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, exists := tx.FindTank(row.Name); !exists {
				return domain.ErrNotFound{Entity: domain.EntityTank, ID: row.Name}
			}
			tank, verr := buildTank(tx, row)
			if !verr.Empty() {
				return verr
			}
			_, err := tx.UpdateTank(row.Name, func(t *domain.Tank) error {
				t.Volume = tank.Volume
				t.IsHospital = tank.IsHospital
				t.System = tank.System
				t.Shelf = tank.Shelf
				t.PositionInShelf = tank.PositionInShelf
				t.Active = tank.Active
				return nil
			})
			return err
		})
		if err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{ID: row.Name, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, row.Name)
	}
	if len(result.Succeeded) > 0 {
		s.reference.Invalidate(refTanks)
	}
	return result, nil
}

// RenumberShelfPositions reassigns position_in_shelf to a dense 1..N sequence
// per shelf for every tank in a system, keeping the current left-to-right
// order (stable for ties).
func (s *Service) RenumberShelfPositions(ctx context.Context, session domain.Session, system string) (domain.Result, error) {
	ctx, finish := s.begin(ctx, "renumber_shelf_positions")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.Result{}, opErr
	}

	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindSystem(system); !ok {
			return domain.ErrNotFound{Entity: domain.EntitySystem, ID: system}
		}
		var tanks []domain.Tank
		for _, tank := range tx.Snapshot().ListTanks() {
			if tank.System != nil && *tank.System == system {
				tanks = append(tanks, tank)
			}
		}
		sort.SliceStable(tanks, func(i, j int) bool {
			if tanks[i].Shelf != tanks[j].Shelf {
				return tanks[i].Shelf < tanks[j].Shelf
			}
			if tanks[i].PositionInShelf != tanks[j].PositionInShelf {
				return tanks[i].PositionInShelf < tanks[j].PositionInShelf
			}
			return tanks[i].Name < tanks[j].Name
		})

		next := make(map[int]int)
		for _, tank := range tanks {
			next[tank.Shelf]++
			position := next[tank.Shelf]
			if position == tank.PositionInShelf {
				continue
			}
			if _, err := tx.UpdateTank(tank.Name, func(t *domain.Tank) error {
				t.PositionInShelf = position
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	opErr = err
	if err == nil {
		s.reference.Invalidate(refTanks)
	}
	return res, err
}

// TanksWithoutFish returns the active tanks not referenced by any live fish,
// in name order. Used to offer only-empty destinations for splits and merges.
func (s *Service) TanksWithoutFish(ctx context.Context) ([]domain.Tank, error) {
	occupied := make(map[string]bool)
	var empty []domain.Tank
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, fish := range view.ListFish() {
			if fish.Tank != nil && fish.Alive() {
				occupied[*fish.Tank] = true
			}
		}
		for _, tank := range view.ListTanks() {
			if tank.Active && !occupied[tank.Name] {
				empty = append(empty, tank)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return empty, nil
}

// CheckFishInSameTank reports every tank currently referenced by more than
// one distinct live fish id, as operator-facing warnings. Detection only;
// concurrent moves can race legitimately, so nothing is blocked.
func (s *Service) CheckFishInSameTank(ctx context.Context) ([]domain.Violation, error) {
	var warnings []domain.Violation
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		warnings = occupancyWarnings(view)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return warnings, nil
}

// SystemInput describes a water system to create.
type SystemInput struct {
	Name      string
	MaxVolume float64
}

// AddSystem creates a water system.
func (s *Service) AddSystem(ctx context.Context, session domain.Session, in SystemInput) (domain.System, domain.Result, error) {
	ctx, finish := s.begin(ctx, "add_system")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.System{}, domain.Result{}, opErr
	}
	if strings.TrimSpace(in.Name) == "" {
		opErr = domain.ValidationError{Errors: []domain.FieldError{{Field: "name", Message: "name is required"}}}
		return domain.System{}, domain.Result{}, opErr
	}

	var created domain.System
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateSystem(domain.System{
			Name:      in.Name,
			MaxVolume: in.MaxVolume,
			Active:    true,
		})
		return err
	})
	opErr = err
	if err == nil {
		s.reference.Invalidate(refSystems)
	}
	return created, res, err
}

// ListSystems returns every system in name order.
func (s *Service) ListSystems(context.Context) []domain.System {
	return s.store.ListSystems()
}

// SystemShortNames returns a short display label per active system name,
// disambiguated by extending the prefix until unique.
func (s *Service) SystemShortNames(ctx context.Context) map[string]string {
	return s.reference.SystemShortNames()
}
