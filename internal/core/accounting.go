package core

import (
	"context"
	"strings"
	"time"

	"github.com/tytell/fishdb/pkg/domain"
)

// AddFishInput is one row of an add-fish batch.
type AddFishInput struct {
	ID            string
	Species       string
	Tank          string
	Status        domain.FishStatus
	NumberInGroup int
	Collection    string
}

// AddFish batch-creates fish records. Each row is validated against the
// reference sets and committed in its own transaction: a rejected row never
// blocks the rest of the batch, and the result reports both sides by id.
func (s *Service) AddFish(ctx context.Context, session domain.Session, rows []AddFishInput) (domain.BatchResult, error) {
	ctx, finish := s.begin(ctx, "add_fish")
	var opErr error
	defer func() { finish(opErr) }()

	if err := session.RequireAccess(domain.AccessStaff); err != nil {
		opErr = err
		return domain.BatchResult{}, err
	}

	var result domain.BatchResult
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if err := s.addOneFish(ctx, row, seen); err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{ID: row.ID, Err: err})
			continue
		}
		seen[row.ID] = true
		result.Succeeded = append(result.Succeeded, row.ID)
	}
	if !result.OK() {
		s.logger.Warn("add_fish batch partially failed", "succeeded", len(result.Succeeded), "failed", len(result.Failed))
	}
	return result, nil
}

func (s *Service) addOneFish(ctx context.Context, row AddFishInput, seen map[string]bool) error {
	var verr domain.ValidationError
	if strings.TrimSpace(row.ID) == "" {
		verr.Add("id", "id is required")
	}
	if seen[row.ID] {
		verr.Add("id", "id %q duplicated within batch", row.ID)
	}
	if _, exists := s.store.GetFish(row.ID); exists {
		verr.Add("id", "id %q already in use", row.ID)
	}
	if !s.reference.KnownSpecies(row.Species) {
		verr.Add("species", "unknown species %q", row.Species)
	}
	if !s.reference.KnownTank(row.Tank) {
		verr.Add("tank", "unknown tank %q", row.Tank)
	}
	status := row.Status
	if status == "" {
		status = domain.StatusHealthy
	}
	if !domain.ValidFishStatus(status) || status == domain.StatusDead {
		verr.Add("status", "invalid status %q", row.Status)
	}
	number := row.NumberInGroup
	if number == 0 {
		number = 1
	}
	if number < 1 {
		verr.Add("number_in_group", "must be at least 1")
	}
	if !verr.Empty() {
		return verr
	}

	tank := row.Tank
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateFish(domain.Fish{
			Base:          domain.Base{ID: row.ID},
			Species:       row.Species,
			Tank:          &tank,
			Status:        status,
			NumberInGroup: number,
			Collection:    row.Collection,
		})
		return err
	})
	return err
}

// RecountInput identifies a group and its newly observed count.
type RecountInput struct {
	Date      time.Time
	FishID    string
	NewNumber int
	Notes     string
}

// Recount updates a group's count from a physical recount. A note is required
// only when the number changed; an unchanged count is still logged, as a
// "Confirm Number" event. Counts below one are rejected: emptying a group
// goes through the split or death paths.
func (s *Service) Recount(ctx context.Context, session domain.Session, in RecountInput) (domain.Fish, domain.Result, error) {
	ctx, finish := s.begin(ctx, "recount")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.Fish{}, domain.Result{}, opErr
	}
	if in.NewNumber < 1 {
		opErr = domain.ValidationError{Errors: []domain.FieldError{{Field: "new_number", Message: "must be at least 1"}}}
		return domain.Fish{}, domain.Result{}, opErr
	}

	var updated domain.Fish
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current, ok := tx.FindFish(in.FishID)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityFish, ID: in.FishID}
		}
		if err := requireAlive(current); err != nil {
			return err
		}
		eventType := domain.GroupConfirmNumber
		if in.NewNumber != current.NumberInGroup {
			eventType = domain.GroupRecount
			if strings.TrimSpace(in.Notes) == "" {
				var verr domain.ValidationError
				verr.Add("notes", "a note is required when the count changed (%d -> %d)", current.NumberInGroup, in.NewNumber)
				return verr
			}
		}
		if _, err := tx.AppendGroupEvent(domain.GroupEvent{
			Date:          s.eventDate(in.Date),
			Person:        recordedBy(session),
			EventType:     eventType,
			OriginalGroup: in.FishID,
			NumberInGroup: in.NewNumber,
			Notes:         in.Notes,
		}); err != nil {
			return err
		}
		if eventType == domain.GroupConfirmNumber {
			updated = current
			return nil
		}
		var err error
		updated, err = tx.UpdateFish(in.FishID, func(f *domain.Fish) error {
			f.NumberInGroup = in.NewNumber
			return nil
		})
		return err
	})
	opErr = err
	if err == nil {
		s.logWarnings("recount", res)
	}
	return updated, res, err
}

// SplitRow is one resulting group of a split. Tank and Status are optional;
// a nil field keeps the original group's value.
type SplitRow struct {
	ID            string
	NumberInGroup int
	Tank          *string
	Status        *domain.FishStatus
}

// SplitInput describes a group split.
type SplitInput struct {
	Date       time.Time
	OriginalID string
	Rows       []SplitRow
	Notes      string
}

// SplitGroup divides one group into two to four resulting rows with exact
// count conservation. One row may reuse the original id; every other id must
// be fresh. Rows inherit species and collection from the original; each row
// may direct its animals to a different tank or status, so a split can
// disperse a group across empty tanks. Any violation aborts before a single
// write.
func (s *Service) SplitGroup(ctx context.Context, session domain.Session, in SplitInput) ([]domain.Fish, domain.Result, error) {
	ctx, finish := s.begin(ctx, "split_group")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return nil, domain.Result{}, opErr
	}

	var results []domain.Fish
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		original, ok := tx.FindFish(in.OriginalID)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityFish, ID: in.OriginalID}
		}
		if err := requireAlive(original); err != nil {
			return err
		}

		var verr domain.ValidationError
		if len(in.Rows) < 2 || len(in.Rows) > domain.MaxGroupFanout {
			verr.Add("rows", "a split produces between 2 and %d groups, got %d", domain.MaxGroupFanout, len(in.Rows))
		}
		total := 0
		rowIDs := make(map[string]bool, len(in.Rows))
		for i, row := range in.Rows {
			if strings.TrimSpace(row.ID) == "" {
				verr.Add("rows", "row %d: id is required", i+1)
				continue
			}
			if rowIDs[row.ID] {
				verr.Add("rows", "row %d: id %q duplicated within split", i+1, row.ID)
			}
			rowIDs[row.ID] = true
			if row.NumberInGroup < 1 {
				verr.Add("rows", "row %d: count must be at least 1", i+1)
			}
			if row.Tank != nil {
				if _, exists := tx.FindTank(*row.Tank); !exists {
					verr.Add("rows", "row %d: unknown tank %q", i+1, *row.Tank)
				}
			}
			if row.Status != nil {
				if !domain.ValidFishStatus(*row.Status) {
					verr.Add("rows", "row %d: invalid status %q", i+1, *row.Status)
				} else if *row.Status == domain.StatusDead {
					verr.Add("rows", "row %d: death goes through the health log, not a split", i+1)
				}
			}
			total += row.NumberInGroup
			if row.ID == in.OriginalID {
				continue
			}
			if _, exists := tx.FindFish(row.ID); exists {
				verr.Add("rows", "id %q already in use", row.ID)
			}
		}
		if total != original.NumberInGroup {
			verr.Add("rows", "split counts sum to %d but group %s holds %d", total, in.OriginalID, original.NumberInGroup)
		}
		if !verr.Empty() {
			return verr
		}

		groups := make([]string, 0, len(in.Rows))
		for _, row := range in.Rows {
			groups = append(groups, row.ID)
		}
		if _, err := tx.AppendGroupEvent(domain.GroupEvent{
			Date:          s.eventDate(in.Date),
			Person:        recordedBy(session),
			EventType:     domain.GroupSplit,
			OriginalGroup: in.OriginalID,
			NumberInGroup: original.NumberInGroup,
			Notes:         in.Notes,
			Groups:        groups,
		}); err != nil {
			return err
		}

		reusedOriginal := false
		for _, row := range in.Rows {
			tank := original.Tank
			if row.Tank != nil {
				name := *row.Tank
				tank = &name
			}
			status := original.Status
			if row.Status != nil {
				status = *row.Status
			}
			if row.ID == in.OriginalID {
				reusedOriginal = true
				updated, err := tx.UpdateFish(in.OriginalID, func(f *domain.Fish) error {
					f.NumberInGroup = row.NumberInGroup
					f.Tank = tank
					f.Status = status
					return nil
				})
				if err != nil {
					return err
				}
				results = append(results, updated)
				continue
			}
			created, err := tx.CreateFish(domain.Fish{
				Base:          domain.Base{ID: row.ID},
				Species:       original.Species,
				Tank:          tank,
				Status:        status,
				NumberInGroup: row.NumberInGroup,
				Collection:    original.Collection,
			})
			if err != nil {
				return err
			}
			results = append(results, created)
		}
		if !reusedOriginal {
			// Every animal moved to fresh ids; the original retires.
			retired, err := tx.UpdateFish(in.OriginalID, func(f *domain.Fish) error {
				f.NumberInGroup = 0
				return nil
			})
			if err != nil {
				return err
			}
			results = append(results, retired)
		}
		return nil
	})
	opErr = err
	if err != nil {
		return nil, res, err
	}
	s.logWarnings("split_group", res)
	return results, res, nil
}

// MergeInput describes a group merge.
type MergeInput struct {
	Date          time.Time
	OriginalIDs   []string
	NewGroupID    string
	ExpectedTotal int
	Notes         string
}

// MergeGroups combines two to four groups of the same species sharing one
// tank into one new group. The total is recomputed from current counts; a
// stale client-supplied expectation is rejected rather than trusted. The
// originals retire to a count of zero and one Groups event records the merge,
// with the new id as the original_group and the contributors both in
// group_1..4 and in the note.
func (s *Service) MergeGroups(ctx context.Context, session domain.Session, in MergeInput) (domain.Fish, domain.Result, error) {
	ctx, finish := s.begin(ctx, "merge_groups")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.Fish{}, domain.Result{}, opErr
	}

	var merged domain.Fish
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var verr domain.ValidationError
		if len(in.OriginalIDs) < 2 || len(in.OriginalIDs) > domain.MaxGroupFanout {
			verr.Add("original_ids", "a merge combines between 2 and %d groups, got %d", domain.MaxGroupFanout, len(in.OriginalIDs))
		}
		if strings.TrimSpace(in.NewGroupID) == "" {
			verr.Add("new_group_id", "id is required")
		} else if _, exists := tx.FindFish(in.NewGroupID); exists {
			verr.Add("new_group_id", "id %q already in use", in.NewGroupID)
		}

		seen := make(map[string]bool, len(in.OriginalIDs))
		originals := make([]domain.Fish, 0, len(in.OriginalIDs))
		for _, id := range in.OriginalIDs {
			if seen[id] {
				verr.Add("original_ids", "id %q listed twice", id)
				continue
			}
			seen[id] = true
			fish, ok := tx.FindFish(id)
			if !ok {
				return domain.ErrNotFound{Entity: domain.EntityFish, ID: id}
			}
			if err := requireAlive(fish); err != nil {
				return err
			}
			originals = append(originals, fish)
		}
		if !verr.Empty() {
			return verr
		}

		first := originals[0]
		total := 0
		for _, fish := range originals {
			total += fish.NumberInGroup
			if fish.Species != first.Species {
				verr.Add("original_ids", "group %s is %s, group %s is %s: merged groups must share a species",
					first.ID, first.Species, fish.ID, fish.Species)
			}
			if !sameTank(fish.Tank, first.Tank) {
				verr.Add("original_ids", "group %s and group %s are in different tanks", first.ID, fish.ID)
			}
		}
		if in.ExpectedTotal != 0 && in.ExpectedTotal != total {
			verr.Add("expected_total", "expected %d but the groups currently hold %d; reload and retry", in.ExpectedTotal, total)
		}
		if !verr.Empty() {
			return verr
		}

		// Contributors also go in the note so a flat CSV row reads on its own.
		notes := "Merged from " + strings.Join(in.OriginalIDs, ", ")
		if strings.TrimSpace(in.Notes) != "" {
			notes = in.Notes + "; " + notes
		}
		if _, err := tx.AppendGroupEvent(domain.GroupEvent{
			Date:          s.eventDate(in.Date),
			Person:        recordedBy(session),
			EventType:     domain.GroupMerge,
			OriginalGroup: in.NewGroupID,
			NumberInGroup: total,
			Notes:         notes,
			Groups:        in.OriginalIDs,
		}); err != nil {
			return err
		}
		for _, fish := range originals {
			if _, err := tx.UpdateFish(fish.ID, func(f *domain.Fish) error {
				f.NumberInGroup = 0
				return nil
			}); err != nil {
				return err
			}
		}
		var err error
		merged, err = tx.CreateFish(domain.Fish{
			Base:          domain.Base{ID: in.NewGroupID},
			Species:       first.Species,
			Tank:          first.Tank,
			Status:        first.Status,
			NumberInGroup: total,
			Collection:    first.Collection,
		})
		return err
	})
	opErr = err
	if err == nil {
		s.logWarnings("merge_groups", res)
	}
	return merged, res, err
}

// MoveInput describes a tank move.
type MoveInput struct {
	Date           time.Time
	FishID         string
	ToTank         string
	Notes          string
	NewStatus      *domain.FishStatus
	CreateTankWith *TankInput
}

// MoveFishToTank relocates a fish or group, optionally creating the
// destination tank first and optionally changing status alongside the move.
// The health log records the move with the tank the fish actually came from.
func (s *Service) MoveFishToTank(ctx context.Context, session domain.Session, in MoveInput) (domain.Fish, domain.Result, error) {
	ctx, finish := s.begin(ctx, "move_fish_to_tank")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.Fish{}, domain.Result{}, opErr
	}
	if in.NewStatus != nil && (!domain.ValidFishStatus(*in.NewStatus) || *in.NewStatus == domain.StatusDead) {
		opErr = domain.ValidationError{Errors: []domain.FieldError{{Field: "new_status", Message: "death goes through the health log, not a tank move"}}}
		return domain.Fish{}, domain.Result{}, opErr
	}

	var moved domain.Fish
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current, ok := tx.FindFish(in.FishID)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityFish, ID: in.FishID}
		}
		if err := requireAlive(current); err != nil {
			return err
		}

		if _, exists := tx.FindTank(in.ToTank); !exists {
			if in.CreateTankWith == nil {
				return domain.ErrNotFound{Entity: domain.EntityTank, ID: in.ToTank}
			}
			spec := *in.CreateTankWith
			spec.Name = in.ToTank
			tank, verr := buildTank(tx, spec)
			if !verr.Empty() {
				return verr
			}
			if _, err := tx.CreateTank(tank); err != nil {
				return err
			}
		}

		toTank := in.ToTank
		event := domain.HealthEvent{
			Date:      s.eventDate(in.Date),
			Person:    recordedBy(session),
			Fish:      in.FishID,
			EventType: domain.HealthTankMove,
			FromTank:  current.Tank,
			ToTank:    &toTank,
			Notes:     in.Notes,
		}
		if in.NewStatus != nil {
			event.ChangeStatus = in.NewStatus
		}
		if _, err := tx.AppendHealth(event); err != nil {
			return err
		}

		var err error
		moved, err = tx.UpdateFish(in.FishID, func(f *domain.Fish) error {
			f.Tank = &toTank
			if in.NewStatus != nil {
				f.Status = *in.NewStatus
			}
			return nil
		})
		return err
	})
	opErr = err
	if err == nil {
		if in.CreateTankWith != nil {
			s.reference.Invalidate(refTanks)
		}
		s.logWarnings("move_fish_to_tank", res)
	}
	return moved, res, err
}

// HealthInput describes a health-timeline append.
type HealthInput struct {
	Date        time.Time
	FishID      string
	EventType   domain.HealthEventType
	Notes       string
	NewStatus   *domain.FishStatus
	FromTank    *string
	ToTank      *string
	Treatment   *string
	DeathStatus *domain.DeathStatus
}

// LogHealthEvent appends an entry to a fish's health timeline. Every entry
// requires a note; a Death entry additionally requires a recognised death
// status and forces the terminal state (no tank, count zero). Dead fish
// accept no further state-changing entries.
func (s *Service) LogHealthEvent(ctx context.Context, session domain.Session, in HealthInput) (domain.HealthEvent, domain.Result, error) {
	ctx, finish := s.begin(ctx, "log_health_event")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.HealthEvent{}, domain.Result{}, opErr
	}

	var verr domain.ValidationError
	switch in.EventType {
	case domain.HealthObservation, domain.HealthTreatmentStart, domain.HealthTreatmentEnd,
		domain.HealthChangeStatus, domain.HealthTankMove, domain.HealthDeath, domain.HealthOther:
	default:
		verr.Add("event_type", "unknown event type %q", in.EventType)
	}
	if in.EventType == domain.HealthDeath {
		if in.DeathStatus == nil || !domain.ValidDeathStatus(*in.DeathStatus) {
			verr.Add("death_status", "a death entry needs a death status (Found Dead, Missing, or Euthanized)")
		}
	}
	if strings.TrimSpace(in.Notes) == "" {
		verr.Add("notes", "a note is required on every health entry")
	}
	if in.NewStatus != nil && !domain.ValidFishStatus(*in.NewStatus) {
		verr.Add("new_status", "invalid status %q", *in.NewStatus)
	}
	if !verr.Empty() {
		opErr = verr
		return domain.HealthEvent{}, domain.Result{}, verr
	}

	var logged domain.HealthEvent
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current, ok := tx.FindFish(in.FishID)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityFish, ID: in.FishID}
		}
		mutates := in.EventType == domain.HealthDeath || in.NewStatus != nil
		if mutates {
			if err := requireAlive(current); err != nil {
				return err
			}
		}

		event := domain.HealthEvent{
			Date:        s.eventDate(in.Date),
			Person:      recordedBy(session),
			Fish:        in.FishID,
			EventType:   in.EventType,
			FromTank:    in.FromTank,
			ToTank:      in.ToTank,
			Treatment:   in.Treatment,
			DeathStatus: in.DeathStatus,
			Notes:       in.Notes,
		}
		if in.NewStatus != nil {
			event.ChangeStatus = in.NewStatus
		}
		if in.EventType == domain.HealthDeath {
			dead := domain.StatusDead
			event.ChangeStatus = &dead
			event.FromTank = current.Tank
		}
		var err error
		logged, err = tx.AppendHealth(event)
		if err != nil {
			return err
		}

		switch {
		case in.EventType == domain.HealthDeath:
			_, err = tx.UpdateFish(in.FishID, func(f *domain.Fish) error {
				f.Status = domain.StatusDead
				f.Tank = nil
				f.NumberInGroup = 0
				return nil
			})
		case in.NewStatus != nil:
			_, err = tx.UpdateFish(in.FishID, func(f *domain.Fish) error {
				f.Status = *in.NewStatus
				return nil
			})
		}
		return err
	})
	opErr = err
	if err == nil {
		s.logWarnings("log_health_event", res)
	}
	return logged, res, err
}

// ExperimentInput describes an experiment record.
type ExperimentInput struct {
	Date                  time.Time
	FishID                string
	Project               string
	ProjectDescription    string
	ExperimentDescription string
	IsTerminal            bool
	NFish                 int
}

// RecordExperiment logs an experiment on a fish or group. A terminal
// experiment consumes NFish animals: the count decrements, and a group
// reaching zero (or a singleton) transitions to Dead with no tank.
func (s *Service) RecordExperiment(ctx context.Context, session domain.Session, in ExperimentInput) (domain.ExperimentEvent, domain.Result, error) {
	ctx, finish := s.begin(ctx, "record_experiment")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.ExperimentEvent{}, domain.Result{}, opErr
	}

	n := in.NFish
	if n == 0 {
		n = 1
	}
	var verr domain.ValidationError
	if strings.TrimSpace(in.Project) == "" {
		verr.Add("project", "project is required")
	}
	if n < 1 {
		verr.Add("n_fish", "must be at least 1")
	}
	if !verr.Empty() {
		opErr = verr
		return domain.ExperimentEvent{}, domain.Result{}, verr
	}

	var logged domain.ExperimentEvent
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current, ok := tx.FindFish(in.FishID)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityFish, ID: in.FishID}
		}
		if err := requireAlive(current); err != nil {
			return err
		}
		if in.IsTerminal && n > current.NumberInGroup {
			var verr domain.ValidationError
			verr.Add("n_fish", "cannot consume %d fish from a group of %d", n, current.NumberInGroup)
			return verr
		}

		var err error
		logged, err = tx.AppendExperiment(domain.ExperimentEvent{
			Fish:                  in.FishID,
			Project:               in.Project,
			ProjectDescription:    in.ProjectDescription,
			ExperimentDescription: in.ExperimentDescription,
			Date:                  s.eventDate(in.Date),
			Person:                recordedBy(session),
			IsTerminal:            in.IsTerminal,
			NFish:                 n,
		})
		if err != nil || !in.IsTerminal {
			return err
		}

		remaining := current.NumberInGroup - n
		_, err = tx.UpdateFish(in.FishID, func(f *domain.Fish) error {
			if remaining <= 0 {
				f.Status = domain.StatusDead
				f.Tank = nil
				f.NumberInGroup = 0
				return nil
			}
			f.NumberInGroup = remaining
			return nil
		})
		return err
	})
	opErr = err
	if err == nil {
		s.logWarnings("record_experiment", res)
	}
	return logged, res, err
}

// FeedingInput describes a daily feeding check.
type FeedingInput struct {
	Date   time.Time
	FishID string
	Fed    bool
	Ate    bool
	Notes  string
}

// LogFeedingCheck appends a feeding-check entry.
func (s *Service) LogFeedingCheck(ctx context.Context, session domain.Session, in FeedingInput) (domain.FeedingEvent, domain.Result, error) {
	ctx, finish := s.begin(ctx, "log_feeding_check")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.FeedingEvent{}, domain.Result{}, opErr
	}

	var logged domain.FeedingEvent
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindFish(in.FishID); !ok {
			return domain.ErrNotFound{Entity: domain.EntityFish, ID: in.FishID}
		}
		var err error
		logged, err = tx.AppendFeeding(domain.FeedingEvent{
			Date:   s.eventDate(in.Date),
			Person: recordedBy(session),
			Fish:   in.FishID,
			Fed:    in.Fed,
			Ate:    in.Ate,
			Notes:  in.Notes,
		})
		return err
	})
	opErr = err
	return logged, res, err
}

// WaterQualityInput describes a water reading for a system or a single tank.
type WaterQualityInput struct {
	Date           time.Time
	System         string
	Tank           string
	Conductivity   float64
	PH             float64
	Ammonia        float64
	Nitrite        float64
	Nitrate        float64
	WaterChangePct float64
	Notes          string
}

// LogWaterQuality appends a water reading. Exactly one of System or Tank
// identifies the measured water body.
func (s *Service) LogWaterQuality(ctx context.Context, session domain.Session, in WaterQualityInput) (domain.WaterQualityEvent, domain.Result, error) {
	ctx, finish := s.begin(ctx, "log_water_quality")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.WaterQualityEvent{}, domain.Result{}, opErr
	}
	if (in.System == "") == (in.Tank == "") {
		opErr = domain.ValidationError{Errors: []domain.FieldError{{Field: "system", Message: "a reading names either a system or a tank, not both"}}}
		return domain.WaterQualityEvent{}, domain.Result{}, opErr
	}

	var logged domain.WaterQualityEvent
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		event := domain.WaterQualityEvent{
			Date:           s.eventDate(in.Date),
			Person:         recordedBy(session),
			Conductivity:   in.Conductivity,
			PH:             in.PH,
			Ammonia:        in.Ammonia,
			Nitrite:        in.Nitrite,
			Nitrate:        in.Nitrate,
			WaterChangePct: in.WaterChangePct,
			Notes:          in.Notes,
		}
		if in.System != "" {
			if _, ok := tx.FindSystem(in.System); !ok {
				return domain.ErrNotFound{Entity: domain.EntitySystem, ID: in.System}
			}
			event.System = &in.System
		} else {
			if _, ok := tx.FindTank(in.Tank); !ok {
				return domain.ErrNotFound{Entity: domain.EntityTank, ID: in.Tank}
			}
			event.Tank = &in.Tank
		}
		var err error
		logged, err = tx.AppendWaterQuality(event)
		return err
	})
	opErr = err
	return logged, res, err
}

// MaintenanceInput describes a monthly maintenance entry.
type MaintenanceInput struct {
	Date   time.Time
	Task   string
	System string
	Notes  string
}

// LogMaintenance appends a maintenance entry.
func (s *Service) LogMaintenance(ctx context.Context, session domain.Session, in MaintenanceInput) (domain.MaintenanceEvent, domain.Result, error) {
	ctx, finish := s.begin(ctx, "log_maintenance")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.MaintenanceEvent{}, domain.Result{}, opErr
	}
	if strings.TrimSpace(in.Task) == "" {
		opErr = domain.ValidationError{Errors: []domain.FieldError{{Field: "task", Message: "task is required"}}}
		return domain.MaintenanceEvent{}, domain.Result{}, opErr
	}

	var logged domain.MaintenanceEvent
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		event := domain.MaintenanceEvent{
			Date:   s.eventDate(in.Date),
			Person: recordedBy(session),
			Task:   in.Task,
			Notes:  in.Notes,
		}
		if in.System != "" {
			if _, ok := tx.FindSystem(in.System); !ok {
				return domain.ErrNotFound{Entity: domain.EntitySystem, ID: in.System}
			}
			event.System = &in.System
		}
		var err error
		logged, err = tx.AppendMaintenance(event)
		return err
	})
	opErr = err
	return logged, res, err
}

// requireAlive rejects accounting mutations on dead or retired records.
func requireAlive(fish domain.Fish) error {
	if fish.Status == domain.StatusDead {
		var verr domain.ValidationError
		verr.Add("fish", "fish %s is dead; its record can no longer change", fish.ID)
		return verr
	}
	if fish.NumberInGroup == 0 {
		var verr domain.ValidationError
		verr.Add("fish", "group %s is retired (count 0)", fish.ID)
		return verr
	}
	return nil
}

func sameTank(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
