package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tytell/fishdb/internal/core"
	"github.com/tytell/fishdb/pkg/domain"
)

var (
	staff = domain.Session{PersonID: "p-1", FullName: "Jordan Reyes", Access: domain.AccessStaff}
	admin = domain.Session{PersonID: "p-2", FullName: "Sam Okafor", Access: domain.AccessAdmin}
)

// newTestService builds a service over an in-memory store seeded with one
// system, one regular tank, one hospital tank, and one species.
func newTestService(t *testing.T) *core.Service {
	t.Helper()
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	ctx := context.Background()

	if _, _, err := svc.AddSystem(ctx, staff, core.SystemInput{Name: "Rack1", MaxVolume: 400}); err != nil {
		t.Fatalf("add system: %v", err)
	}
	if _, _, err := svc.AddTank(ctx, staff, core.TankInput{Name: "T1", Volume: 20, System: "Rack1", Shelf: 1, PositionInShelf: 1}); err != nil {
		t.Fatalf("add tank T1: %v", err)
	}
	if _, _, err := svc.AddTank(ctx, staff, core.TankInput{Name: "H3", Volume: 10, IsHospital: true, Shelf: 1, PositionInShelf: 1}); err != nil {
		t.Fatalf("add hospital tank: %v", err)
	}
	if _, _, err := svc.AddSpecies(ctx, staff, domain.Species{Name: "Danio rerio", CommonName: "zebrafish", NumAllowed: 500}); err != nil {
		t.Fatalf("add species: %v", err)
	}
	return svc
}

func addFish(t *testing.T, svc *core.Service, id, tank string, n int) {
	t.Helper()
	res, err := svc.AddFish(context.Background(), staff, []core.AddFishInput{{
		ID: id, Species: "Danio rerio", Tank: tank, NumberInGroup: n,
	}})
	if err != nil {
		t.Fatalf("add fish %s: %v", id, err)
	}
	if !res.OK() {
		t.Fatalf("add fish %s rejected: %v", id, res.Errors())
	}
}

func TestAddFishDefaultsAndUniqueness(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.AddFish(ctx, staff, []core.AddFishInput{
		{ID: "F1", Species: "Danio rerio", Tank: "T1"},
		{ID: "F1", Species: "Danio rerio", Tank: "T1"},
		{ID: "F2", Species: "Unknown sp.", Tank: "T1"},
		{ID: "F3", Species: "Danio rerio", Tank: "NoSuchTank"},
	})
	if err != nil {
		t.Fatalf("add fish: %v", err)
	}
	if len(res.Succeeded) != 1 || res.Succeeded[0] != "F1" {
		t.Fatalf("expected only F1 to land, got %v", res.Succeeded)
	}
	if len(res.Failed) != 3 {
		t.Fatalf("expected 3 rejected rows, got %v", res.Errors())
	}

	fish, err := svc.GetFish(ctx, "F1")
	if err != nil {
		t.Fatalf("get F1: %v", err)
	}
	if fish.NumberInGroup != 1 || fish.Status != domain.StatusHealthy {
		t.Fatalf("defaults not applied: %+v", fish)
	}

	// A second batch against the committed store must also reject F1.
	res, err = svc.AddFish(ctx, staff, []core.AddFishInput{{ID: "F1", Species: "Danio rerio", Tank: "T1"}})
	if err != nil {
		t.Fatalf("add fish again: %v", err)
	}
	if res.OK() {
		t.Fatalf("existing id must be rejected")
	}
}

func TestRecountConfirmNumberNeedsNoNote(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "F1", "H3", 1)

	fish, _, err := svc.Recount(ctx, staff, core.RecountInput{FishID: "F1", NewNumber: 1, Notes: ""})
	if err != nil {
		t.Fatalf("recount: %v", err)
	}
	if fish.NumberInGroup != 1 {
		t.Fatalf("count changed on confirm: %+v", fish)
	}
	events := svc.ListGroupEvents(ctx)
	if len(events) != 1 || events[0].EventType != domain.GroupConfirmNumber {
		t.Fatalf("expected one Confirm Number event, got %+v", events)
	}
}

func TestRecountChangeRequiresNote(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "G1", "T1", 6)

	if _, _, err := svc.Recount(ctx, staff, core.RecountInput{FishID: "G1", NewNumber: 5, Notes: ""}); !core.IsValidation(err) {
		t.Fatalf("expected validation error for missing note, got %v", err)
	}
	if len(svc.ListGroupEvents(ctx)) != 0 {
		t.Fatalf("rejected recount must not log")
	}

	fish, _, err := svc.Recount(ctx, staff, core.RecountInput{FishID: "G1", NewNumber: 5, Notes: "one jumped"})
	if err != nil {
		t.Fatalf("recount with note: %v", err)
	}
	if fish.NumberInGroup != 5 {
		t.Fatalf("recount not applied: %+v", fish)
	}
	events := svc.ListGroupEvents(ctx)
	if len(events) != 1 || events[0].EventType != domain.GroupRecount {
		t.Fatalf("expected one Recount event, got %+v", events)
	}
}

func TestRecountRejectsZero(t *testing.T) {
	svc := newTestService(t)
	addFish(t, svc, "G1", "T1", 3)
	if _, _, err := svc.Recount(context.Background(), staff, core.RecountInput{FishID: "G1", NewNumber: 0, Notes: "all gone"}); !core.IsValidation(err) {
		t.Fatalf("recount to zero must be rejected, got %v", err)
	}
}

func TestSplitGroupConservesCount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "G1", "T1", 6)

	results, _, err := svc.SplitGroup(ctx, staff, core.SplitInput{
		OriginalID: "G1",
		Rows:       []core.SplitRow{{ID: "G1", NumberInGroup: 2}, {ID: "G2", NumberInGroup: 4}},
		Notes:      "separating males",
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 resulting rows, got %d", len(results))
	}

	g1, _ := svc.GetFish(ctx, "G1")
	g2, _ := svc.GetFish(ctx, "G2")
	if g1.NumberInGroup != 2 || g2.NumberInGroup != 4 {
		t.Fatalf("counts wrong after split: G1=%d G2=%d", g1.NumberInGroup, g2.NumberInGroup)
	}
	if g2.Species != "Danio rerio" || g2.Collection != g1.Collection {
		t.Fatalf("new row must inherit species and collection: %+v", g2)
	}

	events := svc.ListGroupEvents(ctx)
	if len(events) != 1 {
		t.Fatalf("expected one Groups event, got %d", len(events))
	}
	ev := events[0]
	if ev.EventType != domain.GroupSplit || ev.OriginalGroup != "G1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if len(ev.Groups) != 2 || ev.Groups[0] != "G1" || ev.Groups[1] != "G2" {
		t.Fatalf("unexpected group list: %+v", ev.Groups)
	}
}

func TestSplitGroupRejectsBadConservation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "G1", "T1", 6)

	_, _, err := svc.SplitGroup(ctx, staff, core.SplitInput{
		OriginalID: "G1",
		Rows:       []core.SplitRow{{ID: "G1", NumberInGroup: 2}, {ID: "G2", NumberInGroup: 5}},
	})
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// No partial writes: G1 untouched, G2 absent, no event.
	g1, _ := svc.GetFish(ctx, "G1")
	if g1.NumberInGroup != 6 {
		t.Fatalf("original mutated by rejected split: %+v", g1)
	}
	if _, err := svc.GetFish(ctx, "G2"); err == nil {
		t.Fatalf("rejected split created a row")
	}
	if len(svc.ListGroupEvents(ctx)) != 0 {
		t.Fatalf("rejected split logged an event")
	}
}

func TestSplitGroupWithoutReusingOriginalRetiresIt(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "G1", "T1", 6)

	if _, _, err := svc.SplitGroup(ctx, staff, core.SplitInput{
		OriginalID: "G1",
		Rows:       []core.SplitRow{{ID: "G2", NumberInGroup: 3}, {ID: "G3", NumberInGroup: 3}},
	}); err != nil {
		t.Fatalf("split: %v", err)
	}
	g1, _ := svc.GetFish(ctx, "G1")
	if g1.NumberInGroup != 0 {
		t.Fatalf("original should retire when not reused: %+v", g1)
	}
}

func TestSplitGroupRoutesRowsToTanks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "G1", "T1", 6)
	if _, _, err := svc.AddTank(ctx, staff, core.TankInput{Name: "T2", Volume: 20, System: "Rack1", Shelf: 1, PositionInShelf: 2}); err != nil {
		t.Fatalf("add tank T2: %v", err)
	}

	t2 := "T2"
	monitor := domain.StatusMonitor
	_, res, err := svc.SplitGroup(ctx, staff, core.SplitInput{
		OriginalID: "G1",
		Rows: []core.SplitRow{
			{ID: "G1", NumberInGroup: 2},
			{ID: "G2", NumberInGroup: 4, Tank: &t2, Status: &monitor},
		},
		Notes: "dispersing to an empty tank",
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(res.Warnings()) != 0 {
		t.Fatalf("split into an empty tank must not warn: %+v", res.Warnings())
	}

	g1, _ := svc.GetFish(ctx, "G1")
	g2, _ := svc.GetFish(ctx, "G2")
	if g1.Tank == nil || *g1.Tank != "T1" || g1.Status != domain.StatusHealthy {
		t.Fatalf("row without overrides must keep the original's tank and status: %+v", g1)
	}
	if g2.Tank == nil || *g2.Tank != "T2" || g2.Status != domain.StatusMonitor {
		t.Fatalf("row overrides not applied: %+v", g2)
	}
}

func TestSplitGroupRejectsBadDestinations(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "G1", "T1", 6)

	nowhere := "NoSuchTank"
	_, _, err := svc.SplitGroup(ctx, staff, core.SplitInput{
		OriginalID: "G1",
		Rows: []core.SplitRow{
			{ID: "G1", NumberInGroup: 2},
			{ID: "G2", NumberInGroup: 4, Tank: &nowhere},
		},
	})
	if !core.IsValidation(err) {
		t.Fatalf("unknown destination tank must be rejected, got %v", err)
	}
	if _, err := svc.GetFish(ctx, "G2"); err == nil {
		t.Fatalf("rejected split created a row")
	}

	dead := domain.StatusDead
	_, _, err = svc.SplitGroup(ctx, staff, core.SplitInput{
		OriginalID: "G1",
		Rows: []core.SplitRow{
			{ID: "G1", NumberInGroup: 2},
			{ID: "G2", NumberInGroup: 4, Status: &dead},
		},
	})
	if !core.IsValidation(err) {
		t.Fatalf("Dead as a split status must be rejected, got %v", err)
	}
}

func TestMergeGroups(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "A", "T1", 3)
	addFish(t, svc, "B", "T1", 5)

	merged, _, err := svc.MergeGroups(ctx, staff, core.MergeInput{
		OriginalIDs:   []string{"A", "B"},
		NewGroupID:    "C",
		ExpectedTotal: 8,
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.ID != "C" || merged.NumberInGroup != 8 || merged.Species != "Danio rerio" {
		t.Fatalf("unexpected merged row: %+v", merged)
	}

	a, _ := svc.GetFish(ctx, "A")
	b, _ := svc.GetFish(ctx, "B")
	if a.NumberInGroup != 0 || b.NumberInGroup != 0 {
		t.Fatalf("originals not retired: A=%d B=%d", a.NumberInGroup, b.NumberInGroup)
	}

	events := svc.ListGroupEvents(ctx)
	if len(events) != 1 {
		t.Fatalf("expected one Groups event, got %d", len(events))
	}
	ev := events[0]
	if ev.EventType != domain.GroupMerge || ev.OriginalGroup != "C" || ev.NumberInGroup != 8 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if len(ev.Groups) != 2 || ev.Groups[0] != "A" || ev.Groups[1] != "B" {
		t.Fatalf("unexpected contributors: %+v", ev.Groups)
	}
	if !strings.Contains(ev.Notes, "Merged from A, B") {
		t.Fatalf("contributors missing from note: %q", ev.Notes)
	}
}

func TestMergeGroupsKeepsCallerNote(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "A", "T1", 3)
	addFish(t, svc, "B", "T1", 5)

	if _, _, err := svc.MergeGroups(ctx, staff, core.MergeInput{
		OriginalIDs: []string{"A", "B"},
		NewGroupID:  "C",
		Notes:       "combining broods",
	}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	ev := svc.ListGroupEvents(ctx)[0]
	if !strings.Contains(ev.Notes, "combining broods") || !strings.Contains(ev.Notes, "Merged from A, B") {
		t.Fatalf("note lost caller text or contributors: %q", ev.Notes)
	}
}

func TestMergeGroupsRejectsStaleTotal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "A", "T1", 3)
	addFish(t, svc, "B", "T1", 5)

	_, _, err := svc.MergeGroups(ctx, staff, core.MergeInput{
		OriginalIDs:   []string{"A", "B"},
		NewGroupID:    "C",
		ExpectedTotal: 7,
	})
	if !core.IsValidation(err) {
		t.Fatalf("stale total must be rejected, got %v", err)
	}
	a, _ := svc.GetFish(ctx, "A")
	if a.NumberInGroup != 3 {
		t.Fatalf("rejected merge mutated originals: %+v", a)
	}
}

func TestMergeGroupsRequiresTankHomogeneity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "A", "T1", 3)
	addFish(t, svc, "B", "H3", 5)

	_, _, err := svc.MergeGroups(ctx, staff, core.MergeInput{
		OriginalIDs: []string{"A", "B"},
		NewGroupID:  "C",
	})
	if !core.IsValidation(err) {
		t.Fatalf("cross-tank merge must be rejected, got %v", err)
	}
}

func TestMoveFishCreatesDestinationTank(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "F1", "H3", 1)

	moved, _, err := svc.MoveFishToTank(ctx, staff, core.MoveInput{
		FishID: "F1",
		ToTank: "T9",
		CreateTankWith: &core.TankInput{
			Volume: 20, System: "Rack1", Shelf: 1, PositionInShelf: 1,
		},
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Tank == nil || *moved.Tank != "T9" {
		t.Fatalf("fish not moved: %+v", moved)
	}

	var t9 domain.Tank
	found := false
	for _, tank := range svc.ListTanks(ctx) {
		if tank.Name == "T9" {
			t9, found = tank, true
		}
	}
	if !found || t9.System == nil || *t9.System != "Rack1" {
		t.Fatalf("destination tank not created correctly: %+v", t9)
	}

	events := svc.ListHealthEvents(ctx)
	if len(events) != 1 {
		t.Fatalf("expected one health event, got %d", len(events))
	}
	ev := events[0]
	if ev.EventType != domain.HealthTankMove || ev.FromTank == nil || *ev.FromTank != "H3" || ev.ToTank == nil || *ev.ToTank != "T9" {
		t.Fatalf("unexpected move event: %+v", ev)
	}
}

func TestMoveFishUnknownFishWritesNothing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.MoveFishToTank(ctx, staff, core.MoveInput{FishID: "nope", ToTank: "T1"})
	var nf domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if len(svc.ListHealthEvents(ctx)) != 0 {
		t.Fatalf("not-found move must not log")
	}
}

func TestDeathIsTerminal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "F1", "H3", 1)

	death := domain.DeathFoundDead
	_, _, err := svc.LogHealthEvent(ctx, staff, core.HealthInput{
		FishID:      "F1",
		EventType:   domain.HealthDeath,
		DeathStatus: &death,
		Notes:       "found at morning check",
	})
	if err != nil {
		t.Fatalf("death event: %v", err)
	}

	fish, _ := svc.GetFish(ctx, "F1")
	if fish.Status != domain.StatusDead || fish.Tank != nil || fish.NumberInGroup != 0 {
		t.Fatalf("terminal state not applied: %+v", fish)
	}

	if _, _, err := svc.Recount(ctx, staff, core.RecountInput{FishID: "F1", NewNumber: 1, Notes: "it moved"}); !core.IsValidation(err) {
		t.Fatalf("recount on dead fish must be rejected, got %v", err)
	}
	if _, _, err := svc.MoveFishToTank(ctx, staff, core.MoveInput{FishID: "F1", ToTank: "T1"}); !core.IsValidation(err) {
		t.Fatalf("move on dead fish must be rejected, got %v", err)
	}
}

func TestHealthEventRequiresNote(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "F1", "H3", 1)

	death := domain.DeathFoundDead
	_, _, err := svc.LogHealthEvent(ctx, staff, core.HealthInput{
		FishID:      "F1",
		EventType:   domain.HealthDeath,
		DeathStatus: &death,
	})
	if !core.IsValidation(err) {
		t.Fatalf("death without a note must be rejected, got %v", err)
	}
	fish, _ := svc.GetFish(ctx, "F1")
	if fish.Status != domain.StatusHealthy || fish.NumberInGroup != 1 {
		t.Fatalf("rejected death mutated the fish: %+v", fish)
	}
	if len(svc.ListHealthEvents(ctx)) != 0 {
		t.Fatalf("rejected death logged an event")
	}

	if _, _, err := svc.LogHealthEvent(ctx, staff, core.HealthInput{
		FishID:    "F1",
		EventType: domain.HealthObservation,
	}); !core.IsValidation(err) {
		t.Fatalf("observation without a note must be rejected, got %v", err)
	}
}

func TestDeathRequiresDeathStatus(t *testing.T) {
	svc := newTestService(t)
	addFish(t, svc, "F1", "H3", 1)
	_, _, err := svc.LogHealthEvent(context.Background(), staff, core.HealthInput{
		FishID:    "F1",
		EventType: domain.HealthDeath,
		Notes:     "no status given",
	})
	if !core.IsValidation(err) {
		t.Fatalf("death without death status must be rejected, got %v", err)
	}
}

func TestStatusChangeRequiresNote(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "F1", "T1", 1)

	sick := domain.StatusSick
	if _, _, err := svc.LogHealthEvent(ctx, staff, core.HealthInput{
		FishID: "F1", EventType: domain.HealthChangeStatus, NewStatus: &sick,
	}); !core.IsValidation(err) {
		t.Fatalf("status change without note must be rejected, got %v", err)
	}

	if _, _, err := svc.LogHealthEvent(ctx, staff, core.HealthInput{
		FishID: "F1", EventType: domain.HealthChangeStatus, NewStatus: &sick, Notes: "clamped fins",
	}); err != nil {
		t.Fatalf("status change: %v", err)
	}
	fish, _ := svc.GetFish(ctx, "F1")
	if fish.Status != domain.StatusSick {
		t.Fatalf("status not applied: %+v", fish)
	}
}

func TestTerminalExperimentDecrementsGroup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "G1", "T1", 5)

	if _, _, err := svc.RecordExperiment(ctx, staff, core.ExperimentInput{
		FishID: "G1", Project: "kinematics", IsTerminal: true, NFish: 2,
	}); err != nil {
		t.Fatalf("experiment: %v", err)
	}
	fish, _ := svc.GetFish(ctx, "G1")
	if fish.NumberInGroup != 3 || fish.Status == domain.StatusDead {
		t.Fatalf("expected 3 remaining, got %+v", fish)
	}

	if _, _, err := svc.RecordExperiment(ctx, staff, core.ExperimentInput{
		FishID: "G1", Project: "kinematics", IsTerminal: true, NFish: 3,
	}); err != nil {
		t.Fatalf("final experiment: %v", err)
	}
	fish, _ = svc.GetFish(ctx, "G1")
	if fish.Status != domain.StatusDead || fish.Tank != nil || fish.NumberInGroup != 0 {
		t.Fatalf("group consuming experiment must end in Dead: %+v", fish)
	}
}

func TestTerminalExperimentRejectsOverdraw(t *testing.T) {
	svc := newTestService(t)
	addFish(t, svc, "G1", "T1", 2)
	_, _, err := svc.RecordExperiment(context.Background(), staff, core.ExperimentInput{
		FishID: "G1", Project: "kinematics", IsTerminal: true, NFish: 3,
	})
	if !core.IsValidation(err) {
		t.Fatalf("overdraw must be rejected, got %v", err)
	}
}

func TestNonTerminalExperimentLeavesCount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "F1", "T1", 1)
	if _, _, err := svc.RecordExperiment(ctx, staff, core.ExperimentInput{
		FishID: "F1", Project: "behavior",
	}); err != nil {
		t.Fatalf("experiment: %v", err)
	}
	fish, _ := svc.GetFish(ctx, "F1")
	if fish.NumberInGroup != 1 || fish.Status == domain.StatusDead {
		t.Fatalf("non-terminal experiment mutated fish: %+v", fish)
	}
}

func TestAddTankHospitalForcesNilSystem(t *testing.T) {
	svc := newTestService(t)
	// Hospital flag wins even when a system is supplied.
	tank, _, err := svc.AddTank(context.Background(), staff, core.TankInput{
		Name: "H9", Volume: 10, IsHospital: true, System: "Rack1", Shelf: 2, PositionInShelf: 1,
	})
	if err != nil {
		t.Fatalf("add tank: %v", err)
	}
	if tank.System != nil {
		t.Fatalf("hospital tank persisted with a system: %+v", tank)
	}
}

func TestAddTankValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.AddTank(ctx, staff, core.TankInput{Name: "bad", Volume: -1, Shelf: 1, PositionInShelf: 1})
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// volume and missing system are both reported
	if len(verr.Errors) < 2 {
		t.Fatalf("expected per-field errors, got %+v", verr.Errors)
	}

	if _, _, err := svc.AddTank(ctx, staff, core.TankInput{Name: "T1", Volume: 5, System: "Rack1", Shelf: 1, PositionInShelf: 2}); !core.IsValidation(err) {
		t.Fatalf("duplicate tank name must be rejected, got %v", err)
	}
	if _, _, err := svc.AddTank(ctx, staff, core.TankInput{Name: "T2", Volume: 5, System: "NoRack", Shelf: 1, PositionInShelf: 2}); !core.IsValidation(err) {
		t.Fatalf("unknown system must be rejected, got %v", err)
	}
}

func TestAddTanksBestEffort(t *testing.T) {
	svc := newTestService(t)
	res, err := svc.AddTanks(context.Background(), staff, []core.TankInput{
		{Name: "T2", Volume: 15, System: "Rack1", Shelf: 1, PositionInShelf: 2},
		{Name: "T3", Volume: 0, System: "Rack1", Shelf: 1, PositionInShelf: 3},
		{Name: "T4", Volume: 15, System: "Rack1", Shelf: 1, PositionInShelf: 4},
	})
	if err != nil {
		t.Fatalf("add tanks: %v", err)
	}
	if len(res.Succeeded) != 2 || len(res.Failed) != 1 || res.Failed[0].ID != "T3" {
		t.Fatalf("unexpected batch result: %+v", res)
	}
}

func TestRenumberShelfPositions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for _, in := range []core.TankInput{
		{Name: "R2", Volume: 10, System: "Rack1", Shelf: 1, PositionInShelf: 4},
		{Name: "R3", Volume: 10, System: "Rack1", Shelf: 2, PositionInShelf: 7},
	} {
		if _, _, err := svc.AddTank(ctx, staff, in); err != nil {
			t.Fatalf("add tank %s: %v", in.Name, err)
		}
	}

	if _, err := svc.RenumberShelfPositions(ctx, staff, "Rack1"); err != nil {
		t.Fatalf("renumber: %v", err)
	}

	positions := map[string]int{}
	for _, tank := range svc.ListTanks(ctx) {
		if tank.System != nil && *tank.System == "Rack1" {
			positions[tank.Name] = tank.PositionInShelf
		}
	}
	// Shelf 1 holds T1 (pos 1) and R2 (pos 4 -> 2); shelf 2 holds R3 (pos 7 -> 1).
	if positions["T1"] != 1 || positions["R2"] != 2 || positions["R3"] != 1 {
		t.Fatalf("positions not dense: %v", positions)
	}
}

func TestTanksWithoutFish(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "F1", "T1", 1)

	empty, err := svc.TanksWithoutFish(ctx)
	if err != nil {
		t.Fatalf("tanks without fish: %v", err)
	}
	names := map[string]bool{}
	for _, tank := range empty {
		names[tank.Name] = true
	}
	if names["T1"] || !names["H3"] {
		t.Fatalf("unexpected empty set: %v", names)
	}
}

func TestCheckFishInSameTankWarns(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "F1", "T1", 1)

	// The second add commits with a warning rather than being blocked.
	res, err := svc.AddFish(ctx, staff, []core.AddFishInput{{ID: "F2", Species: "Danio rerio", Tank: "T1"}})
	if err != nil {
		t.Fatalf("add second fish: %v", err)
	}
	if !res.OK() {
		t.Fatalf("multi-occupancy must not block: %v", res.Errors())
	}

	warnings, err := svc.CheckFishInSameTank(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(warnings) != 1 || warnings[0].EntityID != "T1" || warnings[0].Severity != domain.SeverityWarn {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
}

func TestSystemShortNames(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, _, err := svc.AddSystem(ctx, staff, core.SystemInput{Name: "Rack2"}); err != nil {
		t.Fatalf("add system: %v", err)
	}

	short := svc.SystemShortNames(ctx)
	if short["Rack1"] == short["Rack2"] {
		t.Fatalf("short names must disambiguate: %v", short)
	}
	if short["Rack1"] != "Rack1" {
		// "Rack" collides, so the prefix extends to the full five characters.
		t.Fatalf("unexpected short name: %v", short)
	}
}

func TestAccessControl(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "F1", "T1", 1)

	var denied domain.ErrAccessDenied
	if _, err := svc.AddFish(ctx, domain.Session{}, nil); !errors.As(err, &denied) {
		t.Fatalf("anonymous write must be rejected, got %v", err)
	}
	if _, err := svc.DeleteFish(ctx, staff, "F1"); !errors.As(err, &denied) {
		t.Fatalf("staff delete must be rejected, got %v", err)
	}
	if _, err := svc.DeleteFish(ctx, admin, "F1"); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := svc.GetFish(ctx, "F1"); err == nil {
		t.Fatalf("fish should be gone after admin delete")
	}
}

func TestEventDatesDefaultToClock(t *testing.T) {
	fixed := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine(), core.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	if _, _, err := svc.AddSystem(ctx, staff, core.SystemInput{Name: "Rack1"}); err != nil {
		t.Fatalf("add system: %v", err)
	}
	if _, _, err := svc.AddTank(ctx, staff, core.TankInput{Name: "T1", Volume: 20, System: "Rack1", Shelf: 1, PositionInShelf: 1}); err != nil {
		t.Fatalf("add tank: %v", err)
	}
	if _, _, err := svc.AddSpecies(ctx, staff, domain.Species{Name: "Danio rerio"}); err != nil {
		t.Fatalf("add species: %v", err)
	}
	addFish(t, svc, "G1", "T1", 2)

	if _, _, err := svc.Recount(ctx, staff, core.RecountInput{FishID: "G1", NewNumber: 2}); err != nil {
		t.Fatalf("recount: %v", err)
	}
	events := svc.ListGroupEvents(ctx)
	if len(events) != 1 || !events[0].Date.Equal(fixed) {
		t.Fatalf("event date not defaulted to clock: %+v", events)
	}
	if events[0].Person != "Jordan Reyes" {
		t.Fatalf("event person should be the session identity: %+v", events[0])
	}
}
