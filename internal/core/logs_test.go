package core_test

import (
	"context"
	"testing"

	"github.com/tytell/fishdb/internal/core"
	"github.com/tytell/fishdb/pkg/domain"
)

func TestLogFeedingCheck(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	addFish(t, svc, "F1", "T1", 1)

	ev, _, err := svc.LogFeedingCheck(ctx, staff, core.FeedingInput{FishID: "F1", Fed: true, Ate: false, Notes: "slow"})
	if err != nil {
		t.Fatalf("log feeding: %v", err)
	}
	if ev.Fish != "F1" || !ev.Fed || ev.Ate {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.ID == "" {
		t.Fatalf("event id not assigned")
	}

	if _, _, err := svc.LogFeedingCheck(ctx, staff, core.FeedingInput{FishID: "nope"}); err == nil {
		t.Fatalf("unknown fish must be rejected")
	}
}

func TestLogWaterQualityNamesOneWaterBody(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.LogWaterQuality(ctx, staff, core.WaterQualityInput{PH: 7.2}); !core.IsValidation(err) {
		t.Fatalf("neither system nor tank must be rejected, got %v", err)
	}
	if _, _, err := svc.LogWaterQuality(ctx, staff, core.WaterQualityInput{System: "Rack1", Tank: "T1"}); !core.IsValidation(err) {
		t.Fatalf("both system and tank must be rejected, got %v", err)
	}

	ev, _, err := svc.LogWaterQuality(ctx, staff, core.WaterQualityInput{System: "Rack1", PH: 7.2, Conductivity: 680})
	if err != nil {
		t.Fatalf("system reading: %v", err)
	}
	if ev.System == nil || *ev.System != "Rack1" || ev.Tank != nil {
		t.Fatalf("unexpected event: %+v", ev)
	}

	ev, _, err = svc.LogWaterQuality(ctx, staff, core.WaterQualityInput{Tank: "H3", Ammonia: 0.25})
	if err != nil {
		t.Fatalf("tank reading: %v", err)
	}
	if ev.Tank == nil || *ev.Tank != "H3" || ev.System != nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestLogMaintenanceRequiresTask(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.LogMaintenance(ctx, staff, core.MaintenanceInput{System: "Rack1"}); !core.IsValidation(err) {
		t.Fatalf("empty task must be rejected, got %v", err)
	}

	ev, _, err := svc.LogMaintenance(ctx, staff, core.MaintenanceInput{Task: "clean prefilters", System: "Rack1"})
	if err != nil {
		t.Fatalf("log maintenance: %v", err)
	}
	if ev.Task != "clean prefilters" || ev.System == nil || *ev.System != "Rack1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestAddSpeciesRefreshesReferenceSet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Unknown until registered; the cache must not serve a stale miss.
	res, err := svc.AddFish(ctx, staff, []core.AddFishInput{{ID: "P1", Species: "Poecilia reticulata", Tank: "T1"}})
	if err != nil {
		t.Fatalf("add fish: %v", err)
	}
	if res.OK() {
		t.Fatalf("unregistered species must be rejected")
	}

	if _, _, err := svc.AddSpecies(ctx, staff, domain.Species{Name: "Poecilia reticulata", CommonName: "guppy"}); err != nil {
		t.Fatalf("add species: %v", err)
	}
	res, err = svc.AddFish(ctx, staff, []core.AddFishInput{{ID: "P1", Species: "Poecilia reticulata", Tank: "T1"}})
	if err != nil {
		t.Fatalf("add fish after register: %v", err)
	}
	if !res.OK() {
		t.Fatalf("registered species still rejected: %v", res.Errors())
	}

	names := svc.SpeciesNames(ctx)
	if len(names) != 2 || names[0] != "Danio rerio" || names[1] != "Poecilia reticulata" {
		t.Fatalf("unexpected species list: %v", names)
	}
}

func TestPersonManagementIsAdminOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.AddPerson(ctx, staff, domain.Person{FullName: "New Tech"}); err == nil {
		t.Fatalf("staff must not add people")
	}
	person, _, err := svc.AddPerson(ctx, admin, domain.Person{FullName: "New Tech", Email: "tech@example.edu", Active: true})
	if err != nil {
		t.Fatalf("add person: %v", err)
	}
	if person.ID == "" {
		t.Fatalf("person id not assigned")
	}

	updated, _, err := svc.SetPersonAccess(ctx, admin, person.ID, domain.AccessAdmin)
	if err != nil {
		t.Fatalf("set access: %v", err)
	}
	if updated.Access != domain.AccessAdmin {
		t.Fatalf("access not applied: %+v", updated)
	}

	people := svc.ActivePeople(ctx)
	found := false
	for _, p := range people {
		if p.ID == person.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("new person missing from active set: %+v", people)
	}
}
