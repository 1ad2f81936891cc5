package domain_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/tytell/fishdb/pkg/domain"
)

func TestGroupEventJSONFlattensGroups(t *testing.T) {
	event := domain.GroupEvent{
		Base:          domain.Base{ID: "ev-1"},
		Date:          time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Person:        "Jordan",
		EventType:     domain.GroupSplit,
		OriginalGroup: "G1",
		NumberInGroup: 6,
		Groups:        []string{"G1", "G2", "G3"},
	}
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["group_1"] != "G1" || raw["group_2"] != "G2" || raw["group_3"] != "G3" {
		t.Fatalf("groups not flattened: %v", raw)
	}
	if _, ok := raw["group_4"]; ok {
		t.Fatalf("empty group_4 should be omitted: %v", raw)
	}

	var decoded domain.GroupEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Groups) != 3 || decoded.Groups[0] != "G1" || decoded.Groups[2] != "G3" {
		t.Fatalf("groups not reassembled: %+v", decoded.Groups)
	}
	if decoded.OriginalGroup != "G1" || decoded.EventType != domain.GroupSplit {
		t.Fatalf("fields lost in round trip: %+v", decoded)
	}
}

func TestFishAlive(t *testing.T) {
	tank := "T1"
	cases := []struct {
		name string
		fish domain.Fish
		want bool
	}{
		{"healthy group", domain.Fish{Status: domain.StatusHealthy, Tank: &tank, NumberInGroup: 3}, true},
		{"sick singleton", domain.Fish{Status: domain.StatusSick, Tank: &tank, NumberInGroup: 1}, true},
		{"dead", domain.Fish{Status: domain.StatusDead, NumberInGroup: 0}, false},
		{"retired", domain.Fish{Status: domain.StatusHealthy, Tank: &tank, NumberInGroup: 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.fish.Alive(); got != tc.want {
				t.Fatalf("Alive() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidationErrorMessages(t *testing.T) {
	var verr domain.ValidationError
	if !verr.Empty() {
		t.Fatalf("fresh error should be empty")
	}
	verr.Add("name", "name is required")
	verr.Add("volume", "volume must be positive, got %g", -1.5)
	if verr.Empty() {
		t.Fatalf("error with fields should not be empty")
	}
	msgs := verr.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1] != "volume: volume must be positive, got -1.5" {
		t.Fatalf("unexpected message: %q", msgs[1])
	}
	if !strings.Contains(verr.Error(), "name is required") {
		t.Fatalf("Error() missing field message: %q", verr.Error())
	}
}

func TestResultBlockingAndWarnings(t *testing.T) {
	var res domain.Result
	if res.HasBlocking() {
		t.Fatalf("empty result should not block")
	}
	res.Merge(domain.Result{Violations: []domain.Violation{
		{Rule: "tank_occupancy", Severity: domain.SeverityWarn, Message: "shared tank"},
	}})
	if res.HasBlocking() {
		t.Fatalf("warn-only result should not block")
	}
	res.Merge(domain.Result{Violations: []domain.Violation{
		{Rule: "tank_topology", Severity: domain.SeverityBlock, Message: "no system"},
	}})
	if !res.HasBlocking() {
		t.Fatalf("blocking violation not detected")
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "tank_occupancy" {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
}

func TestSessionRequireAccess(t *testing.T) {
	anonymous := domain.Session{}
	if err := anonymous.RequireAccess(domain.AccessStaff); err == nil {
		t.Fatalf("anonymous session should be rejected")
	}
	staff := domain.Session{PersonID: "p1", Access: domain.AccessStaff}
	if err := staff.RequireAccess(domain.AccessStaff); err != nil {
		t.Fatalf("staff access rejected: %v", err)
	}
	if err := staff.RequireAccess(domain.AccessAdmin); err == nil {
		t.Fatalf("staff session should not pass admin gate")
	}
	admin := domain.Session{PersonID: "p2", Access: domain.AccessAdmin}
	if err := admin.RequireAccess(domain.AccessAdmin); err != nil {
		t.Fatalf("admin access rejected: %v", err)
	}
}

func TestBatchResult(t *testing.T) {
	res := domain.BatchResult{Succeeded: []string{"F1"}}
	if !res.OK() {
		t.Fatalf("batch with no failures should be OK")
	}
	res.Failed = append(res.Failed, domain.BatchFailure{ID: "F2", Err: domain.ErrNotFound{Entity: domain.EntityTank, ID: "T9"}})
	if res.OK() {
		t.Fatalf("batch with failures should not be OK")
	}
	errs := res.Errors()
	if len(errs) != 1 || !strings.Contains(errs[0], "F2") {
		t.Fatalf("unexpected errors: %v", errs)
	}
}
