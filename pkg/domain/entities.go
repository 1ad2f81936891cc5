// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by fishdb.
package domain

import (
	"encoding/json"
	"time"
)

// TimeLayout is the timestamp format used when event dates cross the
// persistence boundary as strings (reports, CSV exports).
const TimeLayout = "2006-01-02 15:04:05"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityFish identifies a fish record (an individual or a counted group).
	EntityFish EntityType = "fish"
	// EntityTank identifies a tank record.
	EntityTank EntityType = "tank"
	// EntitySystem identifies a water system record.
	EntitySystem EntityType = "system"
	// EntitySpecies identifies a species reference record.
	EntitySpecies EntityType = "species"
	// EntityCollection identifies an acquisition/collection record.
	EntityCollection EntityType = "collection"
	// EntityLocation identifies a collection location record.
	EntityLocation EntityType = "location"
	// EntityPerson identifies a staff identity record.
	EntityPerson EntityType = "person"
	// EntityFeeding identifies a feeding-check log entry.
	EntityFeeding EntityType = "feeding"
	// EntityHealth identifies a health log entry.
	EntityHealth EntityType = "health"
	// EntityWaterQuality identifies a water-quality log entry.
	EntityWaterQuality EntityType = "water_quality"
	// EntityMaintenance identifies a maintenance log entry.
	EntityMaintenance EntityType = "maintenance"
	// EntityGroupEvent identifies a group accounting log entry.
	EntityGroupEvent EntityType = "group_event"
	// EntityExperiment identifies an experiment log entry.
	EntityExperiment EntityType = "experiment"
)

// FishStatus represents the canonical fish health states.
type FishStatus string

// Canonical fish statuses. Dead is terminal: a dead fish has no tank, a count
// of zero, and accepts no further accounting mutations.
const (
	StatusHealthy    FishStatus = "Healthy"
	StatusQuarantine FishStatus = "Quarantine"
	StatusMonitor    FishStatus = "Monitor"
	StatusSick       FishStatus = "Sick"
	StatusDead       FishStatus = "Dead"
)

// FishStatuses lists every valid status in display order.
func FishStatuses() []FishStatus {
	return []FishStatus{StatusHealthy, StatusQuarantine, StatusMonitor, StatusSick, StatusDead}
}

// ValidFishStatus reports whether s is one of the canonical statuses.
func ValidFishStatus(s FishStatus) bool {
	switch s {
	case StatusHealthy, StatusQuarantine, StatusMonitor, StatusSick, StatusDead:
		return true
	}
	return false
}

// HealthEventType enumerates entries on the health timeline.
type HealthEventType string

// Health timeline event types.
const (
	HealthObservation    HealthEventType = "Observation"
	HealthTreatmentStart HealthEventType = "Treatment Start"
	HealthTreatmentEnd   HealthEventType = "Treatment End"
	HealthChangeStatus   HealthEventType = "Change Status"
	HealthTankMove       HealthEventType = "Tank Move"
	HealthDeath          HealthEventType = "Death"
	HealthOther          HealthEventType = "Other"
)

// DeathStatus qualifies how a fish died.
type DeathStatus string

// Recognised death statuses.
const (
	DeathFoundDead  DeathStatus = "Found Dead"
	DeathMissing    DeathStatus = "Missing"
	DeathEuthanized DeathStatus = "Euthanized"
)

// ValidDeathStatus reports whether d is a recognised death status.
func ValidDeathStatus(d DeathStatus) bool {
	switch d {
	case DeathFoundDead, DeathMissing, DeathEuthanized:
		return true
	}
	return false
}

// GroupEventType enumerates group accounting events.
type GroupEventType string

// Group accounting event types.
const (
	GroupRecount       GroupEventType = "Recount"
	GroupConfirmNumber GroupEventType = "Confirm Number"
	GroupSplit         GroupEventType = "Split Group"
	GroupMerge         GroupEventType = "Merge Groups"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fish represents a single animal or a counted group of provenance-identical
// animals sharing one tank and one status. NumberInGroup of 1 means a single
// animal, greater than 1 a live group, and 0 a retired record (fully merged
// away or entirely dead).
type Fish struct {
	Base
	Species       string     `json:"species"`
	Tank          *string    `json:"tank"`
	Status        FishStatus `json:"status"`
	NumberInGroup int        `json:"number_in_group"`
	Collection    string     `json:"collection"`
}

// Alive reports whether the record still accounts for living animals.
func (f Fish) Alive() bool {
	return f.Status != StatusDead && f.NumberInGroup > 0
}

// Tank is a physical enclosure. Hospital tanks belong to no system; regular
// tanks must belong to one.
type Tank struct {
	Name            string    `json:"name"`
	Volume          float64   `json:"volume"`
	IsHospital      bool      `json:"is_hospital"`
	System          *string   `json:"system"`
	Shelf           int       `json:"shelf"`
	PositionInShelf int       `json:"position_in_shelf"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// System groups tanks sharing one water circuit and filtration.
type System struct {
	Name      string    `json:"name"`
	MaxVolume float64   `json:"max_volume"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Species is a taxonomy reference with protocol approval metadata.
type Species struct {
	Name         string     `json:"name"`
	CommonName   string     `json:"common_name"`
	NumAllowed   int        `json:"num_allowed"`
	Protocol     string     `json:"protocol"`
	DateApproved *time.Time `json:"date_approved"`
	DateExpires  *time.Time `json:"date_expires"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Collection is an acquisition event (wild collection or commercial source)
// referenced by fish records.
type Collection struct {
	Base
	Location string    `json:"location"`
	Source   string    `json:"source"`
	Date     time.Time `json:"date"`
	Notes    string    `json:"notes,omitempty"`
}

// Location is a place a collection occurred.
type Location struct {
	Base
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Person is a staff identity with a numeric access level.
type Person struct {
	Base
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Access   int    `json:"access"`
	Active   bool   `json:"active"`
}

// FeedingEvent logs a daily feeding check. Append-only.
type FeedingEvent struct {
	Base
	Date   time.Time `json:"date"`
	Person string    `json:"by"`
	Fish   string    `json:"fish"`
	Fed    bool      `json:"fed"`
	Ate    bool      `json:"ate"`
	Notes  string    `json:"notes,omitempty"`
}

// HealthEvent logs an entry on a fish's health timeline. Append-only.
type HealthEvent struct {
	Base
	Date         time.Time       `json:"date"`
	Person       string          `json:"by"`
	Fish         string          `json:"fish"`
	EventType    HealthEventType `json:"event_type"`
	FromTank     *string         `json:"from_tank,omitempty"`
	ToTank       *string         `json:"to_tank,omitempty"`
	Treatment    *string         `json:"treatment,omitempty"`
	ChangeStatus *FishStatus     `json:"change_status,omitempty"`
	DeathStatus  *DeathStatus    `json:"death_status,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// WaterQualityEvent logs a water reading for a system or single tank. Append-only.
type WaterQualityEvent struct {
	Base
	Date           time.Time `json:"date"`
	Person         string    `json:"by"`
	System         *string   `json:"system,omitempty"`
	Tank           *string   `json:"tank,omitempty"`
	Conductivity   float64   `json:"conductivity"`
	PH             float64   `json:"ph"`
	Ammonia        float64   `json:"ammonia"`
	Nitrite        float64   `json:"nitrite"`
	Nitrate        float64   `json:"nitrate"`
	WaterChangePct float64   `json:"water_change_pct"`
	Notes          string    `json:"notes,omitempty"`
}

// MaintenanceEvent logs a monthly maintenance task. Append-only.
type MaintenanceEvent struct {
	Base
	Date   time.Time `json:"date"`
	Person string    `json:"by"`
	Task   string    `json:"task"`
	System *string   `json:"system,omitempty"`
	Notes  string    `json:"notes,omitempty"`
}

// GroupEvent logs a group accounting action: recounts, confirmations, splits
// and merges. Splits and merges carry up to four participating group ids.
// Append-only.
type GroupEvent struct {
	Base
	Date          time.Time      `json:"date"`
	Person        string         `json:"by"`
	EventType     GroupEventType `json:"event_type"`
	OriginalGroup string         `json:"original_group"`
	NumberInGroup int            `json:"number_in_group"`
	Notes         string         `json:"notes,omitempty"`
	Groups        []string       `json:"-"`
}

// MaxGroupFanout bounds how many groups a split produces or a merge consumes.
const MaxGroupFanout = 4

type groupEventAlias GroupEvent

// MarshalJSON flattens the participating group list into the group_1..group_4
// columns used by the persisted Groups table.
func (e GroupEvent) MarshalJSON() ([]byte, error) {
	type payload struct {
		groupEventAlias
		Group1 string `json:"group_1,omitempty"`
		Group2 string `json:"group_2,omitempty"`
		Group3 string `json:"group_3,omitempty"`
		Group4 string `json:"group_4,omitempty"`
	}
	p := payload{groupEventAlias: groupEventAlias(e)}
	slots := []*string{&p.Group1, &p.Group2, &p.Group3, &p.Group4}
	for i, g := range e.Groups {
		if i >= MaxGroupFanout {
			break
		}
		*slots[i] = g
	}
	return json.Marshal(p)
}

// UnmarshalJSON reassembles the participating group list from the
// group_1..group_4 columns.
func (e *GroupEvent) UnmarshalJSON(data []byte) error {
	type payload struct {
		groupEventAlias
		Group1 string `json:"group_1"`
		Group2 string `json:"group_2"`
		Group3 string `json:"group_3"`
		Group4 string `json:"group_4"`
	}
	var aux payload
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = GroupEvent(aux.groupEventAlias)
	e.Groups = nil
	for _, g := range []string{aux.Group1, aux.Group2, aux.Group3, aux.Group4} {
		if g != "" {
			e.Groups = append(e.Groups, g)
		}
	}
	return nil
}

// ExperimentEvent logs an experiment on a fish or group. Terminal experiments
// consume animals and drive the mortality accounting in the core. Append-only.
type ExperimentEvent struct {
	Base
	Fish                  string    `json:"fish"`
	Project               string    `json:"project"`
	ProjectDescription    string    `json:"project_description,omitempty"`
	ExperimentDescription string    `json:"experiment_description,omitempty"`
	Date                  time.Time `json:"date"`
	Person                string    `json:"by"`
	IsTerminal            bool      `json:"is_terminal"`
	NFish                 int       `json:"n_fish"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created (all event-log appends use it).
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns only the warn-severity violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
