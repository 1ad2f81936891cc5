// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tytell/fishdb/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain
// persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Fish aliases domain.Fish for in-memory persistence operations.
	Fish = domain.Fish
	// Tank aliases domain.Tank.
	Tank = domain.Tank
	// System aliases domain.System.
	System = domain.System
	// Species aliases domain.Species.
	Species = domain.Species
	// Collection aliases domain.Collection.
	Collection = domain.Collection
	// Location aliases domain.Location.
	Location = domain.Location
	// Person aliases domain.Person.
	Person = domain.Person
	// FeedingEvent aliases domain.FeedingEvent.
	FeedingEvent = domain.FeedingEvent
	// HealthEvent aliases domain.HealthEvent.
	HealthEvent = domain.HealthEvent
	// WaterQualityEvent aliases domain.WaterQualityEvent.
	WaterQualityEvent = domain.WaterQualityEvent
	// MaintenanceEvent aliases domain.MaintenanceEvent.
	MaintenanceEvent = domain.MaintenanceEvent
	// GroupEvent aliases domain.GroupEvent.
	GroupEvent = domain.GroupEvent
	// ExperimentEvent aliases domain.ExperimentEvent.
	ExperimentEvent = domain.ExperimentEvent
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	fish        map[string]Fish
	tanks       map[string]Tank
	systems     map[string]System
	species     map[string]Species
	collections map[string]Collection
	locations   map[string]Location
	people      map[string]Person
	feeding     map[string]FeedingEvent
	health      map[string]HealthEvent
	water       map[string]WaterQualityEvent
	maintenance map[string]MaintenanceEvent
	groupEvents map[string]GroupEvent
	experiments map[string]ExperimentEvent
}

// Snapshot captures a point-in-time clone of the store state. Durable backends
// serialize it bucket by bucket.
type Snapshot struct {
	Fish        map[string]Fish              `json:"fish"`
	Tanks       map[string]Tank              `json:"tanks"`
	Systems     map[string]System            `json:"systems"`
	Species     map[string]Species           `json:"species"`
	Collections map[string]Collection        `json:"collections"`
	Locations   map[string]Location          `json:"locations"`
	People      map[string]Person            `json:"people"`
	Feeding     map[string]FeedingEvent      `json:"feeding"`
	Health      map[string]HealthEvent       `json:"health"`
	Water       map[string]WaterQualityEvent `json:"water_quality"`
	Maintenance map[string]MaintenanceEvent  `json:"maintenance"`
	GroupEvents map[string]GroupEvent        `json:"groups"`
	Experiments map[string]ExperimentEvent   `json:"experiments"`
}

func newMemoryState() memoryState {
	return memoryState{
		fish:        make(map[string]Fish),
		tanks:       make(map[string]Tank),
		systems:     make(map[string]System),
		species:     make(map[string]Species),
		collections: make(map[string]Collection),
		locations:   make(map[string]Location),
		people:      make(map[string]Person),
		feeding:     make(map[string]FeedingEvent),
		health:      make(map[string]HealthEvent),
		water:       make(map[string]WaterQualityEvent),
		maintenance: make(map[string]MaintenanceEvent),
		groupEvents: make(map[string]GroupEvent),
		experiments: make(map[string]ExperimentEvent),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.fish {
		cloned.fish[k] = cloneFish(v)
	}
	for k, v := range s.tanks {
		cloned.tanks[k] = cloneTank(v)
	}
	for k, v := range s.systems {
		cloned.systems[k] = v
	}
	for k, v := range s.species {
		cloned.species[k] = v
	}
	for k, v := range s.collections {
		cloned.collections[k] = v
	}
	for k, v := range s.locations {
		cloned.locations[k] = v
	}
	for k, v := range s.people {
		cloned.people[k] = v
	}
	for k, v := range s.feeding {
		cloned.feeding[k] = v
	}
	for k, v := range s.health {
		cloned.health[k] = cloneHealth(v)
	}
	for k, v := range s.water {
		cloned.water[k] = cloneWater(v)
	}
	for k, v := range s.maintenance {
		cloned.maintenance[k] = cloneMaintenance(v)
	}
	for k, v := range s.groupEvents {
		cloned.groupEvents[k] = cloneGroupEvent(v)
	}
	for k, v := range s.experiments {
		cloned.experiments[k] = v
	}
	return cloned
}

func cloneFish(f Fish) Fish {
	cp := f
	if f.Tank != nil {
		tank := *f.Tank
		cp.Tank = &tank
	}
	return cp
}

func cloneTank(t Tank) Tank {
	cp := t
	if t.System != nil {
		system := *t.System
		cp.System = &system
	}
	return cp
}

func cloneHealth(h HealthEvent) HealthEvent {
	cp := h
	cp.FromTank = cloneStringPtr(h.FromTank)
	cp.ToTank = cloneStringPtr(h.ToTank)
	cp.Treatment = cloneStringPtr(h.Treatment)
	if h.ChangeStatus != nil {
		status := *h.ChangeStatus
		cp.ChangeStatus = &status
	}
	if h.DeathStatus != nil {
		ds := *h.DeathStatus
		cp.DeathStatus = &ds
	}
	return cp
}

func cloneWater(w WaterQualityEvent) WaterQualityEvent {
	cp := w
	cp.System = cloneStringPtr(w.System)
	cp.Tank = cloneStringPtr(w.Tank)
	return cp
}

func cloneMaintenance(m MaintenanceEvent) MaintenanceEvent {
	cp := m
	cp.System = cloneStringPtr(m.System)
	return cp
}

func cloneGroupEvent(g GroupEvent) GroupEvent {
	cp := g
	cp.Groups = append([]string(nil), g.Groups...)
	return cp
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Store provides an in-memory transactional store for the fishdb domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the transaction clock, for tests.
func (s *Store) SetNow(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState returns a deep copy of the committed state for durable backends.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the committed state with the supplied snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(snapshot)
}

func snapshotFromState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Fish:        cloned.fish,
		Tanks:       cloned.tanks,
		Systems:     cloned.systems,
		Species:     cloned.species,
		Collections: cloned.collections,
		Locations:   cloned.locations,
		People:      cloned.people,
		Feeding:     cloned.feeding,
		Health:      cloned.health,
		Water:       cloned.water,
		Maintenance: cloned.maintenance,
		GroupEvents: cloned.groupEvents,
		Experiments: cloned.experiments,
	}
}

func stateFromSnapshot(snapshot Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range snapshot.Fish {
		state.fish[k] = cloneFish(v)
	}
	for k, v := range snapshot.Tanks {
		state.tanks[k] = cloneTank(v)
	}
	for k, v := range snapshot.Systems {
		state.systems[k] = v
	}
	for k, v := range snapshot.Species {
		state.species[k] = v
	}
	for k, v := range snapshot.Collections {
		state.collections[k] = v
	}
	for k, v := range snapshot.Locations {
		state.locations[k] = v
	}
	for k, v := range snapshot.People {
		state.people[k] = v
	}
	for k, v := range snapshot.Feeding {
		state.feeding[k] = v
	}
	for k, v := range snapshot.Health {
		state.health[k] = cloneHealth(v)
	}
	for k, v := range snapshot.Water {
		state.water[k] = cloneWater(v)
	}
	for k, v := range snapshot.Maintenance {
		state.maintenance[k] = cloneMaintenance(v)
	}
	for k, v := range snapshot.GroupEvents {
		state.groupEvents[k] = cloneGroupEvent(v)
	}
	for k, v := range snapshot.Experiments {
		state.experiments[k] = v
	}
	return state
}

// transaction implements domain.Transaction over a cloned state.
type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

var _ Transaction = (*transaction)(nil)

// view implements domain.TransactionView over a state pointer.
type view struct {
	state *memoryState
}

var _ TransactionView = view{}

// RunInTransaction executes fn within a transactional copy of the store state.
// Rules are evaluated against the mutated copy; blocking violations discard
// every change made by fn, so compound operations commit atomically or not at
// all.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(view{state: &snapshot})
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state to callers needing reads mid-mutation.
func (tx *transaction) Snapshot() TransactionView {
	return view{state: &tx.state}
}

// CreateFish stores a new fish record. Fish ids are user-assigned and
// immutable, so an empty id is rejected rather than generated.
func (tx *transaction) CreateFish(f Fish) (Fish, error) {
	if f.ID == "" {
		return Fish{}, errors.New("fish id is required")
	}
	if _, exists := tx.state.fish[f.ID]; exists {
		return Fish{}, fmt.Errorf("fish %q already exists", f.ID)
	}
	if f.NumberInGroup < 0 {
		return Fish{}, errors.New("number in group cannot be negative")
	}
	f.CreatedAt = tx.now
	f.UpdatedAt = tx.now
	tx.state.fish[f.ID] = cloneFish(f)
	tx.recordChange(Change{Entity: domain.EntityFish, Action: domain.ActionCreate, After: cloneFish(f)})
	return cloneFish(f), nil
}

// UpdateFish mutates a fish using the provided mutator function.
func (tx *transaction) UpdateFish(id string, mutator func(*Fish) error) (Fish, error) {
	current, ok := tx.state.fish[id]
	if !ok {
		return Fish{}, fmt.Errorf("fish %q not found", id)
	}
	before := cloneFish(current)
	if err := mutator(&current); err != nil {
		return Fish{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.fish[id] = cloneFish(current)
	tx.recordChange(Change{Entity: domain.EntityFish, Action: domain.ActionUpdate, Before: before, After: cloneFish(current)})
	return cloneFish(current), nil
}

// DeleteFish removes a fish record. Administrative escape hatch only; normal
// lifecycle retires records by zeroing their count instead.
func (tx *transaction) DeleteFish(id string) error {
	current, ok := tx.state.fish[id]
	if !ok {
		return fmt.Errorf("fish %q not found", id)
	}
	delete(tx.state.fish, id)
	tx.recordChange(Change{Entity: domain.EntityFish, Action: domain.ActionDelete, Before: cloneFish(current)})
	return nil
}

// CreateTank stores a new tank keyed by its user-assigned name.
func (tx *transaction) CreateTank(t Tank) (Tank, error) {
	if t.Name == "" {
		return Tank{}, errors.New("tank name is required")
	}
	if _, exists := tx.state.tanks[t.Name]; exists {
		return Tank{}, fmt.Errorf("tank %q already exists", t.Name)
	}
	if t.Volume <= 0 {
		return Tank{}, errors.New("tank volume must be positive")
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.tanks[t.Name] = cloneTank(t)
	tx.recordChange(Change{Entity: domain.EntityTank, Action: domain.ActionCreate, After: cloneTank(t)})
	return cloneTank(t), nil
}

// UpdateTank mutates an existing tank.
func (tx *transaction) UpdateTank(name string, mutator func(*Tank) error) (Tank, error) {
	current, ok := tx.state.tanks[name]
	if !ok {
		return Tank{}, fmt.Errorf("tank %q not found", name)
	}
	before := cloneTank(current)
	if err := mutator(&current); err != nil {
		return Tank{}, err
	}
	if current.Volume <= 0 {
		return Tank{}, errors.New("tank volume must be positive")
	}
	current.Name = name
	current.UpdatedAt = tx.now
	tx.state.tanks[name] = cloneTank(current)
	tx.recordChange(Change{Entity: domain.EntityTank, Action: domain.ActionUpdate, Before: before, After: cloneTank(current)})
	return cloneTank(current), nil
}

// DeleteTank removes a tank record (administrative override).
func (tx *transaction) DeleteTank(name string) error {
	current, ok := tx.state.tanks[name]
	if !ok {
		return fmt.Errorf("tank %q not found", name)
	}
	delete(tx.state.tanks, name)
	tx.recordChange(Change{Entity: domain.EntityTank, Action: domain.ActionDelete, Before: cloneTank(current)})
	return nil
}

// CreateSystem stores a new water system.
func (tx *transaction) CreateSystem(sys System) (System, error) {
	if sys.Name == "" {
		return System{}, errors.New("system name is required")
	}
	if _, exists := tx.state.systems[sys.Name]; exists {
		return System{}, fmt.Errorf("system %q already exists", sys.Name)
	}
	sys.CreatedAt = tx.now
	sys.UpdatedAt = tx.now
	tx.state.systems[sys.Name] = sys
	tx.recordChange(Change{Entity: domain.EntitySystem, Action: domain.ActionCreate, After: sys})
	return sys, nil
}

// UpdateSystem mutates an existing system.
func (tx *transaction) UpdateSystem(name string, mutator func(*System) error) (System, error) {
	current, ok := tx.state.systems[name]
	if !ok {
		return System{}, fmt.Errorf("system %q not found", name)
	}
	before := current
	if err := mutator(&current); err != nil {
		return System{}, err
	}
	current.Name = name
	current.UpdatedAt = tx.now
	tx.state.systems[name] = current
	tx.recordChange(Change{Entity: domain.EntitySystem, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateSpecies stores a taxonomy reference row.
func (tx *transaction) CreateSpecies(sp Species) (Species, error) {
	if sp.Name == "" {
		return Species{}, errors.New("species name is required")
	}
	if _, exists := tx.state.species[sp.Name]; exists {
		return Species{}, fmt.Errorf("species %q already exists", sp.Name)
	}
	sp.CreatedAt = tx.now
	sp.UpdatedAt = tx.now
	tx.state.species[sp.Name] = sp
	tx.recordChange(Change{Entity: domain.EntitySpecies, Action: domain.ActionCreate, After: sp})
	return sp, nil
}

// CreateCollection stores an acquisition record.
func (tx *transaction) CreateCollection(c Collection) (Collection, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	if _, exists := tx.state.collections[c.ID]; exists {
		return Collection{}, fmt.Errorf("collection %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.collections[c.ID] = c
	tx.recordChange(Change{Entity: domain.EntityCollection, Action: domain.ActionCreate, After: c})
	return c, nil
}

// CreateLocation stores a collection location.
func (tx *transaction) CreateLocation(l Location) (Location, error) {
	if l.ID == "" {
		l.ID = newID()
	}
	if _, exists := tx.state.locations[l.ID]; exists {
		return Location{}, fmt.Errorf("location %q already exists", l.ID)
	}
	l.CreatedAt = tx.now
	l.UpdatedAt = tx.now
	tx.state.locations[l.ID] = l
	tx.recordChange(Change{Entity: domain.EntityLocation, Action: domain.ActionCreate, After: l})
	return l, nil
}

// CreatePerson stores a staff identity.
func (tx *transaction) CreatePerson(p Person) (Person, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if _, exists := tx.state.people[p.ID]; exists {
		return Person{}, fmt.Errorf("person %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.people[p.ID] = p
	tx.recordChange(Change{Entity: domain.EntityPerson, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdatePerson mutates a staff identity (access level, active flag).
func (tx *transaction) UpdatePerson(id string, mutator func(*Person) error) (Person, error) {
	current, ok := tx.state.people[id]
	if !ok {
		return Person{}, fmt.Errorf("person %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Person{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.people[id] = current
	tx.recordChange(Change{Entity: domain.EntityPerson, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// AppendFeeding appends a feeding-check entry.
func (tx *transaction) AppendFeeding(e FeedingEvent) (FeedingEvent, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if _, exists := tx.state.feeding[e.ID]; exists {
		return FeedingEvent{}, fmt.Errorf("feeding event %q already exists", e.ID)
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.feeding[e.ID] = e
	tx.recordChange(Change{Entity: domain.EntityFeeding, Action: domain.ActionCreate, After: e})
	return e, nil
}

// AppendHealth appends a health-timeline entry.
func (tx *transaction) AppendHealth(e HealthEvent) (HealthEvent, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if _, exists := tx.state.health[e.ID]; exists {
		return HealthEvent{}, fmt.Errorf("health event %q already exists", e.ID)
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.health[e.ID] = cloneHealth(e)
	tx.recordChange(Change{Entity: domain.EntityHealth, Action: domain.ActionCreate, After: cloneHealth(e)})
	return cloneHealth(e), nil
}

// AppendWaterQuality appends a water reading.
func (tx *transaction) AppendWaterQuality(e WaterQualityEvent) (WaterQualityEvent, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if _, exists := tx.state.water[e.ID]; exists {
		return WaterQualityEvent{}, fmt.Errorf("water quality event %q already exists", e.ID)
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.water[e.ID] = cloneWater(e)
	tx.recordChange(Change{Entity: domain.EntityWaterQuality, Action: domain.ActionCreate, After: cloneWater(e)})
	return cloneWater(e), nil
}

// AppendMaintenance appends a maintenance entry.
func (tx *transaction) AppendMaintenance(e MaintenanceEvent) (MaintenanceEvent, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if _, exists := tx.state.maintenance[e.ID]; exists {
		return MaintenanceEvent{}, fmt.Errorf("maintenance event %q already exists", e.ID)
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.maintenance[e.ID] = cloneMaintenance(e)
	tx.recordChange(Change{Entity: domain.EntityMaintenance, Action: domain.ActionCreate, After: cloneMaintenance(e)})
	return cloneMaintenance(e), nil
}

// AppendGroupEvent appends a group accounting entry.
func (tx *transaction) AppendGroupEvent(e GroupEvent) (GroupEvent, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if _, exists := tx.state.groupEvents[e.ID]; exists {
		return GroupEvent{}, fmt.Errorf("group event %q already exists", e.ID)
	}
	if len(e.Groups) > domain.MaxGroupFanout {
		return GroupEvent{}, fmt.Errorf("group event references %d groups, limit is %d", len(e.Groups), domain.MaxGroupFanout)
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.groupEvents[e.ID] = cloneGroupEvent(e)
	tx.recordChange(Change{Entity: domain.EntityGroupEvent, Action: domain.ActionCreate, After: cloneGroupEvent(e)})
	return cloneGroupEvent(e), nil
}

// AppendExperiment appends an experiment entry.
func (tx *transaction) AppendExperiment(e ExperimentEvent) (ExperimentEvent, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if _, exists := tx.state.experiments[e.ID]; exists {
		return ExperimentEvent{}, fmt.Errorf("experiment %q already exists", e.ID)
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.experiments[e.ID] = e
	tx.recordChange(Change{Entity: domain.EntityExperiment, Action: domain.ActionCreate, After: e})
	return e, nil
}

// FindFish retrieves a fish by id from the transactional state.
func (tx *transaction) FindFish(id string) (Fish, bool) {
	f, ok := tx.state.fish[id]
	if !ok {
		return Fish{}, false
	}
	return cloneFish(f), true
}

// FindTank retrieves a tank by name from the transactional state.
func (tx *transaction) FindTank(name string) (Tank, bool) {
	t, ok := tx.state.tanks[name]
	if !ok {
		return Tank{}, false
	}
	return cloneTank(t), true
}

// FindSystem retrieves a system by name from the transactional state.
func (tx *transaction) FindSystem(name string) (System, bool) {
	sys, ok := tx.state.systems[name]
	return sys, ok
}

// FindSpecies retrieves a species by name from the transactional state.
func (tx *transaction) FindSpecies(name string) (Species, bool) {
	sp, ok := tx.state.species[name]
	return sp, ok
}

// FindPerson retrieves a person by id from the transactional state.
func (tx *transaction) FindPerson(id string) (Person, bool) {
	p, ok := tx.state.people[id]
	return p, ok
}

// View methods -----------------------------------------------------------

// ListFish returns all fish sorted by id.
func (v view) ListFish() []Fish {
	out := make([]Fish, 0, len(v.state.fish))
	for _, f := range v.state.fish {
		out = append(out, cloneFish(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListTanks returns all tanks sorted by name.
func (v view) ListTanks() []Tank {
	out := make([]Tank, 0, len(v.state.tanks))
	for _, t := range v.state.tanks {
		out = append(out, cloneTank(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListSystems returns all systems sorted by name.
func (v view) ListSystems() []System {
	out := make([]System, 0, len(v.state.systems))
	for _, sys := range v.state.systems {
		out = append(out, sys)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListSpecies returns all species sorted by name.
func (v view) ListSpecies() []Species {
	out := make([]Species, 0, len(v.state.species))
	for _, sp := range v.state.species {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListPeople returns all people sorted by full name.
func (v view) ListPeople() []Person {
	out := make([]Person, 0, len(v.state.people))
	for _, p := range v.state.people {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

// ListCollections returns all collections sorted by date then id.
func (v view) ListCollections() []Collection {
	out := make([]Collection, 0, len(v.state.collections))
	for _, c := range v.state.collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListGroupEvents returns group events in date order.
func (v view) ListGroupEvents() []GroupEvent {
	out := make([]GroupEvent, 0, len(v.state.groupEvents))
	for _, e := range v.state.groupEvents {
		out = append(out, cloneGroupEvent(e))
	}
	sortByDate(out, func(e GroupEvent) (time.Time, string) { return e.Date, e.ID })
	return out
}

// ListHealthEvents returns health events in date order.
func (v view) ListHealthEvents() []HealthEvent {
	out := make([]HealthEvent, 0, len(v.state.health))
	for _, e := range v.state.health {
		out = append(out, cloneHealth(e))
	}
	sortByDate(out, func(e HealthEvent) (time.Time, string) { return e.Date, e.ID })
	return out
}

// FindFish retrieves a fish by id from the snapshot.
func (v view) FindFish(id string) (Fish, bool) {
	f, ok := v.state.fish[id]
	if !ok {
		return Fish{}, false
	}
	return cloneFish(f), true
}

// FindTank retrieves a tank by name from the snapshot.
func (v view) FindTank(name string) (Tank, bool) {
	t, ok := v.state.tanks[name]
	if !ok {
		return Tank{}, false
	}
	return cloneTank(t), true
}

// FindSystem retrieves a system by name from the snapshot.
func (v view) FindSystem(name string) (System, bool) {
	sys, ok := v.state.systems[name]
	return sys, ok
}

func sortByDate[T any](events []T, key func(T) (time.Time, string)) {
	sort.Slice(events, func(i, j int) bool {
		di, idi := key(events[i])
		dj, idj := key(events[j])
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return idi < idj
	})
}

// Committed-state read helpers -------------------------------------------

// GetFish retrieves a fish by id from committed state.
func (s *Store) GetFish(id string) (Fish, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.state.fish[id]
	if !ok {
		return Fish{}, false
	}
	return cloneFish(f), true
}

// ListFish returns all fish from committed state sorted by id.
func (s *Store) ListFish() []Fish {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListFish()
}

// GetTank retrieves a tank by name from committed state.
func (s *Store) GetTank(name string) (Tank, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.tanks[name]
	if !ok {
		return Tank{}, false
	}
	return cloneTank(t), true
}

// ListTanks returns all tanks from committed state sorted by name.
func (s *Store) ListTanks() []Tank {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListTanks()
}

// ListSystems returns all systems from committed state.
func (s *Store) ListSystems() []System {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListSystems()
}

// ListSpecies returns all species from committed state.
func (s *Store) ListSpecies() []Species {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListSpecies()
}

// ListPeople returns all people from committed state.
func (s *Store) ListPeople() []Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListPeople()
}

// ListCollections returns all collections from committed state.
func (s *Store) ListCollections() []Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListCollections()
}

// ListLocations returns all locations from committed state sorted by name.
func (s *Store) ListLocations() []Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Location, 0, len(s.state.locations))
	for _, l := range s.state.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListFeedingEvents returns feeding checks from committed state in date order.
func (s *Store) ListFeedingEvents() []FeedingEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FeedingEvent, 0, len(s.state.feeding))
	for _, e := range s.state.feeding {
		out = append(out, e)
	}
	sortByDate(out, func(e FeedingEvent) (time.Time, string) { return e.Date, e.ID })
	return out
}

// ListHealthEvents returns health events from committed state in date order.
func (s *Store) ListHealthEvents() []HealthEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListHealthEvents()
}

// ListWaterQualityEvents returns water readings from committed state in date order.
func (s *Store) ListWaterQualityEvents() []WaterQualityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WaterQualityEvent, 0, len(s.state.water))
	for _, e := range s.state.water {
		out = append(out, cloneWater(e))
	}
	sortByDate(out, func(e WaterQualityEvent) (time.Time, string) { return e.Date, e.ID })
	return out
}

// ListMaintenanceEvents returns maintenance entries from committed state in date order.
func (s *Store) ListMaintenanceEvents() []MaintenanceEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MaintenanceEvent, 0, len(s.state.maintenance))
	for _, e := range s.state.maintenance {
		out = append(out, cloneMaintenance(e))
	}
	sortByDate(out, func(e MaintenanceEvent) (time.Time, string) { return e.Date, e.ID })
	return out
}

// ListGroupEvents returns group events from committed state in date order.
func (s *Store) ListGroupEvents() []GroupEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListGroupEvents()
}

// ListExperiments returns experiments from committed state in date order.
func (s *Store) ListExperiments() []ExperimentEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExperimentEvent, 0, len(s.state.experiments))
	for _, e := range s.state.experiments {
		out = append(out, e)
	}
	sortByDate(out, func(e ExperimentEvent) (time.Time, string) { return e.Date, e.ID })
	return out
}
