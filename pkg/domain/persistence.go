package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. State rows (fish, tanks, systems,
// reference data) have full CRUD; event logs are append-only and expose only
// Append methods.
type Transaction interface {
	Snapshot() TransactionView

	CreateFish(Fish) (Fish, error)
	UpdateFish(id string, mutator func(*Fish) error) (Fish, error)
	DeleteFish(id string) error

	CreateTank(Tank) (Tank, error)
	UpdateTank(name string, mutator func(*Tank) error) (Tank, error)
	DeleteTank(name string) error

	CreateSystem(System) (System, error)
	UpdateSystem(name string, mutator func(*System) error) (System, error)

	CreateSpecies(Species) (Species, error)
	CreateCollection(Collection) (Collection, error)
	CreateLocation(Location) (Location, error)
	CreatePerson(Person) (Person, error)
	UpdatePerson(id string, mutator func(*Person) error) (Person, error)

	AppendFeeding(FeedingEvent) (FeedingEvent, error)
	AppendHealth(HealthEvent) (HealthEvent, error)
	AppendWaterQuality(WaterQualityEvent) (WaterQualityEvent, error)
	AppendMaintenance(MaintenanceEvent) (MaintenanceEvent, error)
	AppendGroupEvent(GroupEvent) (GroupEvent, error)
	AppendExperiment(ExperimentEvent) (ExperimentEvent, error)

	FindFish(id string) (Fish, bool)
	FindTank(name string) (Tank, bool)
	FindSystem(name string) (System, bool)
	FindSpecies(name string) (Species, bool)
	FindPerson(id string) (Person, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// queries.
type TransactionView interface {
	RuleView
	ListSpecies() []Species
	ListPeople() []Person
	ListCollections() []Collection
	ListGroupEvents() []GroupEvent
	ListHealthEvents() []HealthEvent
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetFish(id string) (Fish, bool)
	ListFish() []Fish
	GetTank(name string) (Tank, bool)
	ListTanks() []Tank
	ListSystems() []System
	ListSpecies() []Species
	ListPeople() []Person
	ListCollections() []Collection
	ListLocations() []Location
	ListFeedingEvents() []FeedingEvent
	ListHealthEvents() []HealthEvent
	ListWaterQualityEvents() []WaterQualityEvent
	ListMaintenanceEvents() []MaintenanceEvent
	ListGroupEvents() []GroupEvent
	ListExperiments() []ExperimentEvent
}
