package core

import (
	"context"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tytell/fishdb/pkg/domain"
)

// Cache keys for the reference sets.
const (
	refSpecies     = "species"
	refTanks       = "tanks"
	refSystems     = "systems"
	refShortNames  = "system_short_names"
	refPeople      = "people"
	refCollections = "collections"
)

const (
	referenceTTL      = 5 * time.Minute
	referenceSweepTTL = 10 * time.Minute
)

// referenceCache serves the read-mostly reference sets (species, tanks,
// systems, people, collections) from a process-wide TTL cache, invalidated
// write-through by the service whenever a write changes the underlying set.
type referenceCache struct {
	store domain.PersistentStore
	cache *gocache.Cache
}

func newReferenceCache(store domain.PersistentStore) *referenceCache {
	return &referenceCache{
		store: store,
		cache: gocache.New(referenceTTL, referenceSweepTTL),
	}
}

// Invalidate drops the named reference sets. System changes also drop the
// derived short-name map.
func (r *referenceCache) Invalidate(keys ...string) {
	for _, key := range keys {
		r.cache.Delete(key)
		if key == refSystems {
			r.cache.Delete(refShortNames)
		}
	}
}

// SpeciesNames returns every species name in sorted order.
func (r *referenceCache) SpeciesNames() []string {
	if v, ok := r.cache.Get(refSpecies); ok {
		return v.([]string)
	}
	var names []string
	for _, sp := range r.store.ListSpecies() {
		names = append(names, sp.Name)
	}
	r.cache.SetDefault(refSpecies, names)
	return names
}

// KnownSpecies reports whether name is a registered species.
func (r *referenceCache) KnownSpecies(name string) bool {
	for _, n := range r.SpeciesNames() {
		if n == name {
			return true
		}
	}
	return false
}

// TankNames returns every tank name in sorted order.
func (r *referenceCache) TankNames() []string {
	if v, ok := r.cache.Get(refTanks); ok {
		return v.([]string)
	}
	var names []string
	for _, tank := range r.store.ListTanks() {
		names = append(names, tank.Name)
	}
	r.cache.SetDefault(refTanks, names)
	return names
}

// KnownTank reports whether name is a registered tank.
func (r *referenceCache) KnownTank(name string) bool {
	for _, n := range r.TankNames() {
		if n == name {
			return true
		}
	}
	return false
}

// SystemNames returns every active system name in sorted order.
func (r *referenceCache) SystemNames() []string {
	if v, ok := r.cache.Get(refSystems); ok {
		return v.([]string)
	}
	var names []string
	for _, sys := range r.store.ListSystems() {
		if sys.Active {
			names = append(names, sys.Name)
		}
	}
	r.cache.SetDefault(refSystems, names)
	return names
}

// SystemShortNames maps each active system name to a short display label: the
// shortest prefix (at least four characters) unique among the systems.
func (r *referenceCache) SystemShortNames() map[string]string {
	if v, ok := r.cache.Get(refShortNames); ok {
		return v.(map[string]string)
	}
	names := r.SystemNames()
	short := make(map[string]string, len(names))
	for _, name := range names {
		short[name] = shortPrefix(name, names)
	}
	r.cache.SetDefault(refShortNames, short)
	return short
}

func shortPrefix(name string, all []string) string {
	runes := []rune(name)
	for width := 4; width <= len(runes); width++ {
		prefix := string(runes[:width])
		unique := true
		for _, other := range all {
			if other == name {
				continue
			}
			otherRunes := []rune(other)
			if len(otherRunes) >= width && string(otherRunes[:width]) == prefix {
				unique = false
				break
			}
		}
		if unique {
			return prefix
		}
	}
	return name
}

// ActivePeople returns the active staff identities sorted by full name.
func (r *referenceCache) ActivePeople() []domain.Person {
	if v, ok := r.cache.Get(refPeople); ok {
		return v.([]domain.Person)
	}
	var people []domain.Person
	for _, p := range r.store.ListPeople() {
		if p.Active {
			people = append(people, p)
		}
	}
	r.cache.SetDefault(refPeople, people)
	return people
}

// CollectionIDs returns every collection id sorted.
func (r *referenceCache) CollectionIDs() []string {
	if v, ok := r.cache.Get(refCollections); ok {
		return v.([]string)
	}
	var ids []string
	for _, c := range r.store.ListCollections() {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	r.cache.SetDefault(refCollections, ids)
	return ids
}

// Reference accessors exposed on the service ------------------------------

// SpeciesNames returns the cached species reference set.
func (s *Service) SpeciesNames(context.Context) []string { return s.reference.SpeciesNames() }

// TankNames returns the cached tank reference set.
func (s *Service) TankNames(context.Context) []string { return s.reference.TankNames() }

// ActivePeople returns the cached active staff set.
func (s *Service) ActivePeople(context.Context) []domain.Person { return s.reference.ActivePeople() }

// AddSpecies registers a species; invalidates the species reference set.
func (s *Service) AddSpecies(ctx context.Context, session domain.Session, sp domain.Species) (domain.Species, domain.Result, error) {
	ctx, finish := s.begin(ctx, "add_species")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.Species{}, domain.Result{}, opErr
	}
	var created domain.Species
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateSpecies(sp)
		return err
	})
	opErr = err
	if err == nil {
		s.reference.Invalidate(refSpecies)
	}
	return created, res, err
}

// AddCollection records an acquisition event.
func (s *Service) AddCollection(ctx context.Context, session domain.Session, c domain.Collection) (domain.Collection, domain.Result, error) {
	ctx, finish := s.begin(ctx, "add_collection")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.Collection{}, domain.Result{}, opErr
	}
	var created domain.Collection
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateCollection(c)
		return err
	})
	opErr = err
	if err == nil {
		s.reference.Invalidate(refCollections)
	}
	return created, res, err
}

// AddLocation records a collection location.
func (s *Service) AddLocation(ctx context.Context, session domain.Session, l domain.Location) (domain.Location, domain.Result, error) {
	ctx, finish := s.begin(ctx, "add_location")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessStaff); opErr != nil {
		return domain.Location{}, domain.Result{}, opErr
	}
	var created domain.Location
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateLocation(l)
		return err
	})
	opErr = err
	return created, res, err
}

// AddPerson registers a staff identity; requires admin access.
func (s *Service) AddPerson(ctx context.Context, session domain.Session, p domain.Person) (domain.Person, domain.Result, error) {
	ctx, finish := s.begin(ctx, "add_person")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessAdmin); opErr != nil {
		return domain.Person{}, domain.Result{}, opErr
	}
	var created domain.Person
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreatePerson(p)
		return err
	})
	opErr = err
	if err == nil {
		s.reference.Invalidate(refPeople)
	}
	return created, res, err
}

// SetPersonAccess changes a person's access level; requires admin access.
func (s *Service) SetPersonAccess(ctx context.Context, session domain.Session, personID string, access int) (domain.Person, domain.Result, error) {
	ctx, finish := s.begin(ctx, "set_person_access")
	var opErr error
	defer func() { finish(opErr) }()

	if opErr = session.RequireAccess(domain.AccessAdmin); opErr != nil {
		return domain.Person{}, domain.Result{}, opErr
	}
	var updated domain.Person
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdatePerson(personID, func(p *domain.Person) error {
			p.Access = access
			return nil
		})
		return err
	})
	opErr = err
	if err == nil {
		s.reference.Invalidate(refPeople)
	}
	return updated, res, err
}
