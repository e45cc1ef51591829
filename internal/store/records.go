// Package store holds the ordered in-memory collection of patient records and
// notifies observers about every change to it.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"patientdesk/internal/logging"
	"patientdesk/internal/patient"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("patient not found")
	// ErrDuplicateID is returned when a record set reuses an id.
	ErrDuplicateID = errors.New("duplicate patient id")
)

// EventKind classifies a store change.
type EventKind int

const (
	EventLoaded EventKind = iota
	EventUpdated
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "loaded"
	case EventUpdated:
		return "updated"
	case EventRemoved:
		return "removed"
	}
	return "unknown"
}

// Event describes one change. ID and Field are zero for EventLoaded.
type Event struct {
	Kind     EventKind
	ID       int
	Field    patient.Field
	Revision uint64
}

// Observer is called after a change is applied, outside the store lock.
type Observer func(Event)

// Store is an ordered collection of patients keyed by id.
type Store struct {
	mu        sync.RWMutex
	records   []patient.Patient
	index     map[int]int
	revision  uint64
	observers map[int]Observer
	nextObs   int
}

// New creates a store holding records in the given order.
func New(records ...patient.Patient) (*Store, error) {
	s := &Store{observers: make(map[int]Observer)}
	if err := s.replace(records); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the contents with whatever the provider returns.
// On error the current contents are kept.
func (s *Store) Load(ctx context.Context, p patient.Provider) error {
	timer := logging.StartTimer(logging.CategoryLoader, "provider load")
	records, err := p.Load(ctx)
	elapsed := timer.Stop()
	if err != nil {
		logging.LoaderError("load failed: %v", err)
		return fmt.Errorf("failed to load patients: %w", err)
	}
	logging.Loader("provider returned %d patients in %v", len(records), elapsed)
	return s.Replace(records)
}

// Replace swaps in a new record list and emits EventLoaded.
func (s *Store) Replace(records []patient.Patient) error {
	s.mu.Lock()
	if err := s.replace(records); err != nil {
		s.mu.Unlock()
		return err
	}
	ev := Event{Kind: EventLoaded, Revision: s.revision}
	s.mu.Unlock()

	logging.Store("loaded %d patients", len(records))
	s.notify(ev)
	return nil
}

func (s *Store) replace(records []patient.Patient) error {
	index := make(map[int]int, len(records))
	for i, r := range records {
		if _, dup := index[r.ID]; dup {
			return fmt.Errorf("id %d: %w", r.ID, ErrDuplicateID)
		}
		index[r.ID] = i
	}
	s.records = append([]patient.Patient(nil), records...)
	s.index = index
	s.revision++
	return nil
}

// Records returns a snapshot in display order.
func (s *Store) Records() []patient.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]patient.Patient(nil), s.records...)
}

// Get returns the record with the given id.
func (s *Store) Get(id int) (patient.Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return patient.Patient{}, false
	}
	return s.records[i], true
}

// Index returns the display position of id, or -1.
func (s *Store) Index(id int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Revision increases with every change.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Set coerces raw and commits it to one field of a record.
// Rejected values leave the record unchanged and emit nothing.
func (s *Store) Set(id int, f patient.Field, raw string) error {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	rec := s.records[i]
	if err := rec.SetText(f, raw); err != nil {
		s.mu.Unlock()
		return err
	}
	s.records[i] = rec
	s.revision++
	ev := Event{Kind: EventUpdated, ID: id, Field: f, Revision: s.revision}
	s.mu.Unlock()

	logging.StoreDebug("patient %d %s set", id, f)
	s.notify(ev)
	return nil
}

// Remove deletes the record with id. It reports false when id is absent.
func (s *Store) Remove(id int) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.records); j++ {
		s.index[s.records[j].ID] = j
	}
	s.revision++
	ev := Event{Kind: EventRemoved, ID: id, Revision: s.revision}
	s.mu.Unlock()

	logging.Store("removed patient %d", id)
	s.notify(ev)
	return true
}

// Subscribe registers an observer. The returned func unregisters it.
func (s *Store) Subscribe(fn Observer) (cancel func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(ev Event) {
	s.mu.RLock()
	fns := make([]Observer, 0, len(s.observers))
	// registration order
	for n := 0; n < s.nextObs; n++ {
		if fn, ok := s.observers[n]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// AuditObserver returns an observer that copies store events into the
// audit trail.
func (s *Store) AuditObserver() Observer {
	return func(ev Event) {
		a := logging.Audit()
		switch ev.Kind {
		case EventLoaded:
			a.RecordsLoaded(s.Len())
		case EventUpdated:
			a.RecordUpdated(ev.ID, ev.Field.Title())
		case EventRemoved:
			a.RecordRemoved(ev.ID)
		}
	}
}
