package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) Create(_ context.Context, record Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.OwnerID == record.OwnerID && r.Name == record.Name {
			return Record{}, ErrDuplicateName
		}
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.records[record.ID] = record
	return record, nil
}

func (s *InMemoryStore) FindByOwnerAndName(_ context.Context, ownerID, name string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.OwnerID == ownerID && r.Name == name {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (s *InMemoryStore) ListByOwner(_ context.Context, ownerID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sortByCalendar(out)
	return out, nil
}

func (s *InMemoryStore) UpdateNote(_ context.Context, ownerID, name, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.OwnerID == ownerID && r.Name == name {
			r.Note = note
			s.records[id] = r
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) DeleteByOwnerAndName(_ context.Context, ownerID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.OwnerID == ownerID && r.Name == name {
			delete(s.records, id)
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) SelectByDayMonth(_ context.Context, day, month int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.Day == day && r.Month == month {
			out = append(out, r)
		}
	}
	sortByCalendar(out)
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }

func sortByCalendar(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Month != records[j].Month {
			return records[i].Month < records[j].Month
		}
		if records[i].Day != records[j].Day {
			return records[i].Day < records[j].Day
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
