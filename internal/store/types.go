package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("birthday record not found")
	// ErrDuplicateName is returned when the owner already tracks the name.
	ErrDuplicateName = errors.New("name already tracked by owner")
)

// Record is a single tracked birthday. Values are never mutated in place;
// all changes go through the store.
type Record struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Day       int       `json:"day"`
	Month     int       `json:"month"`
	Year      int       `json:"year,omitempty"` // 0 means unknown
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists birthday records. ListByOwner returns records ordered by
// (month, day); SelectByDayMonth spans all owners and is used by the
// reminder scheduler.
type Store interface {
	Create(ctx context.Context, record Record) (Record, error)
	FindByOwnerAndName(ctx context.Context, ownerID, name string) (Record, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)
	UpdateNote(ctx context.Context, ownerID, name, note string) error
	DeleteByOwnerAndName(ctx context.Context, ownerID, name string) error
	SelectByDayMonth(ctx context.Context, day, month int) ([]Record, error)
	Close() error
}
