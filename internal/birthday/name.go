package birthday

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/ent0n29/birthdaybot/internal/store"
)

const maxNameLength = 255

var (
	// ErrNameTooLong signals a name over the storage limit.
	ErrNameTooLong = errors.New("name too long")
	// ErrNameTaken signals a name the owner already tracks.
	ErrNameTaken = errors.New("name already taken")
)

// NameValidator checks candidate names against the owner's existing records.
type NameValidator struct {
	store store.Store
}

func NewNameValidator(s store.Store) *NameValidator {
	return &NameValidator{store: s}
}

func (v *NameValidator) Validate(ctx context.Context, ownerID, name string) error {
	if utf8.RuneCountInString(name) > maxNameLength {
		return ErrNameTooLong
	}
	_, err := v.store.FindByOwnerAndName(ctx, ownerID, name)
	switch {
	case err == nil:
		return ErrNameTaken
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check name uniqueness: %w", err)
	}
}
