package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("no active session")
	ErrConflict           = errors.New("user changed concurrently")
	ErrInvalidInput       = errors.New("invalid input")
)

// maxUpdateAttempts bounds optimistic retries on version conflicts.
const maxUpdateAttempts = 5

// MutateFunc edits a copy of the stored user. It may run more than once when
// a concurrent writer wins, so it must not carry state between calls.
type MutateFunc func(u *User) error

type Repo interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id string) (User, error)
	// FindByEmail returns the first user whose email equals email exactly.
	FindByEmail(ctx context.Context, email string) (User, error)
	NamesByID(ctx context.Context, ids []string) (map[string]string, error)
	Create(ctx context.Context, user User) error
	Update(ctx context.Context, id string, mutate MutateFunc) (User, error)
}

type SessionRepo interface {
	Put(ctx context.Context, session Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	// RefreshUser replaces the snapshot held by every live session of user.ID.
	RefreshUser(ctx context.Context, user User) error
}
