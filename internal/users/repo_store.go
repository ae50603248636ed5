package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"papershare-backend/internal/shared/storage/record"
	"papershare-backend/internal/shared/telemetry"
)

const (
	usersKey          = "users"
	sessionKeyPrefix  = "session:"
	userSessionPrefix = "user-sessions:"
)

// StoreRepo keeps the user collection as one blob in a record store.
type StoreRepo struct {
	Store record.Store
}

func NewStoreRepo(store record.Store) *StoreRepo {
	return &StoreRepo{Store: store}
}

func (r *StoreRepo) List(ctx context.Context) ([]User, error) {
	return record.Load[User](ctx, r.Store, usersKey), nil
}

func (r *StoreRepo) GetByID(ctx context.Context, id string) (User, error) {
	for _, u := range record.Load[User](ctx, r.Store, usersKey) {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *StoreRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range record.Load[User](ctx, r.Store, usersKey) {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *StoreRepo) NamesByID(ctx context.Context, ids []string) (map[string]string, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	names := make(map[string]string, len(ids))
	for _, u := range record.Load[User](ctx, r.Store, usersKey) {
		if _, ok := want[u.ID]; ok {
			names[u.ID] = u.Name
		}
	}
	return names, nil
}

// Create appends user. The email check runs inside the same atomic update so
// two concurrent registrations cannot both land.
func (r *StoreRepo) Create(ctx context.Context, user User) error {
	if user.Version == 0 {
		user.Version = 1
	}
	return record.Mutate(ctx, r.Store, usersKey, func(all []User) ([]User, error) {
		for _, u := range all {
			if u.Email == user.Email {
				return nil, ErrEmailTaken
			}
		}
		return append(all, user), nil
	})
}

func (r *StoreRepo) Update(ctx context.Context, id string, mutate MutateFunc) (User, error) {
	var updated User
	err := record.Mutate(ctx, r.Store, usersKey, func(all []User) ([]User, error) {
		for i := range all {
			if all[i].ID != id {
				continue
			}
			next := all[i]
			next.StarredDepartments = cloneIDs(next.StarredDepartments)
			next.StarredPapers = cloneIDs(next.StarredPapers)
			next.StarredNotes = cloneIDs(next.StarredNotes)
			if err := mutate(&next); err != nil {
				return nil, err
			}
			next.ID = id
			next.Version = all[i].Version + 1
			all[i] = next
			updated = next
			return all, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			telemetry.Warn("users.update_missing", map[string]any{"user_id": id})
		}
		if errors.Is(err, record.ErrConflict) {
			return User{}, ErrConflict
		}
		return User{}, err
	}
	return updated, nil
}

// StoreSessionRepo keeps each session under its own singleton key plus a
// per-user index of session ids.
type StoreSessionRepo struct {
	Store record.Store
	Now   func() time.Time
}

func NewStoreSessionRepo(store record.Store) *StoreSessionRepo {
	return &StoreSessionRepo{Store: store, Now: time.Now}
}

func (r *StoreSessionRepo) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *StoreSessionRepo) Put(ctx context.Context, session Session) error {
	if err := record.SaveOne(ctx, r.Store, sessionKeyPrefix+session.ID, &session); err != nil {
		return err
	}
	return record.Mutate(ctx, r.Store, userSessionPrefix+session.UserID, func(ids []string) ([]string, error) {
		for _, id := range ids {
			if id == session.ID {
				return ids, nil
			}
		}
		return append(ids, session.ID), nil
	})
}

func (r *StoreSessionRepo) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNoSession
	}
	s := record.LoadOne[Session](ctx, r.Store, sessionKeyPrefix+id)
	if s == nil {
		return Session{}, ErrNoSession
	}
	if s.Expired(r.now()) {
		_ = r.Delete(ctx, id)
		return Session{}, ErrNoSession
	}
	return *s, nil
}

func (r *StoreSessionRepo) Delete(ctx context.Context, id string) error {
	s := record.LoadOne[Session](ctx, r.Store, sessionKeyPrefix+id)
	if err := record.SaveOne[Session](ctx, r.Store, sessionKeyPrefix+id, nil); err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	return record.Mutate(ctx, r.Store, userSessionPrefix+s.UserID, func(ids []string) ([]string, error) {
		return removeID(ids, id), nil
	})
}

func (r *StoreSessionRepo) RefreshUser(ctx context.Context, user User) error {
	snapshot := user
	snapshot.PasswordHash = ""
	now := r.now()

	var stale []string
	ids := record.Load[string](ctx, r.Store, userSessionPrefix+user.ID)
	for _, id := range ids {
		gone := false
		err := r.Store.Update(ctx, sessionKeyPrefix+id, func(current []byte) ([]byte, error) {
			if current == nil {
				gone = true
				return nil, nil
			}
			var s Session
			if err := json.Unmarshal(current, &s); err != nil || s.Expired(now) {
				gone = true
				return nil, nil
			}
			gone = false
			s.User = snapshot
			return json.Marshal(s)
		})
		if err != nil {
			return err
		}
		if gone {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return record.Mutate(ctx, r.Store, userSessionPrefix+user.ID, func(ids []string) ([]string, error) {
		for _, id := range stale {
			ids = removeID(ids, id)
		}
		return ids, nil
	})
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

var (
	_ Repo        = (*StoreRepo)(nil)
	_ SessionRepo = (*StoreSessionRepo)(nil)
)
