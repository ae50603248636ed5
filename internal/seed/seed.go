package seed

import (
	"context"
	"errors"
	"fmt"

	"papershare-backend/internal/content"
	"papershare-backend/internal/shared/auth"
	"papershare-backend/internal/shared/storage/record"
	"papershare-backend/internal/shared/telemetry"
	"papershare-backend/internal/users"
)

// Result reports which collections were written.
type Result struct {
	Users  bool
	Papers bool
	Notes  bool
}

// Store writes the fixtures into every collection key that is absent.
// Present keys are never overwritten, even when they hold an empty list.
func Store(ctx context.Context, store record.Store) (Result, error) {
	var res Result

	ok, err := store.Exists(ctx, "users")
	if err != nil {
		return res, fmt.Errorf("check users: %w", err)
	}
	if !ok {
		hash, err := auth.HashPassword(DemoPassword)
		if err != nil {
			return res, fmt.Errorf("hash demo password: %w", err)
		}
		if err := record.Save(ctx, store, "users", Users(hash)); err != nil {
			return res, fmt.Errorf("seed users: %w", err)
		}
		res.Users = true
	}

	for _, kind := range content.Kinds {
		key := kind.Plural()
		ok, err := store.Exists(ctx, key)
		if err != nil {
			return res, fmt.Errorf("check %s: %w", key, err)
		}
		if ok {
			continue
		}
		if err := record.Save(ctx, store, key, fixturesFor(kind)); err != nil {
			return res, fmt.Errorf("seed %s: %w", key, err)
		}
		res.mark(kind)
	}
	res.log()
	return res, nil
}

// Repos seeds through the repositories, filling each table that is empty.
func Repos(ctx context.Context, userRepo users.Repo, contentRepo content.Repo) (Result, error) {
	var res Result

	existing, err := userRepo.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list users: %w", err)
	}
	if len(existing) == 0 {
		hash, err := auth.HashPassword(DemoPassword)
		if err != nil {
			return res, fmt.Errorf("hash demo password: %w", err)
		}
		for _, u := range Users(hash) {
			if err := userRepo.Create(ctx, u); err != nil && !errors.Is(err, users.ErrEmailTaken) {
				return res, fmt.Errorf("seed user %s: %w", u.ID, err)
			}
		}
		res.Users = true
	}

	for _, kind := range content.Kinds {
		items, err := contentRepo.List(ctx, kind, content.Filter{})
		if err != nil {
			return res, fmt.Errorf("list %s: %w", kind.Plural(), err)
		}
		if len(items) > 0 {
			continue
		}
		for _, it := range fixturesFor(kind) {
			if err := contentRepo.Create(ctx, it); err != nil {
				return res, fmt.Errorf("seed %s %s: %w", kind, it.ID, err)
			}
		}
		res.mark(kind)
	}
	res.log()
	return res, nil
}

func fixturesFor(kind content.Kind) []content.Item {
	if kind == content.KindPaper {
		return Papers()
	}
	return Notes()
}

func (r *Result) mark(kind content.Kind) {
	if kind == content.KindPaper {
		r.Papers = true
	} else {
		r.Notes = true
	}
}

func (r Result) log() {
	telemetry.Info("seed.complete", map[string]any{"users": r.Users, "papers": r.Papers, "notes": r.Notes})
}
