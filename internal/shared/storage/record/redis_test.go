package record

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), "papershare:")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisKeyPrefix(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	if err := Save(ctx, s, "users", []item{{ID: "1"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	n, err := s.client.Exists(ctx, "papershare:users").Result()
	if err != nil || n != 1 {
		t.Fatalf("expected prefixed key, got n=%d err=%v", n, err)
	}
}

func TestRedisUpdateGivesUpAfterRepeatedConflicts(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	if err := Save(ctx, s, "papers", []item{{ID: "1"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	calls := 0
	err := s.Update(ctx, "papers", func(current []byte) ([]byte, error) {
		calls++
		// A write from another connection invalidates the WATCH.
		if err := s.client.Set(ctx, s.key("papers"), `[{"id":"other"}]`, 0).Err(); err != nil {
			t.Fatalf("interleaved Set: %v", err)
		}
		return []byte(`[{"id":"mine"}]`), nil
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if calls != maxRetries {
		t.Fatalf("expected %d attempts, got %d", maxRetries, calls)
	}
	got := Load[item](ctx, s, "papers")
	if len(got) != 1 || got[0].ID != "other" {
		t.Fatalf("expected the competing write to win, got %v", got)
	}
}

func TestRedisUpdateRetriesOnceAfterConflict(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	if err := Save(ctx, s, "notes", []item{{ID: "1"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	calls := 0
	err := Mutate(ctx, s, "notes", func(items []item) ([]item, error) {
		calls++
		if calls == 1 {
			if err := Save(ctx, s, "notes", []item{{ID: "1"}, {ID: "2"}}); err != nil {
				t.Fatalf("interleaved Save: %v", err)
			}
		}
		return append(items, item{ID: "3"}), nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
	got := Load[item](ctx, s, "notes")
	if len(got) != 3 || got[2].ID != "3" {
		t.Fatalf("expected retry to see the competing write, got %v", got)
	}
}

func TestRedisUpdateNilDeletesKey(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	if err := s.Set(ctx, "session:abc", []byte(`{}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Update(ctx, "session:abc", func([]byte) ([]byte, error) { return nil, nil }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ok, _ := s.Exists(ctx, "session:abc"); ok {
		t.Fatalf("expected key deleted")
	}
}
