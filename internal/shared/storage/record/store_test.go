package record

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

type item struct {
	ID   string `json:"id"`
	Hits int    `json:"hits"`
}

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
		"redis":  newRedisStore(t),
	}
}

func TestStoreContract(t *testing.T) {
	for name, s := range newStores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.Get(ctx, "users"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if ok, err := s.Exists(ctx, "users"); err != nil || ok {
				t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
			}

			if got := Load[item](ctx, s, "users"); len(got) != 0 {
				t.Fatalf("expected empty collection, got %v", got)
			}

			if err := Save(ctx, s, "users", []item{{ID: "1"}, {ID: "2"}}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got := Load[item](ctx, s, "users")
			if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
				t.Fatalf("unexpected collection %v", got)
			}
			if ok, _ := s.Exists(ctx, "users"); !ok {
				t.Fatalf("expected key to exist after Save")
			}

			if err := s.Delete(ctx, "users"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if ok, _ := s.Exists(ctx, "users"); ok {
				t.Fatalf("expected key removed")
			}
		})
	}
}

func TestSingletonRoundTrip(t *testing.T) {
	for name, s := range newStores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if got := LoadOne[item](ctx, s, "session:abc"); got != nil {
				t.Fatalf("expected nil singleton, got %+v", got)
			}
			if err := SaveOne(ctx, s, "session:abc", &item{ID: "u1"}); err != nil {
				t.Fatalf("SaveOne: %v", err)
			}
			got := LoadOne[item](ctx, s, "session:abc")
			if got == nil || got.ID != "u1" {
				t.Fatalf("unexpected singleton %+v", got)
			}
			if err := SaveOne[item](ctx, s, "session:abc", nil); err != nil {
				t.Fatalf("SaveOne(nil): %v", err)
			}
			if got := LoadOne[item](ctx, s, "session:abc"); got != nil {
				t.Fatalf("expected cleared singleton, got %+v", got)
			}
		})
	}
}

func TestCorruptBlobReadsAsEmpty(t *testing.T) {
	for name, s := range newStores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Set(ctx, "papers", []byte("{not json")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if got := Load[item](ctx, s, "papers"); len(got) != 0 {
				t.Fatalf("expected empty collection, got %v", got)
			}
			if got := LoadOne[item](ctx, s, "papers"); got != nil {
				t.Fatalf("expected nil singleton, got %+v", got)
			}

			err := Mutate(ctx, s, "papers", func(items []item) ([]item, error) {
				return append(items, item{ID: "fresh"}), nil
			})
			if err != nil {
				t.Fatalf("Mutate: %v", err)
			}
			got := Load[item](ctx, s, "papers")
			if len(got) != 1 || got[0].ID != "fresh" {
				t.Fatalf("expected corrupt blob replaced, got %v", got)
			}
		})
	}
}

func TestMutateIsAtomicUnderConcurrency(t *testing.T) {
	for name, s := range newStores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := Save(ctx, s, "counters", []item{{ID: "a"}}); err != nil {
				t.Fatalf("Save: %v", err)
			}

			const workers = 20
			var (
				wg      sync.WaitGroup
				applied atomic.Int64
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := Mutate(ctx, s, "counters", func(items []item) ([]item, error) {
						items[0].Hits++
						return items, nil
					})
					switch {
					case err == nil:
						applied.Add(1)
					case !errors.Is(err, ErrConflict):
						t.Errorf("Mutate: %v", err)
					}
				}()
			}
			wg.Wait()

			got := Load[item](ctx, s, "counters")
			if int64(got[0].Hits) != applied.Load() {
				t.Fatalf("lost update: %d hits for %d applied mutations", got[0].Hits, applied.Load())
			}
			if applied.Load() == 0 {
				t.Fatalf("expected at least one mutation to apply")
			}
			if _, remote := s.(*RedisStore); !remote && applied.Load() != workers {
				t.Fatalf("expected every local mutation to apply, got %d", applied.Load())
			}
		})
	}
}

func TestMutateErrorLeavesBlobUntouched(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := Save(ctx, s, "users", []item{{ID: "1"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	boom := errors.New("boom")
	err := Mutate(ctx, s, "users", func(items []item) ([]item, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := Load[item](ctx, s, "users"); len(got) != 1 {
		t.Fatalf("expected collection unchanged, got %v", got)
	}
}

func TestFileStoreKeysStayInsideDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	if err := s.Set(ctx, "session:abc", []byte(`{}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "session_abc.json")); err != nil {
		t.Fatalf("expected session_abc.json: %v", err)
	}
	if err := s.Set(ctx, "../escape", []byte(`{}`)); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}
