package seed

import (
	"context"
	"math/rand"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"papershare-backend/internal/content"
	"papershare-backend/internal/shared/auth"
	"papershare-backend/internal/shared/storage/record"
	"papershare-backend/internal/users"
)

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

func TestStoreSeedsAbsentKeys(t *testing.T) {
	ctx := context.Background()
	store := record.NewMemoryStore()

	res, err := Store(ctx, store)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !res.Users || !res.Papers || !res.Notes {
		t.Fatalf("expected every collection seeded, got %+v", res)
	}
	seeded := record.Load[users.User](ctx, store, "users")
	if len(seeded) != 2 || seeded[0].Name != "John Doe" {
		t.Fatalf("unexpected users %+v", seeded)
	}
	if !auth.CheckPassword(seeded[1].PasswordHash, DemoPassword) {
		t.Fatalf("expected demo password to verify")
	}
	papers := record.Load[content.Item](ctx, store, "papers")
	if len(papers) != 3 || papers[2].Downloads != 156 || papers[0].Subject != "CS301" {
		t.Fatalf("unexpected papers %+v", papers)
	}
}

func TestStoreNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store := record.NewMemoryStore()
	if err := record.Save(ctx, store, "papers", []content.Item{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	res, err := Store(ctx, store)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if res.Papers {
		t.Fatalf("present key must not be reseeded")
	}
	if got := record.Load[content.Item](ctx, store, "papers"); len(got) != 0 {
		t.Fatalf("expected empty papers kept, got %d", len(got))
	}

	again, err := Store(ctx, store)
	if err != nil {
		t.Fatalf("Store again: %v", err)
	}
	if again.Users || again.Papers || again.Notes {
		t.Fatalf("second run must be a no-op, got %+v", again)
	}
}

func TestReposSeedsEmptyTables(t *testing.T) {
	ctx := context.Background()
	store := record.NewMemoryStore()
	userRepo := users.NewStoreRepo(store)
	contentRepo := content.NewStoreRepo(store)

	if _, err := Repos(ctx, userRepo, contentRepo); err != nil {
		t.Fatalf("Repos: %v", err)
	}
	notes, _ := contentRepo.List(ctx, content.KindNote, content.Filter{})
	if len(notes) != 3 || notes[0].Kind != content.KindNote {
		t.Fatalf("unexpected notes %+v", notes)
	}
	res, err := Repos(ctx, userRepo, contentRepo)
	if err != nil {
		t.Fatalf("Repos again: %v", err)
	}
	if res.Users || res.Papers || res.Notes {
		t.Fatalf("second run must be a no-op, got %+v", res)
	}
}

func TestFakeCreatesConsistentData(t *testing.T) {
	ctx := context.Background()
	store := record.NewMemoryStore()
	userRepo := users.NewStoreRepo(store)
	contentRepo := content.NewStoreRepo(store)

	n, err := Fake(ctx, userRepo, contentRepo, FakeOptions{Users: 4, Rand: rand.New(rand.NewSource(7))})
	if err != nil {
		t.Fatalf("Fake: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 users, got %d", n)
	}
	all, _ := userRepo.List(ctx)
	uploads := 0
	for _, u := range all {
		uploads += u.UploadsCount
	}
	papers, _ := contentRepo.List(ctx, content.KindPaper, content.Filter{})
	notes, _ := contentRepo.List(ctx, content.KindNote, content.Filter{})
	if uploads != len(papers)+len(notes) {
		t.Fatalf("uploads %d do not match items %d", uploads, len(papers)+len(notes))
	}
}
