package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"papershare-backend/internal/shared/auth"
	"papershare-backend/internal/shared/storage/record"
)

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

func newTestService(t *testing.T) (*Service, *StoreRepo) {
	t.Helper()
	store := record.NewMemoryStore()
	repo := NewStoreRepo(store)
	svc := NewService(repo, NewStoreSessionRepo(store), auth.NewTokens("test-secret", time.Hour), time.Hour)
	return svc, repo
}

func register(t *testing.T, svc *Service, email string) AuthResult {
	t.Helper()
	res, err := svc.Register(context.Background(), RegisterInput{
		Email:      email,
		Password:   "correct-horse",
		Name:       "Alice",
		Department: "computational",
		Section:    "UG",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return res
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	register(t, svc, "alice@example.com")

	_, err := svc.Register(ctx, RegisterInput{
		Email:      "  Alice@Example.com ",
		Password:   "another-pass",
		Name:       "Alice Two",
		Department: "business",
		Section:    "PG",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	all, _ := repo.List(ctx)
	if len(all) != 1 {
		t.Fatalf("expected one user, got %d", len(all))
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	cases := []RegisterInput{
		{Email: "bad", Password: "correct-horse", Name: "A", Department: "business", Section: "UG"},
		{Email: "a@example.com", Password: "short", Name: "A", Department: "business", Section: "UG"},
		{Email: "a@example.com", Password: "correct-horse", Name: "A", Department: "astrology", Section: "UG"},
		{Email: "a@example.com", Password: "correct-horse", Name: "A", Department: "business", Section: "MBA"},
	}
	for _, in := range cases {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
}

func TestLoginNormalizesEmail(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice@example.com")

	res, err := svc.Login(context.Background(), "ALICE@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" || res.User.Email != "alice@example.com" {
		t.Fatalf("unexpected login result %+v", res)
	}
	if _, err := svc.Login(context.Background(), "alice@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestUpdateRefreshesEverySession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first := register(t, svc, "alice@example.com")
	second, err := svc.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims1, _ := svc.Tokens.Verify(first.Token)
	claims2, _ := svc.Tokens.Verify(second.Token)
	if claims1.SessionID == claims2.SessionID {
		t.Fatalf("expected distinct sessions")
	}

	name := "Alice Renamed"
	if _, err := svc.Update(ctx, first.User.ID, Patch{Name: &name}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	for _, sid := range []string{claims1.SessionID, claims2.SessionID} {
		u, err := svc.GetSession(ctx, sid)
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if u.Name != name {
			t.Fatalf("expected refreshed snapshot, got %q", u.Name)
		}
		if u.PasswordHash != "" {
			t.Fatalf("session snapshot must not carry the password hash")
		}
	}

	if err := svc.Logout(ctx, claims1.SessionID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.GetSession(ctx, claims1.SessionID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after logout, got %v", err)
	}
	if _, err := svc.GetSession(ctx, claims2.SessionID); err != nil {
		t.Fatalf("expected other session to survive: %v", err)
	}
}

func TestUpdateReplacesSlicesAndBumpsVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	res := register(t, svc, "alice@example.com")

	papers := []string{"p1", "p2"}
	u, err := svc.Update(ctx, res.User.ID, Patch{StarredPapers: &papers})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	papers = []string{"p3"}
	u, err = svc.Update(ctx, res.User.ID, Patch{StarredPapers: &papers})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(u.StarredPapers) != 1 || u.StarredPapers[0] != "p3" {
		t.Fatalf("expected replaced slice, got %v", u.StarredPapers)
	}
	if u.Version != 3 {
		t.Fatalf("expected version 3, got %d", u.Version)
	}
	if u.Name != "Alice" {
		t.Fatalf("unset fields must be kept, got %q", u.Name)
	}
}

func TestUpdateMissingUser(t *testing.T) {
	svc, repo := newTestService(t)
	name := "ghost"
	if _, err := svc.Update(context.Background(), "missing", Patch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	all, _ := repo.List(context.Background())
	if len(all) != 0 {
		t.Fatalf("expected no users, got %d", len(all))
	}
}

func TestCountersAreAtomic(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	res := register(t, svc, "alice@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.AddUpload(ctx, res.User.ID)
			_ = svc.AddDownload(ctx, res.User.ID)
		}()
	}
	wg.Wait()

	u, err := svc.GetByID(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.UploadsCount != 20 || u.DownloadsCount != 20 {
		t.Fatalf("expected 20/20, got %d/%d", u.UploadsCount, u.DownloadsCount)
	}
	if u.Points() != 240 {
		t.Fatalf("expected 240 points, got %d", u.Points())
	}
}

func TestExpiredSessionIsRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }
	sessions := svc.Sessions.(*StoreSessionRepo)
	sessions.Now = func() time.Time { return now }

	res := register(t, svc, "alice@example.com")
	claims, err := svc.Tokens.Verify(res.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := svc.SessionUserID(ctx, claims.SessionID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestLoginWithGoogleCreatesOnFirstLogin(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	profile := GoogleProfile{Email: "Bob@Example.com", Name: "Bob", Picture: "https://example.com/bob.png"}

	first, err := svc.LoginWithGoogle(ctx, profile)
	if err != nil {
		t.Fatalf("LoginWithGoogle: %v", err)
	}
	second, err := svc.LoginWithGoogle(ctx, profile)
	if err != nil {
		t.Fatalf("LoginWithGoogle again: %v", err)
	}
	if first.User.ID != second.User.ID {
		t.Fatalf("expected same account on repeat login")
	}
	all, _ := repo.List(ctx)
	if len(all) != 1 || all[0].Provider != ProviderGoogle || all[0].Email != "bob@example.com" {
		t.Fatalf("unexpected users %+v", all)
	}
}

func TestScoreFormula(t *testing.T) {
	if got := Score(15, 45); got != 240 {
		t.Fatalf("expected 240, got %d", got)
	}
	if got := Score(0, 0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestUpdateNormalizesSection(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	res := register(t, svc, "alice@example.com")

	section := " pg "
	updated, err := svc.Update(ctx, res.User.ID, Patch{Section: &section})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Section != "PG" {
		t.Fatalf("expected section PG, got %q", updated.Section)
	}

	bad := "mba"
	if _, err := svc.Update(ctx, res.User.ID, Patch{Section: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
