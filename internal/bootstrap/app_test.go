package bootstrap_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"papershare-backend/internal/bootstrap"
	"papershare-backend/internal/shared/auth"
	"papershare-backend/internal/shared/config"
)

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

func newApp(t *testing.T, seed bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		Env:             "dev",
		StoreBackend:    "memory",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		SeedOnStart:     seed,
		MaxUploadBytes:  1 << 20,
		JWTSecret:       "test-secret",
		SessionTTL:      time.Hour,
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	t.Cleanup(app.Close)
	return app.Router
}

func do(t *testing.T, r http.Handler, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	return do(t, r, method, path, token, body, "application/json")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func register(t *testing.T, r http.Handler, email, name string) string {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "correct-horse", "name": name,
		"department": "computational", "section": "UG",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d %s", email, rec.Code, rec.Body.String())
	}
	var res struct {
		Token string `json:"token"`
	}
	decode(t, rec, &res)
	if res.Token == "" {
		t.Fatalf("register %s: empty token", email)
	}
	return res.Token
}

func TestUploadDownloadStarScenario(t *testing.T) {
	r := newApp(t, false)
	alice := register(t, r, "alice@example.com", "Alice")

	// Upload a paper as a multipart form.
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range map[string]string{
		"title": "Midterm", "courseCode": "CS301", "department": "computational",
		"section": "UG", "year": "2023",
	} {
		_ = w.WriteField(k, v)
	}
	fw, err := w.CreateFormFile("file", "midterm.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte("Question 1: prove Dijkstra correct"))
	_ = w.Close()

	rec := do(t, r, http.MethodPost, "/api/v1/papers", alice, body, w.FormDataContentType())
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var paper struct {
		ID        string   `json:"id"`
		Subject   string   `json:"subject"`
		Tags      []string `json:"tags"`
		Downloads int      `json:"downloads"`
	}
	decode(t, rec, &paper)
	if paper.ID == "" || paper.Subject != "CS301" || paper.Downloads != 0 || len(paper.Tags) != 3 {
		t.Fatalf("unexpected paper %+v", paper)
	}

	var me struct {
		Score int `json:"score"`
		Rank  int `json:"rank"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/v1/me", alice, nil), &me)
	if me.Score != 10 || me.Rank != 1 {
		t.Fatalf("expected alice at 10 points rank 1, got %+v", me)
	}

	// A second user downloads the file.
	bob := register(t, r, "bob@example.com", "Bob")
	rec = do(t, r, http.MethodPost, "/api/v1/papers/"+paper.ID+"/download", bob, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "Question 1: prove Dijkstra correct" || rec.Header().Get("X-Download-Count") != "1" {
		t.Fatalf("unexpected download %q count=%s", rec.Body.String(), rec.Header().Get("X-Download-Count"))
	}
	rec = do(t, r, http.MethodPost, "/api/v1/papers/missing/download", bob, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing paper, got %d", rec.Code)
	}

	var listing struct {
		Downloads    int    `json:"downloads"`
		UploaderName string `json:"uploaderName"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/v1/papers/"+paper.ID, "", nil), &listing)
	if listing.Downloads != 1 || listing.UploaderName != "Alice" {
		t.Fatalf("unexpected listing %+v", listing)
	}

	var board struct {
		Items []struct {
			Rank  int `json:"rank"`
			Score int `json:"score"`
			User  struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"items"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/v1/leaderboard", "", nil), &board)
	if len(board.Items) != 2 || board.Items[0].User.Name != "Alice" || board.Items[1].Score != 2 {
		t.Fatalf("unexpected leaderboard %+v", board.Items)
	}

	// Star and unstar.
	var toggled struct {
		Starred bool `json:"starred"`
	}
	decode(t, doJSON(t, r, http.MethodPost, "/api/v1/stars", alice, map[string]string{"kind": "paper", "itemId": paper.ID}), &toggled)
	if !toggled.Starred {
		t.Fatalf("expected starred")
	}
	var starred struct {
		Papers []struct {
			ID string `json:"id"`
		} `json:"papers"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/v1/me/starred", alice, nil), &starred)
	if len(starred.Papers) != 1 || starred.Papers[0].ID != paper.ID {
		t.Fatalf("unexpected starred %+v", starred)
	}
	decode(t, doJSON(t, r, http.MethodPost, "/api/v1/stars", alice, map[string]string{"kind": "paper", "itemId": paper.ID}), &toggled)
	if toggled.Starred {
		t.Fatalf("expected unstarred")
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/v1/me/starred", alice, nil), &starred)
	if len(starred.Papers) != 0 {
		t.Fatalf("expected no starred papers after unstar, got %+v", starred)
	}
	var profile struct {
		User struct {
			StarredPapers []string `json:"starredPapers"`
		} `json:"user"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/v1/me", alice, nil), &profile)
	if profile.User.StarredPapers == nil || len(profile.User.StarredPapers) != 0 {
		t.Fatalf("expected empty starredPapers, got %v", profile.User.StarredPapers)
	}
	rec = doJSON(t, r, http.MethodPost, "/api/v1/stars", alice, map[string]string{"kind": "paper", "itemId": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 starring a missing paper, got %d", rec.Code)
	}

	var search struct {
		Papers []any `json:"papers"`
		Notes  []any `json:"notes"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/v1/search?q=DIJKSTRA", "", nil), &search)
	if len(search.Papers) != 1 || len(search.Notes) != 0 {
		t.Fatalf("expected extracted text to be searchable, got %+v", search)
	}

	var dept struct {
		PaperCount int `json:"paperCount"`
		NoteCount  int `json:"noteCount"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/v1/departments/computational", "", nil), &dept)
	if dept.PaperCount != 1 || dept.NoteCount != 0 {
		t.Fatalf("unexpected department counts %+v", dept)
	}

	// Logging out clears only that session.
	if rec := doJSON(t, r, http.MethodPost, "/api/v1/auth/logout", bob, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodGet, "/api/v1/me", bob, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodGet, "/api/v1/me", alice, nil); rec.Code != http.StatusOK {
		t.Fatalf("alice session must survive bob's logout, got %d", rec.Code)
	}
}

func TestAnonymousWritesAreRejected(t *testing.T) {
	r := newApp(t, false)
	if rec := doJSON(t, r, http.MethodGet, "/api/v1/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	rec := doJSON(t, r, http.MethodPost, "/api/v1/notes", "", map[string]string{"title": "x"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodPost, "/api/v1/stars", "", map[string]string{"kind": "paper", "itemId": "1"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSeededBackendServesFixtures(t *testing.T) {
	r := newApp(t, true)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "JOHN@example.com", "password": "papershare",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	var papers struct {
		Items []struct {
			ID           string `json:"id"`
			Downloads    int    `json:"downloads"`
			UploaderName string `json:"uploaderName"`
		} `json:"items"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/v1/papers?sort=popular", "", nil), &papers)
	if len(papers.Items) != 3 || papers.Items[0].ID != "3" || papers.Items[0].UploaderName != "John Doe" {
		t.Fatalf("unexpected papers %+v", papers.Items)
	}

	var notes struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/v1/notes?department=computational", "", nil), &notes)
	if len(notes.Items) != 1 || notes.Items[0].ID != "1" {
		t.Fatalf("unexpected notes %+v", notes.Items)
	}

	var board struct {
		Items []struct {
			Score int `json:"score"`
			User  struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"items"`
	}
	decode(t, doJSON(t, r, http.MethodGet, "/api/v1/leaderboard?limit=1", "", nil), &board)
	// Jane: 22*10 + 38*2 = 296, John: 15*10 + 45*2 = 240.
	if len(board.Items) != 1 || board.Items[0].User.ID != "2" || board.Items[0].Score != 296 {
		t.Fatalf("unexpected leaderboard %+v", board.Items)
	}
}
