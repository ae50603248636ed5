package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"papershare-backend/internal/departments"
	"papershare-backend/internal/shared/auth"
	"papershare-backend/internal/shared/metrics"
	"papershare-backend/internal/shared/telemetry"
	"papershare-backend/internal/shared/util"
)

var validate = validator.New()

type RegisterInput struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Name       string `json:"name" validate:"required,max=120"`
	Department string `json:"department" validate:"required"`
	Section    string `json:"section" validate:"required,oneof=UG PG"`
}

// GoogleProfile is the identity returned by Google sign-in.
type GoogleProfile struct {
	Email   string
	Name    string
	Picture string
}

// AuthResult is a signed token for a freshly created session.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Profile   `json:"user"`
}

type Service struct {
	Repo     Repo
	Sessions SessionRepo
	Tokens   *auth.Tokens
	Metrics  metrics.Recorder
	TTL      time.Duration
	Now      func() time.Time
}

func NewService(repo Repo, sessions SessionRepo, tokens *auth.Tokens, ttl time.Duration) *Service {
	return &Service{
		Repo:     repo,
		Sessions: sessions,
		Tokens:   tokens,
		Metrics:  metrics.Nop{},
		TTL:      ttl,
		Now:      time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) recorder() metrics.Recorder {
	if s.Metrics == nil {
		return metrics.Nop{}
	}
	return s.Metrics
}

// normalizeEmail makes lookups insensitive to casing and stray whitespace.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	e := verrs[0]
	field := strings.ToLower(e.Field()[:1]) + e.Field()[1:]
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + e.Param() + " characters"
	case "max":
		return field + " must be at most " + e.Param() + " characters"
	case "oneof":
		return field + " must be one of: " + e.Param()
	default:
		return field + " is invalid"
	}
}

// Register creates a password account and logs it in. A taken email
// returns ErrEmailTaken and leaves the collection unchanged.
func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = util.CleanText(in.Name)
	in.Department = strings.TrimSpace(in.Department)
	in.Section = strings.ToUpper(strings.TrimSpace(in.Section))
	if err := validate.Struct(in); err != nil {
		return AuthResult{}, invalid(validationMessage(err))
	}
	if !departments.Known(in.Department) {
		return AuthResult{}, invalid("department is not recognised")
	}

	if _, err := s.Repo.FindByEmail(ctx, in.Email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return AuthResult{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:                 uuid.NewString(),
		Email:              in.Email,
		Name:               in.Name,
		Department:         in.Department,
		Section:            in.Section,
		StarredDepartments: []string{},
		StarredPapers:      []string{},
		StarredNotes:       []string{},
		PasswordHash:       hash,
		Provider:           ProviderPassword,
		Version:            1,
		CreatedAt:          s.now(),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return AuthResult{}, err
	}
	s.recorder().RecordRegistration(ProviderPassword)
	telemetry.Info("users.registered", map[string]any{"user_id": user.ID, "provider": ProviderPassword})
	return s.startSession(ctx, user)
}

// Login checks the password and opens a new session.
func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.Repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.startSession(ctx, user)
}

// LoginWithGoogle signs in the account matching the Google email, creating
// it on first login.
func (s *Service) LoginWithGoogle(ctx context.Context, profile GoogleProfile) (AuthResult, error) {
	email := normalizeEmail(profile.Email)
	if email == "" {
		return AuthResult{}, invalid("google profile has no email")
	}
	user, err := s.Repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if profile.Picture != "" && user.PictureURL != profile.Picture {
			picture := profile.Picture
			if updated, uerr := s.Update(ctx, user.ID, Patch{PictureURL: &picture}); uerr == nil {
				user = updated
			}
		}
	case errors.Is(err, ErrNotFound):
		name := util.CleanText(profile.Name)
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		user = User{
			ID:                 uuid.NewString(),
			Email:              email,
			Name:               name,
			StarredDepartments: []string{},
			StarredPapers:      []string{},
			StarredNotes:       []string{},
			PictureURL:         profile.Picture,
			Provider:           ProviderGoogle,
			Version:            1,
			CreatedAt:          s.now(),
		}
		if err := s.Repo.Create(ctx, user); err != nil {
			return AuthResult{}, err
		}
		s.recorder().RecordRegistration(ProviderGoogle)
		telemetry.Info("users.registered", map[string]any{"user_id": user.ID, "provider": ProviderGoogle})
	default:
		return AuthResult{}, err
	}
	return s.startSession(ctx, user)
}

func (s *Service) startSession(ctx context.Context, user User) (AuthResult, error) {
	if s.Tokens == nil || s.Sessions == nil {
		return AuthResult{}, errors.New("users service not configured for sessions")
	}
	now := s.now()
	snapshot := user
	snapshot.PasswordHash = ""
	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		User:      snapshot,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	}
	if s.TTL <= 0 {
		session.ExpiresAt = now.Add(7 * 24 * time.Hour)
	}
	if err := s.Sessions.Put(ctx, session); err != nil {
		return AuthResult{}, fmt.Errorf("store session: %w", err)
	}
	token, expiresAt, err := s.Tokens.Sign(user.ID, session.ID, user.Email, user.Name)
	if err != nil {
		return AuthResult{}, fmt.Errorf("sign token: %w", err)
	}
	return AuthResult{Token: token, ExpiresAt: expiresAt, User: ToProfile(user)}, nil
}

// Logout clears one session. Other sessions of the same user stay live.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrNoSession
	}
	return s.Sessions.Delete(ctx, sessionID)
}

// GetSession returns the user snapshot held by the session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (User, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return User{}, err
	}
	return session.User, nil
}

// SessionUserID resolves a session to its user id.
func (s *Service) SessionUserID(ctx context.Context, sessionID string) (string, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.Repo.FindByEmail(ctx, normalizeEmail(email))
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.Repo.List(ctx)
}

func (s *Service) NamesByID(ctx context.Context, ids []string) (map[string]string, error) {
	return s.Repo.NamesByID(ctx, ids)
}

// Update applies a shallow patch.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (User, error) {
	if patch.Section != nil {
		section := strings.ToUpper(strings.TrimSpace(*patch.Section))
		patch.Section = &section
	}
	if patch.Department != nil && *patch.Department != "" && !departments.Known(*patch.Department) {
		return User{}, invalid("department is not recognised")
	}
	if patch.Section != nil && *patch.Section != "UG" && *patch.Section != "PG" {
		return User{}, invalid("section must be one of: UG PG")
	}
	if patch.Name != nil {
		name := util.CleanText(*patch.Name)
		if name == "" {
			return User{}, invalid("name is required")
		}
		patch.Name = &name
	}
	return s.Mutate(ctx, id, func(u *User) error {
		patch.Apply(u)
		return nil
	})
}

// Mutate runs an atomic read-modify-write on one user and then refreshes the
// snapshot in every live session of that user.
func (s *Service) Mutate(ctx context.Context, id string, fn MutateFunc) (User, error) {
	updated, err := s.Repo.Update(ctx, id, fn)
	if err != nil {
		return User{}, err
	}
	if s.Sessions != nil {
		if err := s.Sessions.RefreshUser(ctx, updated); err != nil {
			telemetry.Warn("users.session_refresh_failed", map[string]any{"user_id": id, "error": err.Error()})
		}
	}
	return updated, nil
}

// AddUpload credits one upload to the user.
func (s *Service) AddUpload(ctx context.Context, id string) error {
	_, err := s.Mutate(ctx, id, func(u *User) error {
		u.UploadsCount++
		return nil
	})
	return err
}

// AddDownload credits one download to the user.
func (s *Service) AddDownload(ctx context.Context, id string) error {
	_, err := s.Mutate(ctx, id, func(u *User) error {
		u.DownloadsCount++
		return nil
	})
	return err
}
