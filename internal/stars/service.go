package stars

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"papershare-backend/internal/content"
	"papershare-backend/internal/departments"
	"papershare-backend/internal/shared/metrics"
	"papershare-backend/internal/shared/telemetry"
	"papershare-backend/internal/users"
)

var (
	ErrInvalidKind = errors.New("invalid star kind")
	ErrNotFound    = errors.New("starred item not found")
)

// Kind names what is being starred.
type Kind string

const (
	KindDepartment Kind = "department"
	KindPaper      Kind = "paper"
	KindNote       Kind = "note"
)

func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindDepartment:
		return KindDepartment, nil
	case KindPaper:
		return KindPaper, nil
	case KindNote:
		return KindNote, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
}

// UserStore is the part of the user service stars need.
type UserStore interface {
	GetByID(ctx context.Context, id string) (users.User, error)
	Mutate(ctx context.Context, id string, fn users.MutateFunc) (users.User, error)
}

// Catalog resolves papers and notes.
type Catalog interface {
	Exists(ctx context.Context, kind content.Kind, id string) (bool, error)
	ByIDs(ctx context.Context, kind content.Kind, ids []string) ([]content.Listing, error)
}

type Service struct {
	Users   UserStore
	Content Catalog
	Metrics metrics.Recorder
}

func NewService(u UserStore, c Catalog) *Service {
	return &Service{Users: u, Content: c, Metrics: metrics.Nop{}}
}

// Starred is everything a user has starred that still exists.
type Starred struct {
	Departments []departments.Department `json:"departments"`
	Papers      []content.Listing        `json:"papers"`
	Notes       []content.Listing        `json:"notes"`
}

func (s *Service) exists(ctx context.Context, kind Kind, id string) (bool, error) {
	switch kind {
	case KindDepartment:
		return departments.Known(id), nil
	case KindPaper:
		return s.Content.Exists(ctx, content.KindPaper, id)
	default:
		return s.Content.Exists(ctx, content.KindNote, id)
	}
}

func starList(u *users.User, kind Kind) *[]string {
	switch kind {
	case KindDepartment:
		return &u.StarredDepartments
	case KindPaper:
		return &u.StarredPapers
	default:
		return &u.StarredNotes
	}
}

// Toggle flips membership of itemID in the user's starred list for kind and
// returns the new membership. Adding requires the item to exist; removing
// always succeeds.
func (s *Service) Toggle(ctx context.Context, userID, itemID string, kind Kind) (bool, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return false, err
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return false, ErrNotFound
	}

	// Resolved outside Mutate: the callback may rerun and must not read
	// other keys while the user record is held.
	found, lookupErr := s.exists(ctx, kind, itemID)

	var starred bool
	_, err := s.Users.Mutate(ctx, userID, func(u *users.User) error {
		list := starList(u, kind)
		next := make([]string, 0, len(*list)+1)
		removed := false
		for _, id := range *list {
			if id == itemID {
				removed = true
				continue
			}
			next = append(next, id)
		}
		if !removed {
			if lookupErr != nil {
				return lookupErr
			}
			if !found {
				return ErrNotFound
			}
			next = append(next, itemID)
		}
		*list = next
		starred = !removed
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			telemetry.Warn("stars.item_missing", map[string]any{"user_id": userID, "item_id": itemID, "kind": string(kind)})
		}
		return false, err
	}

	if s.Metrics != nil {
		s.Metrics.RecordStarToggle(string(kind), starred)
	}
	return starred, nil
}

// Starred lists the user's stars. Ids whose item no longer exists are dropped.
func (s *Service) Starred(ctx context.Context, userID string) (Starred, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return Starred{}, err
	}
	out := Starred{Departments: []departments.Department{}}
	for _, id := range u.StarredDepartments {
		if d, ok := departments.Lookup(id); ok {
			out.Departments = append(out.Departments, d)
		}
	}
	if out.Papers, err = s.Content.ByIDs(ctx, content.KindPaper, u.StarredPapers); err != nil {
		return Starred{}, err
	}
	if out.Notes, err = s.Content.ByIDs(ctx, content.KindNote, u.StarredNotes); err != nil {
		return Starred{}, err
	}
	return out, nil
}
