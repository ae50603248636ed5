package leaderboard

import (
	"context"
	"sort"

	"papershare-backend/internal/departments"
	"papershare-backend/internal/users"
)

// UnknownDepartment labels users whose department is not in the catalog.
const UnknownDepartment = "Unknown Department"

// UserLister returns all users in collection order.
type UserLister interface {
	List(ctx context.Context) ([]users.User, error)
}

// Member is the public part of a ranked user.
type Member struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Department     string `json:"department"`
	Section        string `json:"section"`
	UploadsCount   int    `json:"uploadsCount"`
	DownloadsCount int    `json:"downloadsCount"`
	PictureURL     string `json:"pictureUrl,omitempty"`
}

type Entry struct {
	Rank           int    `json:"rank"`
	User           Member `json:"user"`
	Score          int    `json:"score"`
	DepartmentName string `json:"departmentName"`
}

type Service struct {
	Users UserLister
}

func NewService(u UserLister) *Service {
	return &Service{Users: u}
}

// Rank orders every user by score, highest first. Ties keep collection order.
func (s *Service) Rank(ctx context.Context) ([]Entry, error) {
	all, err := s.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(all))
	for _, u := range all {
		entries = append(entries, Entry{
			User: Member{
				ID:             u.ID,
				Name:           u.Name,
				Department:     u.Department,
				Section:        u.Section,
				UploadsCount:   u.UploadsCount,
				DownloadsCount: u.DownloadsCount,
				PictureURL:     u.PictureURL,
			},
			Score:          users.Score(u.UploadsCount, u.DownloadsCount),
			DepartmentName: departments.Name(u.Department, UnknownDepartment),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// RankOf returns the 1-based position of userID, or false if the user is
// not ranked.
func (s *Service) RankOf(ctx context.Context, userID string) (int, bool, error) {
	entries, err := s.Rank(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, e := range entries {
		if e.User.ID == userID {
			return e.Rank, true, nil
		}
	}
	return 0, false, nil
}
