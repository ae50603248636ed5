package users

import "time"

// Profile is the client view of a user.
type Profile struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	Department         string    `json:"department"`
	Section            string    `json:"section"`
	UploadsCount       int       `json:"uploadsCount"`
	DownloadsCount     int       `json:"downloadsCount"`
	Points             int       `json:"points"`
	StarredDepartments []string  `json:"starredDepartments"`
	StarredPapers      []string  `json:"starredPapers"`
	StarredNotes       []string  `json:"starredNotes"`
	PictureURL         string    `json:"pictureUrl,omitempty"`
	Provider           string    `json:"provider,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

func ToProfile(u User) Profile {
	return Profile{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Department:         u.Department,
		Section:            u.Section,
		UploadsCount:       u.UploadsCount,
		DownloadsCount:     u.DownloadsCount,
		Points:             u.Points(),
		StarredDepartments: nonNil(u.StarredDepartments),
		StarredPapers:      nonNil(u.StarredPapers),
		StarredNotes:       nonNil(u.StarredNotes),
		PictureURL:         u.PictureURL,
		Provider:           u.Provider,
		CreatedAt:          u.CreatedAt,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateRequest struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
	Section    *string `json:"section"`
	PictureURL *string `json:"pictureUrl"`
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
