package users

import "time"

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User is the persisted account record. PasswordHash is kept in storage but
// never leaves the service; clients get a Profile.
type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	Department         string    `json:"department"`
	Section            string    `json:"section"`
	UploadsCount       int       `json:"uploadsCount"`
	DownloadsCount     int       `json:"downloadsCount"`
	StarredDepartments []string  `json:"starredDepartments"`
	StarredPapers      []string  `json:"starredPapers"`
	StarredNotes       []string  `json:"starredNotes"`
	PasswordHash       string    `json:"passwordHash,omitempty"`
	PictureURL         string    `json:"pictureUrl,omitempty"`
	Provider           string    `json:"provider,omitempty"`
	Version            int64     `json:"version"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Score is the single points formula: ten per upload, two per download.
func Score(uploads, downloads int) int {
	return uploads*10 + downloads*2
}

// Points returns the user's derived score.
func (u User) Points() int {
	return Score(u.UploadsCount, u.DownloadsCount)
}

// Patch is a shallow partial update. Nil fields are left alone and set
// slices replace the stored ones.
type Patch struct {
	Name               *string
	Department         *string
	Section            *string
	PictureURL         *string
	StarredDepartments *[]string
	StarredPapers      *[]string
	StarredNotes       *[]string
}

// Apply merges p into u.
func (p Patch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Department != nil {
		u.Department = *p.Department
	}
	if p.Section != nil {
		u.Section = *p.Section
	}
	if p.PictureURL != nil {
		u.PictureURL = *p.PictureURL
	}
	if p.StarredDepartments != nil {
		u.StarredDepartments = cloneIDs(*p.StarredDepartments)
	}
	if p.StarredPapers != nil {
		u.StarredPapers = cloneIDs(*p.StarredPapers)
	}
	if p.StarredNotes != nil {
		u.StarredNotes = cloneIDs(*p.StarredNotes)
	}
}

// Session is one login. Several may be live for the same user; each holds a
// snapshot of the user that is refreshed whenever the user changes.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
