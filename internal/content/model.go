package content

import (
	"strings"
	"time"
)

// Kind selects the paper or note collection. Both share one record shape.
type Kind string

const (
	KindPaper Kind = "paper"
	KindNote  Kind = "note"
)

// Kinds lists every content kind in display order.
var Kinds = []Kind{KindPaper, KindNote}

// ParseKind accepts singular or plural names.
func ParseKind(raw string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paper", "papers":
		return KindPaper, true
	case "note", "notes":
		return KindNote, true
	default:
		return "", false
	}
}

// Plural is the collection name and the URL segment.
func (k Kind) Plural() string {
	return string(k) + "s"
}

type Item struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Department  string    `json:"department"`
	Section     string    `json:"section"`
	Year        string    `json:"year,omitempty"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description,omitempty"`
	Excerpt     string    `json:"excerpt,omitempty"`
	FileURL     string    `json:"fileUrl,omitempty"`
	StorageKey  string    `json:"storageKey,omitempty"`
	FileName    string    `json:"fileName,omitempty"`
	MimeType    string    `json:"mimeType,omitempty"`
	SizeBytes   int64     `json:"sizeBytes,omitempty"`
	UploaderID  string    `json:"uploaderId"`
	Downloads   int       `json:"downloads"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Listing is an item joined with its uploader's display name at read time.
type Listing struct {
	Item
	UploaderName string `json:"uploaderName"`
}

type SortOrder string

const (
	SortRecent  SortOrder = "recent"
	SortPopular SortOrder = "popular"
	SortTitle   SortOrder = "title"
)

// ParseSort falls back to recent for anything unrecognised.
func ParseSort(raw string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case SortPopular:
		return SortPopular
	case SortTitle:
		return SortTitle
	default:
		return SortRecent
	}
}

// Filter narrows a listing. Empty fields match everything; an Offset with
// no Limit disables pagination.
type Filter struct {
	Department string
	Subject    string
	Section    string
	Sort       SortOrder
	Limit      int
	Offset     int
}

type Scope string

const (
	ScopeBoth   Scope = "both"
	ScopePapers Scope = "papers"
	ScopeNotes  Scope = "notes"
)

func ParseScope(raw string) Scope {
	switch Scope(strings.ToLower(strings.TrimSpace(raw))) {
	case ScopePapers, "paper":
		return ScopePapers
	case ScopeNotes, "note":
		return ScopeNotes
	default:
		return ScopeBoth
	}
}

// DefaultSearchLimit caps each kind in a search result.
const DefaultSearchLimit = 20

type SearchFilter struct {
	Scope      Scope
	Department string
	Section    string
	Sort       SortOrder
	Limit      int
}

type SearchResult struct {
	Papers []Listing `json:"papers"`
	Notes  []Listing `json:"notes"`
}

// CreateInput is what an uploader supplies. File fields are filled in by
// Upload when the request carries a file.
type CreateInput struct {
	Kind        Kind
	Title       string
	Subject     string
	Department  string
	Section     string
	Year        string
	Description string
	FileURL     string
	UploaderID  string

	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	Excerpt    string
}

// buildTags returns [section, year, subject] without blanks.
func buildTags(section, year, subject string) []string {
	tags := make([]string, 0, 3)
	for _, t := range []string{section, year, subject} {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
