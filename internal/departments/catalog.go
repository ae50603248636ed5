// Package departments holds the fixed campus department catalog. Paper and
// note counts are derived from stored content when a department is read.
package departments

import "errors"

var ErrNotFound = errors.New("department not found")

type Department struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var catalog = []Department{
	{
		ID:          "commerce",
		Name:        "School of Commerce, Accounting & Finance",
		Description: "Business, Commerce, Accounting, Finance, and related subjects",
	},
	{
		ID:          "humanities",
		Name:        "School of Humanities & Social Sciences",
		Description: "Literature, History, Psychology, Sociology, and Social Sciences",
	},
	{
		ID:          "business",
		Name:        "School of Business & Management",
		Description: "MBA, Management, Marketing, HR, and Business Studies",
	},
	{
		ID:          "biological",
		Name:        "School of Biological & Forensic Science",
		Description: "Biology, Biotechnology, Forensic Science, and Life Sciences",
	},
	{
		ID:          "computational",
		Name:        "School of Computational & Physical Sciences",
		Description: "Computer Science, Physics, Mathematics, and Engineering",
	},
}

// All returns the catalog in display order.
func All() []Department {
	out := make([]Department, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the department with id.
func Lookup(id string) (Department, bool) {
	for _, d := range catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Department{}, false
}

// Known reports whether id is in the catalog.
func Known(id string) bool {
	_, ok := Lookup(id)
	return ok
}

// Name returns the display name for id, or fallback when id is unknown.
func Name(id, fallback string) string {
	if d, ok := Lookup(id); ok {
		return d.Name
	}
	return fallback
}
