package content

import (
	"sort"
	"strings"
)

// matches applies the equality filters. A section matches either the
// section field or any tag.
func matches(it Item, f Filter) bool {
	if f.Department != "" && it.Department != f.Department {
		return false
	}
	if f.Subject != "" && it.Subject != f.Subject {
		return false
	}
	if f.Section != "" && it.Section != f.Section {
		found := false
		for _, tag := range it.Tags {
			if tag == f.Section {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func filterItems(items []Item, f Filter) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if matches(it, f) {
			out = append(out, it)
		}
	}
	return out
}

// matchesQuery is a case-insensitive substring match over the searchable
// text. An empty query matches everything.
func matchesQuery(it Item, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	haystack := strings.ToLower(strings.Join([]string{it.Title, it.Subject, it.Description, it.Excerpt}, " "))
	return strings.Contains(haystack, q)
}

// sortItems orders items in place. Every order is stable so ties keep
// collection order.
func sortItems(items []Item, order SortOrder) {
	switch order {
	case SortPopular:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Downloads > items[j].Downloads
		})
	case SortTitle:
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Title) < strings.ToLower(items[j].Title)
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})
	}
}

func paginate(items []Item, limit, offset int) []Item {
	if limit <= 0 {
		return items
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []Item{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
