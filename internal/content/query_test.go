package content

import (
	"testing"
	"time"
)

func fixtureItems() []Item {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []Item{
		{ID: "a", Title: "beta", Department: "computational", Section: "UG", Tags: []string{"UG", "2023", "CS301"}, Downloads: 5, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "b", Title: "Alpha", Department: "business", Section: "PG", Tags: []string{"PG", "MBA502"}, Downloads: 9, CreatedAt: base.Add(5 * time.Hour)},
		{ID: "c", Title: "gamma", Department: "computational", Section: "", Tags: []string{"UG", "CS401"}, Downloads: 5, CreatedAt: base.Add(1 * time.Hour)},
		{ID: "d", Title: "alpha", Department: "commerce", Section: "UG", Tags: []string{"UG"}, Downloads: 5, CreatedAt: base.Add(3 * time.Hour)},
	}
}

func ids(items []Item) string {
	out := ""
	for _, it := range items {
		out += it.ID
	}
	return out
}

func TestFilterByDepartment(t *testing.T) {
	got := filterItems(fixtureItems(), Filter{Department: "computational"})
	for _, it := range got {
		if it.Department != "computational" {
			t.Fatalf("unexpected department %q", it.Department)
		}
	}
	if ids(got) != "ac" {
		t.Fatalf("expected a,c got %s", ids(got))
	}
}

func TestFilterSectionMatchesTags(t *testing.T) {
	got := filterItems(fixtureItems(), Filter{Section: "UG"})
	if ids(got) != "acd" {
		t.Fatalf("expected a,c,d got %s", ids(got))
	}
}

func TestSortRecentIsNonIncreasing(t *testing.T) {
	items := fixtureItems()
	sortItems(items, SortRecent)
	for i := 1; i < len(items); i++ {
		if items[i].CreatedAt.After(items[i-1].CreatedAt) {
			t.Fatalf("recent order broken at %d: %s", i, ids(items))
		}
	}
}

func TestSortPopularIsStable(t *testing.T) {
	items := fixtureItems()
	sortItems(items, SortPopular)
	if ids(items) != "bacd" {
		t.Fatalf("expected ties in collection order, got %s", ids(items))
	}
}

func TestSortTitleIgnoresCase(t *testing.T) {
	items := fixtureItems()
	sortItems(items, SortTitle)
	if ids(items) != "bdac" {
		t.Fatalf("expected b,d,a,c got %s", ids(items))
	}
}

func TestPaginate(t *testing.T) {
	items := fixtureItems()
	if got := paginate(items, 2, 1); ids(got) != "bc" {
		t.Fatalf("expected b,c got %s", ids(got))
	}
	if got := paginate(items, 0, 3); len(got) != 4 {
		t.Fatalf("offset without limit must not paginate, got %d", len(got))
	}
	if got := paginate(items, 2, 10); len(got) != 0 {
		t.Fatalf("expected empty page, got %d", len(got))
	}
}

func TestMatchesQuery(t *testing.T) {
	it := Item{Title: "Midterm", Subject: "CS301", Excerpt: "Dijkstra shortest paths"}
	for _, q := range []string{"", "midterm", "cs30", "DIJKSTRA"} {
		if !matchesQuery(it, q) {
			t.Fatalf("expected %q to match", q)
		}
	}
	if matchesQuery(it, "biology") {
		t.Fatalf("unexpected match")
	}
}

func TestBuildTagsDropsBlanks(t *testing.T) {
	got := buildTags("UG", "", "CS301")
	if len(got) != 2 || got[0] != "UG" || got[1] != "CS301" {
		t.Fatalf("unexpected tags %v", got)
	}
}
