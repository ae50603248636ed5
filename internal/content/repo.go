package content

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("content not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Repo persists papers and notes. List applies the equality filters of f and
// returns items in collection order; sorting and paging happen in Service.
type Repo interface {
	List(ctx context.Context, kind Kind, f Filter) ([]Item, error)
	Get(ctx context.Context, kind Kind, id string) (Item, error)
	Create(ctx context.Context, item Item) error
	// IncrementDownloads adds exactly one to the item's counter.
	IncrementDownloads(ctx context.Context, kind Kind, id string) (Item, error)
	CountByDepartment(ctx context.Context, kind Kind) (map[string]int, error)
}
