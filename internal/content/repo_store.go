package content

import (
	"context"

	"papershare-backend/internal/shared/storage/record"
)

// StoreRepo keeps each kind as one collection in a record store.
type StoreRepo struct {
	Store record.Store
}

func NewStoreRepo(store record.Store) *StoreRepo {
	return &StoreRepo{Store: store}
}

func (r *StoreRepo) load(ctx context.Context, kind Kind) []Item {
	items := record.Load[Item](ctx, r.Store, kind.Plural())
	for i := range items {
		items[i].Kind = kind
	}
	return items
}

func (r *StoreRepo) List(ctx context.Context, kind Kind, f Filter) ([]Item, error) {
	return filterItems(r.load(ctx, kind), f), nil
}

func (r *StoreRepo) Get(ctx context.Context, kind Kind, id string) (Item, error) {
	for _, it := range r.load(ctx, kind) {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, ErrNotFound
}

func (r *StoreRepo) Create(ctx context.Context, item Item) error {
	return record.Mutate(ctx, r.Store, item.Kind.Plural(), func(items []Item) ([]Item, error) {
		return append(items, item), nil
	})
}

func (r *StoreRepo) IncrementDownloads(ctx context.Context, kind Kind, id string) (Item, error) {
	var updated Item
	err := record.Mutate(ctx, r.Store, kind.Plural(), func(items []Item) ([]Item, error) {
		for i := range items {
			if items[i].ID == id {
				items[i].Downloads++
				updated = items[i]
				updated.Kind = kind
				return items, nil
			}
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return Item{}, err
	}
	return updated, nil
}

func (r *StoreRepo) CountByDepartment(ctx context.Context, kind Kind) (map[string]int, error) {
	counts := map[string]int{}
	for _, it := range r.load(ctx, kind) {
		counts[it.Department]++
	}
	return counts, nil
}

var _ Repo = (*StoreRepo)(nil)
