package keyvalue

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/dukex/facilitator/pkg/persistence"
	"github.com/dukex/facilitator/pkg/storage"
)

// namespace is a flat JSON list of entities stored under one key. Every
// mutation rewrites the whole list.
type namespace[T any] struct {
	store  storage.Store
	key    string
	entity string
	id     func(*T) string
	mu     *sync.Mutex // serializes read-modify-write within this process
}

func newNamespace[T any](store storage.Store, key, entity string, id func(*T) string) namespace[T] {
	return namespace[T]{
		store:  store,
		key:    key,
		entity: entity,
		id:     id,
		mu:     &sync.Mutex{},
	}
}

func (n namespace[T]) load(ctx context.Context) ([]*T, error) {
	data, ok, err := n.store.Get(ctx, n.key)
	if err != nil {
		return nil, persistence.NewEntityError("GetAll", n.entity, "", err)
	}

	if !ok || len(data) == 0 {
		return []*T{}, nil
	}

	var items []*T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, persistence.NewEntityError("GetAll", n.entity, "", fmt.Errorf("%w: %w", persistence.ErrCorruptNamespace, err))
	}

	return slices.DeleteFunc(items, func(item *T) bool { return item == nil }), nil
}

func (n namespace[T]) write(ctx context.Context, op, id string, items []*T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return persistence.NewEntityError(op, n.entity, id, err)
	}

	if err := n.store.Set(ctx, n.key, data); err != nil {
		return persistence.NewEntityError(op, n.entity, id, err)
	}

	return nil
}

func (n namespace[T]) index(items []*T, id string) int {
	return slices.IndexFunc(items, func(item *T) bool { return n.id(item) == id })
}

func (n namespace[T]) get(ctx context.Context, id string) (*T, error) {
	items, err := n.load(ctx)
	if err != nil {
		return nil, err
	}

	i := n.index(items, id)
	if i < 0 {
		return nil, nil
	}

	return items[i], nil
}

// update loads the list, lets fn change it and writes it back when fn
// reports a change.
func (n namespace[T]) update(ctx context.Context, op, id string, fn func(items []*T) ([]*T, bool)) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	items, err := n.load(ctx)
	if err != nil {
		return err
	}

	items, changed := fn(items)
	if !changed {
		return nil
	}

	return n.write(ctx, op, id, items)
}

func (n namespace[T]) delete(ctx context.Context, id string) error {
	return n.update(ctx, "Delete", id, func(items []*T) ([]*T, bool) {
		i := n.index(items, id)
		if i < 0 {
			return items, false
		}

		return slices.Delete(items, i, i+1), true
	})
}

func getJSON[T any](ctx context.Context, store storage.Store, key, entity, id string) (*T, error) {
	data, ok, err := store.Get(ctx, key)
	if err != nil {
		return nil, persistence.NewEntityError("GetByID", entity, id, err)
	}

	if !ok {
		return nil, nil
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, persistence.NewEntityError("GetByID", entity, id, fmt.Errorf("%w: %w", persistence.ErrCorruptNamespace, err))
	}

	return &value, nil
}

func setJSON(ctx context.Context, store storage.Store, key, entity, id string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return persistence.NewEntityError("Save", entity, id, err)
	}

	if err := store.Set(ctx, key, data); err != nil {
		return persistence.NewEntityError("Save", entity, id, err)
	}

	return nil
}
