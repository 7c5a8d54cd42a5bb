package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/elevana/core"
)

// StoreOptions configures a Store.
type StoreOptions[T any] struct {
	ID   func(T) int64
	List func(ctx context.Context) ([]T, error)
	// Get fetches one entity when Select is asked for an id the cache does not hold. Optional.
	Get    func(ctx context.Context, id int64) (T, error)
	Logger core.Logger
}

// Store caches one server-owned collection, the selected entity and a loading flag.
//
// Cache contract: the backend is the source of truth. Every mutation calls the backend first
// and touches nothing locally when it fails. On success the collection is patched locally for
// immediate feedback, then reloaded in full; the reload result replaces the patch. Reloads are
// applied as they resolve, so when two overlap the last one to resolve wins; callers needing a
// strict order must serialize their calls. In-flight requests are never cancelled by
// unsubscribing.
//
// Subscribers are notified while the store is locked: they must not call back into the store
// synchronously.
type Store[T any] struct {
	opts StoreOptions[T]

	mu         sync.Mutex
	selectedID int64  // 0 = none
	selection  uint64 // bumped on every selection change
	inflight   int

	all      *Value[[]T]
	selected *Value[*T]
	loading  *Value[bool]
}

func NewStore[T any](opts StoreOptions[T]) *Store[T] {
	return &Store[T]{
		opts:     opts,
		all:      NewValue([]T{}),
		selected: NewValue[*T](nil),
		loading:  NewValue(false),
	}
}

// All returns the cached collection. Every read gets its own copy, so editing it
// leaves the cache untouched.
func (s *Store[T]) All() Observable[[]T] { return sliceView[T]{s.all} }

func (s *Store[T]) Selected() Observable[*T]  { return s.selected }
func (s *Store[T]) Loading() Observable[bool] { return s.loading }

func (s *Store[T]) beginLocked() {
	s.inflight++
	if s.inflight == 1 {
		s.loading.Set(true)
	}
}

func (s *Store[T]) endLocked() {
	s.inflight--
	if s.inflight == 0 {
		s.loading.Set(false)
	}
}

func (s *Store[T]) find(items []T, id int64) (T, bool) {
	for _, item := range items {
		if s.opts.ID(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// publishLocked replaces the collection and re-points the selection at the fresh element,
// clearing it when the selected entity is gone.
func (s *Store[T]) publishLocked(items []T) {
	s.all.Set(items)
	if s.selectedID == 0 {
		s.selected.Set(nil)
		return
	}
	if item, ok := s.find(items, s.selectedID); ok {
		s.selected.Set(&item)
		return
	}
	s.selectedID = 0
	s.selection++
	s.selected.Set(nil)
}

// Reload fetches the whole collection and replaces the cached one. On failure the cache is left as is.
func (s *Store[T]) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.beginLocked()
	s.mu.Unlock()

	items, err := s.opts.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked()
	if err != nil {
		return err
	}
	s.publishLocked(append(make([]T, 0, len(items)), items...))
	return nil
}

// Select selects the entity with id; 0 clears the selection.
// Unknown ids are fetched with the Get option, if any; a failed fetch clears the selection and is returned.
func (s *Store[T]) Select(ctx context.Context, id int64) error {
	if id == 0 {
		s.ClearSelection()
		return nil
	}

	s.mu.Lock()
	s.selection++
	if item, ok := s.find(s.all.Get(), id); ok {
		s.selectedID = id
		s.selected.Set(&item)
		s.mu.Unlock()
		return nil
	}
	if s.opts.Get == nil {
		s.selectedID = 0
		s.selected.Set(nil)
		s.mu.Unlock()
		return ErrNotFound
	}
	selection := s.selection
	s.beginLocked()
	s.mu.Unlock()

	item, err := s.opts.Get(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked()
	if selection != s.selection {
		// superseded by a later selection
		return err
	}
	if err != nil {
		s.selectedID = 0
		s.selected.Set(nil)
		return err
	}
	s.selectedID = id
	s.selected.Set(&item)
	return nil
}

func (s *Store[T]) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = 0
	s.selection++
	s.selected.Set(nil)
}

// SelectedID returns the id of the selected entity, 0 if none.
func (s *Store[T]) SelectedID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Create runs create and adds its result to the collection before reloading.
func (s *Store[T]) Create(ctx context.Context, create func(context.Context) (T, error)) (T, error) {
	item, err := create(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	s.patch(func(items []T) []T { return upsert(items, item, s.opts.ID) })
	return item, s.resync(ctx)
}

// Update runs update and swaps its result in the collection, and the selection, before reloading.
func (s *Store[T]) Update(ctx context.Context, update func(context.Context) (T, error)) (T, error) {
	item, err := update(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	s.patch(func(items []T) []T { return upsert(items, item, s.opts.ID) })
	return item, s.resync(ctx)
}

// Delete runs del and drops the entity with id, clearing it if selected, before reloading.
func (s *Store[T]) Delete(ctx context.Context, id int64, del func(context.Context) error) error {
	return s.Mutate(ctx, del, func(items []T) []T {
		return filter(items, func(item T) bool { return s.opts.ID(item) != id })
	})
}

// MutateChild runs call, a change to a child of the parent entity, then patches the parent
// with patch (optional) and reloads.
func (s *Store[T]) MutateChild(ctx context.Context, parentID int64, call func(context.Context) error, patch func(T) T) error {
	var patchAll func([]T) []T
	if patch != nil {
		patchAll = func(items []T) []T {
			for i, item := range items {
				if s.opts.ID(item) == parentID {
					items[i] = patch(item)
				}
			}
			return items
		}
	}
	return s.Mutate(ctx, call, patchAll)
}

// Mutate runs call, then applies patch (optional) to a copy of the collection and reloads.
// patch should only filter or rewrite known entities; the reload has the final say.
func (s *Store[T]) Mutate(ctx context.Context, call func(context.Context) error, patch func([]T) []T) error {
	if err := call(ctx); err != nil {
		return err
	}
	if patch != nil {
		s.patch(patch)
	}
	return s.resync(ctx)
}

func (s *Store[T]) patch(fn func([]T) []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.all.Get()
	s.publishLocked(fn(append(make([]T, 0, len(cur)), cur...)))
}

func (s *Store[T]) resync(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		if s.opts.Logger != nil {
			s.opts.Logger.Warn(fmt.Sprintf("client.Store: reload after mutation: %v", err), err)
		}
		return &ResyncError{Err: err}
	}
	return nil
}

func upsert[T any](items []T, item T, id func(T) int64) []T {
	for i := range items {
		if id(items[i]) == id(item) {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func filter[T any](items []T, keep func(T) bool) []T {
	res := items[:0]
	for _, item := range items {
		if keep(item) {
			res = append(res, item)
		}
	}
	return res
}
