package position

import (
	"context"
	"sort"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
)

// Repository persists positions. At most one active (PENDING or OPEN) row
// exists per PositionKey.
type Repository interface {
	Insert(ctx context.Context, pos *types.Position) error
	Update(ctx context.Context, pos *types.Position) error
	FindActive(ctx context.Context, key types.PositionKey) (optional.Option[*types.Position], error)
	ListActive(ctx context.Context) ([]*types.Position, error)
	ListAll(ctx context.Context) ([]*types.Position, error)
	// LastFinishedWithReason returns the most recently finished position of key with reason.
	LastFinishedWithReason(ctx context.Context, key types.PositionKey, reason types.FinishReason) (optional.Option[*types.Position], error)
}

// MemoryRepository keeps positions in process memory. Positions are copied on
// the way in and out so callers never share state with the store.
type MemoryRepository struct {
	mu        sync.RWMutex
	positions map[string]types.Position
	order     []string
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{positions: make(map[string]types.Position)}
}

func (r *MemoryRepository) Insert(_ context.Context, pos *types.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.positions[pos.ID]; exists {
		return errors.Newf(errors.ErrCodeInvalidParameter, "position %s already exists", pos.ID)
	}

	if pos.IsActive() {
		for _, id := range r.order {
			other := r.positions[id]
			if other.IsActive() && other.Key() == pos.Key() {
				return errors.Newf(errors.ErrCodeInvalidParameter, "active position already exists for %s", pos.Key())
			}
		}
	}

	r.positions[pos.ID] = *pos
	r.order = append(r.order, pos.ID)

	return nil
}

func (r *MemoryRepository) Update(_ context.Context, pos *types.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.positions[pos.ID]; !exists {
		return errors.Newf(errors.ErrCodePositionNotFound, "position %s not found", pos.ID)
	}

	r.positions[pos.ID] = *pos

	return nil
}

func (r *MemoryRepository) FindActive(_ context.Context, key types.PositionKey) (optional.Option[*types.Position], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		pos := r.positions[id]
		if pos.IsActive() && pos.Key() == key {
			return optional.Some(&pos), nil
		}
	}

	return optional.None[*types.Position](), nil
}

func (r *MemoryRepository) ListActive(_ context.Context) ([]*types.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*types.Position

	for _, id := range r.order {
		pos := r.positions[id]
		if pos.IsActive() {
			out = append(out, &pos)
		}
	}

	return out, nil
}

func (r *MemoryRepository) ListAll(_ context.Context) ([]*types.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.Position, 0, len(r.order))
	for _, id := range r.order {
		pos := r.positions[id]
		out = append(out, &pos)
	}

	return out, nil
}

func (r *MemoryRepository) LastFinishedWithReason(_ context.Context, key types.PositionKey, reason types.FinishReason) (optional.Option[*types.Position], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []types.Position

	for _, id := range r.order {
		pos := r.positions[id]
		if pos.Key() == key && pos.FinishReason == reason && pos.FinishedAt.IsSome() {
			matches = append(matches, pos)
		}
	}

	if len(matches) == 0 {
		return optional.None[*types.Position](), nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].FinishedAt.Unwrap().Before(matches[j].FinishedAt.Unwrap())
	})

	last := matches[len(matches)-1]

	return optional.Some(&last), nil
}

var _ Repository = (*MemoryRepository)(nil)
