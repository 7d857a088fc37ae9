package arenas

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/KirkDiggler/cduello/internal/repositories"
)

// inMemoryRepository implements Repository using in-memory storage
type inMemoryRepository struct {
	mu     sync.RWMutex
	arenas map[string]*entities.Arena
}

// NewInMemoryRepository creates a new in-memory arena repository
func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		arenas: make(map[string]*entities.Arena),
	}
}

func (r *inMemoryRepository) List(ctx context.Context) ([]*entities.Arena, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Arena, 0, len(r.arenas))
	for _, a := range r.arenas {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *inMemoryRepository) Get(ctx context.Context, id string) (*entities.Arena, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.arenas[id]
	if !ok {
		return nil, repositories.NewRecordNotFoundError(id)
	}
	return a.Clone(), nil
}

func (r *inMemoryRepository) Save(ctx context.Context, arena *entities.Arena) error {
	if arena == nil {
		return fmt.Errorf("arena cannot be nil")
	}
	if arena.ID == "" {
		return repositories.NewInvalidRecordError("arena ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.arenas[arena.ID] = arena.Clone()
	return nil
}

func (r *inMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.arenas, id)
	return nil
}
