package arenas

//go:generate mockgen -destination=mock/mock_repository.go -package=mockarenas -source=repository.go

import (
	"context"

	"github.com/KirkDiggler/cduello/internal/entities"
)

// Repository defines the interface for arena storage
type Repository interface {
	// List returns every stored arena
	List(ctx context.Context) ([]*entities.Arena, error)

	// Get retrieves an arena by ID
	Get(ctx context.Context, id string) (*entities.Arena, error)

	// Save inserts or replaces an arena
	Save(ctx context.Context, arena *entities.Arena) error

	// Delete removes an arena
	Delete(ctx context.Context, id string) error
}
