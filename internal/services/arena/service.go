// Package arena keeps the authoritative set of duel arenas in memory and
// persists changes in the background.
package arena

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/KirkDiggler/cduello/internal/entities"
	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/KirkDiggler/cduello/internal/repositories/arenas"
	"github.com/KirkDiggler/cduello/internal/scheduler"
	"github.com/sirupsen/logrus"
)

// Repository is an alias for the arena repository interface
type Repository = arenas.Repository

// Service defines the arena registry
type Service interface {
	// Load replaces the registry with the persisted arenas
	Load(ctx context.Context) error

	// List returns every arena ordered by id
	List() []*entities.Arena

	// ListEnabled returns arenas that are enabled and have both corners set
	ListEnabled() []*entities.Arena

	Get(id string) (*entities.Arena, error)
	IDs() []string

	Create(id, name string, pos1, pos2 *entities.Location) (*entities.Arena, error)
	Delete(id string) error
	Rename(id, name string) error
	SetPos1(id string, loc entities.Location) error
	SetPos2(id string, loc entities.Location) error
	SetEnabled(id string, enabled bool) error

	// SelectPos1 and SelectPos2 remember corners an admin picked before create
	SelectPos1(adminID string, loc entities.Location)
	SelectPos2(adminID string, loc entities.Location)
	Selection(adminID string) (pos1, pos2 *entities.Location)

	// CreateFromSelection creates an arena from the admin's selected corners
	CreateFromSelection(adminID, id, name string) (*entities.Arena, error)

	// UsageEnabled reports whether duels are sent to arenas at all
	UsageEnabled() bool
	SetUsageEnabled(enabled bool)
}

type selection struct {
	pos1 *entities.Location
	pos2 *entities.Location
}

type service struct {
	repository Repository
	scheduler  scheduler.Scheduler
	logger     logrus.FieldLogger

	mu           sync.RWMutex
	arenas       map[string]*entities.Arena
	selections   map[string]*selection
	usageEnabled bool
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Repository   Repository          // Required
	Scheduler    scheduler.Scheduler // Required
	UsageEnabled bool
	Logger       logrus.FieldLogger // Optional
}

// NewService creates a new arena registry
func NewService(cfg *ServiceConfig) Service {
	if cfg == nil {
		panic("ServiceConfig cannot be nil")
	}
	if cfg.Repository == nil {
		panic("repository is required")
	}
	if cfg.Scheduler == nil {
		panic("scheduler is required")
	}

	svc := &service{
		repository:   cfg.Repository,
		scheduler:    cfg.Scheduler,
		logger:       cfg.Logger,
		arenas:       make(map[string]*entities.Arena),
		selections:   make(map[string]*selection),
		usageEnabled: cfg.UsageEnabled,
	}
	if svc.logger == nil {
		svc.logger = logrus.StandardLogger()
	}
	svc.logger = svc.logger.WithField("component", "arena")
	return svc
}

func (s *service) Load(ctx context.Context) error {
	list, err := s.repository.List(ctx)
	if err != nil {
		return duelerr.Wrap(err, "failed to load arenas")
	}

	loaded := make(map[string]*entities.Arena, len(list))
	for _, a := range list {
		if a == nil || a.ID == "" || a.World == "" {
			s.logger.WithField("arena", a).Error("Skipping malformed arena record")
			continue
		}
		loaded[a.ID] = a
	}

	s.mu.Lock()
	s.arenas = loaded
	s.mu.Unlock()

	s.logger.WithField("count", len(loaded)).Debug("Arenas loaded")
	return nil
}

func (s *service) List() []*entities.Arena {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Arena, 0, len(s.arenas))
	for _, a := range s.arenas {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *service) ListEnabled() []*entities.Arena {
	all := s.List()
	out := all[:0]
	for _, a := range all {
		if a.IsUsable() {
			out = append(out, a)
		}
	}
	return out
}

func (s *service) IDs() []string {
	list := s.List()
	ids := make([]string, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	return ids
}

func (s *service) Get(id string) (*entities.Arena, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.arenas[normalizeID(id)]
	if !ok {
		return nil, notFound(id)
	}
	return a.Clone(), nil
}

func (s *service) Create(id, name string, pos1, pos2 *entities.Location) (*entities.Arena, error) {
	id = normalizeID(id)
	if id == "" {
		return nil, duelerr.InvalidArgument("arena id is required").WithMessage("arena-create-usage")
	}
	if strings.TrimSpace(name) == "" {
		name = id
	}

	arena := &entities.Arena{ID: id, Name: name, Enabled: true}
	if pos1 != nil {
		p := *pos1
		arena.Pos1 = &p
		arena.World = p.World
	}
	if pos2 != nil {
		p := *pos2
		arena.Pos2 = &p
		if arena.World == "" {
			arena.World = p.World
		}
	}
	if arena.World == "" {
		return nil, duelerr.InvalidArgument("arena world is required").WithMessage("arena-positions-not-set")
	}

	s.mu.Lock()
	if _, exists := s.arenas[id]; exists {
		s.mu.Unlock()
		return nil, duelerr.AlreadyExistsf("arena %s already exists", id).
			WithMessage("arena-already-exists").
			WithMeta("arena", id)
	}
	s.arenas[id] = arena
	s.mu.Unlock()

	s.persist(arena.Clone())
	return arena.Clone(), nil
}

func (s *service) Delete(id string) error {
	id = normalizeID(id)

	s.mu.Lock()
	if _, ok := s.arenas[id]; !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	delete(s.arenas, id)
	s.mu.Unlock()

	s.scheduler.RunAsync(func(ctx context.Context) error {
		return s.repository.Delete(ctx, id)
	}, func(err error) {
		if err != nil {
			s.logger.WithError(err).WithField("arena", id).Error("Failed to delete arena")
		}
	})
	return nil
}

func (s *service) Rename(id, name string) error {
	if strings.TrimSpace(name) == "" {
		return duelerr.InvalidArgument("arena name is required").WithMessage("arena-rename-usage")
	}
	return s.update(id, func(a *entities.Arena) { a.Name = name })
}

func (s *service) SetPos1(id string, loc entities.Location) error {
	return s.update(id, func(a *entities.Arena) {
		a.Pos1 = &loc
		if a.World == "" {
			a.World = loc.World
		}
	})
}

func (s *service) SetPos2(id string, loc entities.Location) error {
	return s.update(id, func(a *entities.Arena) {
		a.Pos2 = &loc
		if a.World == "" {
			a.World = loc.World
		}
	})
}

func (s *service) SetEnabled(id string, enabled bool) error {
	return s.update(id, func(a *entities.Arena) { a.Enabled = enabled })
}

func (s *service) SelectPos1(adminID string, loc entities.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectionFor(adminID).pos1 = &loc
}

func (s *service) SelectPos2(adminID string, loc entities.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectionFor(adminID).pos2 = &loc
}

func (s *service) Selection(adminID string) (*entities.Location, *entities.Location) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sel, ok := s.selections[adminID]
	if !ok {
		return nil, nil
	}
	return copyLocation(sel.pos1), copyLocation(sel.pos2)
}

func (s *service) CreateFromSelection(adminID, id, name string) (*entities.Arena, error) {
	pos1, pos2 := s.Selection(adminID)
	if pos1 == nil || pos2 == nil {
		return nil, duelerr.FailedPrecondition("both arena positions must be selected").
			WithMessage("arena-positions-not-set")
	}

	arena, err := s.Create(id, name, pos1, pos2)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.selections, adminID)
	s.mu.Unlock()
	return arena, nil
}

func (s *service) UsageEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usageEnabled
}

func (s *service) SetUsageEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usageEnabled = enabled
}

func (s *service) update(id string, mutate func(a *entities.Arena)) error {
	id = normalizeID(id)

	s.mu.Lock()
	a, ok := s.arenas[id]
	if !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	mutate(a)
	snapshot := a.Clone()
	s.mu.Unlock()

	s.persist(snapshot)
	return nil
}

// persist saves on the worker pool; the in-memory map stays authoritative
func (s *service) persist(arena *entities.Arena) {
	s.scheduler.RunAsync(func(ctx context.Context) error {
		return s.repository.Save(ctx, arena)
	}, func(err error) {
		if err != nil {
			s.logger.WithError(err).WithField("arena", arena.ID).Error("Failed to save arena")
		}
	})
}

// selectionFor must be called with mu held
func (s *service) selectionFor(adminID string) *selection {
	sel, ok := s.selections[adminID]
	if !ok {
		sel = &selection{}
		s.selections[adminID] = sel
	}
	return sel
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func notFound(id string) error {
	return duelerr.NotFoundf("arena %s not found", id).
		WithMessage("arena-not-found").
		WithMeta("arena", id)
}

func copyLocation(l *entities.Location) *entities.Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
