package arenas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/KirkDiggler/cduello/internal/repositories"
)

const arenaColumns = "id, name, world, pos1_x, pos1_y, pos1_z, pos2_x, pos2_y, pos2_z, enabled"

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open database with the arenas table
func NewSQLiteRepository(db *sql.DB) Repository {
	if db == nil {
		panic("sql db is required")
	}
	return &sqliteRepository{db: db}
}

// List returns all arenas ordered by id
func (r *sqliteRepository) List(ctx context.Context) ([]*entities.Arena, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, "SELECT "+arenaColumns+" FROM arenas ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list arenas: %w", err)
	}
	defer rows.Close()

	var out []*entities.Arena
	for rows.Next() {
		arena, err := scanArena(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, arena)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate arenas: %w", err)
	}
	return out, nil
}

// Get retrieves a single arena
func (r *sqliteRepository) Get(ctx context.Context, id string) (*entities.Arena, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, "SELECT "+arenaColumns+" FROM arenas WHERE id = ?", id)
	arena, err := scanArena(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.NewRecordNotFoundError(id)
	}
	return arena, err
}

// Save upserts the arena with INSERT OR REPLACE
func (r *sqliteRepository) Save(ctx context.Context, arena *entities.Arena) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if arena == nil {
		return fmt.Errorf("arena cannot be nil")
	}
	if arena.ID == "" {
		return repositories.NewInvalidRecordError("arena ID cannot be empty")
	}

	p1x, p1y, p1z := corner(arena.Pos1)
	p2x, p2y, p2z := corner(arena.Pos2)
	enabled := 0
	if arena.Enabled {
		enabled = 1
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO arenas ("+arenaColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		arena.ID, arena.Name, arena.World, p1x, p1y, p1z, p2x, p2y, p2z, enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to save arena %s: %w", arena.ID, err)
	}
	return nil
}

// Delete removes an arena. Deleting a missing arena is not an error.
func (r *sqliteRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM arenas WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete arena %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArena(s scanner) (*entities.Arena, error) {
	var (
		arena         entities.Arena
		p1x, p1y, p1z sql.NullFloat64
		p2x, p2y, p2z sql.NullFloat64
		enabled       sql.NullInt64
	)
	if err := s.Scan(&arena.ID, &arena.Name, &arena.World, &p1x, &p1y, &p1z, &p2x, &p2y, &p2z, &enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan arena: %w", err)
	}

	arena.Pos1 = toLocation(arena.World, p1x, p1y, p1z)
	arena.Pos2 = toLocation(arena.World, p2x, p2y, p2z)
	arena.Enabled = !enabled.Valid || enabled.Int64 != 0
	return &arena, nil
}

func toLocation(world string, x, y, z sql.NullFloat64) *entities.Location {
	if !x.Valid || !y.Valid || !z.Valid {
		return nil
	}
	return &entities.Location{World: world, X: x.Float64, Y: y.Float64, Z: z.Float64}
}

func corner(loc *entities.Location) (x, y, z sql.NullFloat64) {
	if loc == nil {
		return
	}
	return sql.NullFloat64{Float64: loc.X, Valid: true},
		sql.NullFloat64{Float64: loc.Y, Valid: true},
		sql.NullFloat64{Float64: loc.Z, Valid: true}
}
