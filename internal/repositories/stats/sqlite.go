package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/KirkDiggler/cduello/internal/entities"
	"github.com/KirkDiggler/cduello/internal/repositories"
	"github.com/KirkDiggler/cduello/internal/repositories/sqlite"
	"github.com/shopspring/decimal"
)

const statsColumns = "uuid, player_name, wins, losses, money_won, money_lost, last_updated"

var orderClauses = map[Order]string{
	OrderWins:     "wins DESC",
	OrderMoneyWon: "money_won DESC",
	OrderWinRatio: "CASE WHEN (wins + losses) = 0 THEN 0 ELSE CAST(wins AS REAL) / (wins + losses) END DESC",
}

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over the player_stats table
func NewSQLiteRepository(db *sql.DB) Repository {
	if db == nil {
		panic("sql db is required")
	}
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) Get(ctx context.Context, playerID string) (*entities.PlayerStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, "SELECT "+statsColumns+" FROM player_stats WHERE uuid = ?", playerID)
	stats, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.NewRecordNotFoundError(playerID)
	}
	return stats, err
}

// SaveAll writes every record in one transaction
func (r *sqliteRepository) SaveAll(ctx context.Context, records []*entities.PlayerStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin stats transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO player_stats ("+statsColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare stats upsert: %w", err)
	}
	defer stmt.Close()

	for _, s := range records {
		if s == nil || s.PlayerID == "" {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			s.PlayerID,
			s.PlayerName,
			s.Wins,
			s.Losses,
			s.MoneyWon.InexactFloat64(),
			s.MoneyLost.InexactFloat64(),
			sqlite.FormatTimestamp(s.LastUpdated),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to save stats for %s: %w", s.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stats: %w", err)
	}
	return nil
}

func (r *sqliteRepository) Top(ctx context.Context, order Order, limit int) ([]*entities.PlayerStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clause, ok := orderClauses[order]
	if !ok {
		return nil, repositories.NewInvalidRecordError(fmt.Sprintf("unknown order %q", order))
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+statsColumns+" FROM player_stats ORDER BY "+clause+", uuid ASC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top players: %w", err)
	}
	defer rows.Close()

	var out []*entities.PlayerStats
	for rows.Next() {
		s, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top players: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStats(s scanner) (*entities.PlayerStats, error) {
	var (
		stats     entities.PlayerStats
		name      sql.NullString
		moneyWon  float64
		moneyLost float64
		updated   any
	)
	err := s.Scan(&stats.PlayerID, &name, &stats.Wins, &stats.Losses, &moneyWon, &moneyLost, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan stats: %w", err)
	}

	stats.PlayerName = name.String
	stats.MoneyWon = decimal.NewFromFloat(moneyWon)
	stats.MoneyLost = decimal.NewFromFloat(moneyLost)
	if stats.LastUpdated, err = sqlite.ParseTimestamp(updated); err != nil {
		return nil, fmt.Errorf("failed to parse last_updated for %s: %w", stats.PlayerID, err)
	}
	return &stats, nil
}
