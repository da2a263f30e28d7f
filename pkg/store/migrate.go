package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

//go:embed migrations/000_init.sql
var migration000Init string

// Migration is one schema change unit. Content may contain a single
// "--@code" marker splitting a pre-SQL block from a post-SQL block;
// Hook runs between them. All three steps execute in one transaction.
type Migration struct {
	Name    string
	Content string
	Hook    func(ctx context.Context, tx DBTX) error
}

func migrations() []Migration {
	return []Migration{
		{Name: "000_init", Content: migration000Init},
	}
}

// Migrate brings the schema up to date. Each applied migration is
// recorded with its content; re-applying a migration whose content
// changed is a fatal drift error.
func (d *DB) Migrate(ctx context.Context) error {
	slog.Info("running migrations")
	for _, m := range migrations() {
		if err := d.applyMigration(ctx, m); err != nil {
			return err
		}
	}
	slog.Info("migrations complete")
	return nil
}

func (d *DB) applyMigration(ctx context.Context, m Migration) error {
	if _, err := d.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS migration (name TEXT PRIMARY KEY, content TEXT)`); err != nil {
		return dbErr("create migration table", err)
	}

	var existing string
	err := d.db.QueryRowContext(ctx, `SELECT content FROM migration WHERE name = ?`, m.Name).Scan(&existing)
	switch {
	case err == nil:
		if existing == m.Content {
			slog.Debug("migration already applied", "name", m.Name)
			return nil
		}
		return fmt.Errorf("migration %s already applied with different content", m.Name)
	case errors.Is(err, sql.ErrNoRows):
		// not applied yet
	default:
		return dbErr("read migration table", err)
	}

	slog.Info("applying migration", "name", m.Name)
	pre, post, _ := strings.Cut(m.Content, "--@code")

	return d.WithTx(ctx, func(tx DBTX) error {
		if strings.TrimSpace(pre) != "" {
			if _, err := tx.ExecContext(ctx, pre); err != nil {
				return dbErr("migration "+m.Name+" pre", err)
			}
		}
		if m.Hook != nil {
			if err := m.Hook(ctx, tx); err != nil {
				return fmt.Errorf("migration %s hook: %w", m.Name, err)
			}
		}
		if strings.TrimSpace(post) != "" {
			if _, err := tx.ExecContext(ctx, post); err != nil {
				return dbErr("migration "+m.Name+" post", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO migration (name, content) VALUES (?, ?)`, m.Name, m.Content); err != nil {
			return dbErr("record migration", err)
		}
		return nil
	})
}
