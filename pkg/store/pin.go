package store

import (
	"context"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// Pins are user marks that act as garbage-collection roots.

// PinList returns one user's pins.
func PinList(ctx context.Context, db DBTX, user sonar.UserID) ([]sonar.ID, error) {
	return pinQuery(ctx, db, `SELECT namespace, identifier FROM pin WHERE user = ?`, int64(user))
}

// PinListAll returns every pin of every user.
func PinListAll(ctx context.Context, db DBTX) ([]sonar.ID, error) {
	return pinQuery(ctx, db, `SELECT namespace, identifier FROM pin`)
}

func pinQuery(ctx context.Context, db DBTX, query string, args ...any) ([]sonar.ID, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("list pins", err)
	}
	defer rows.Close()

	var ids []sonar.ID
	for rows.Next() {
		var namespace, identifier uint32
		if err := rows.Scan(&namespace, &identifier); err != nil {
			return nil, dbErr("scan pin", err)
		}
		id, err := sonar.IDFromParts(namespace, identifier)
		if err != nil {
			return nil, sonar.WrapInternal("pin row", err)
		}
		ids = append(ids, id)
	}
	return ids, dbErr("list pins", rows.Err())
}

// PinSet marks ids as pinned for the user. Already-pinned ids are
// kept.
func PinSet(ctx context.Context, db DBTX, user sonar.UserID, ids ...sonar.ID) error {
	for _, id := range ids {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO pin (user, namespace, identifier) VALUES (?, ?, ?)`,
			int64(user), uint32(id.Kind()), id.Ident()); err != nil {
			return dbErr("set pin", err)
		}
	}
	return nil
}

// PinUnset clears pins. Unpinning an absent id succeeds.
func PinUnset(ctx context.Context, db DBTX, user sonar.UserID, ids ...sonar.ID) error {
	for _, id := range ids {
		if _, err := db.ExecContext(ctx,
			`DELETE FROM pin WHERE user = ? AND namespace = ? AND identifier = ?`,
			int64(user), uint32(id.Kind()), id.Ident()); err != nil {
			return dbErr("unset pin", err)
		}
	}
	return nil
}
