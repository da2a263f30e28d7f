package store

import (
	"context"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// FavoriteList returns a user's favorites.
func FavoriteList(ctx context.Context, db DBTX, user sonar.UserID) ([]sonar.Favorite, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT namespace, identifier, created_at FROM favorite WHERE user = ?`, int64(user))
	if err != nil {
		return nil, dbErr("list favorites", err)
	}
	defer rows.Close()

	var out []sonar.Favorite
	for rows.Next() {
		var namespace, identifier uint32
		var createdAt int64
		if err := rows.Scan(&namespace, &identifier, &createdAt); err != nil {
			return nil, dbErr("scan favorite", err)
		}
		id, err := sonar.IDFromParts(namespace, identifier)
		if err != nil {
			return nil, sonar.WrapInternal("favorite row", err)
		}
		out = append(out, sonar.Favorite{
			ID:         id,
			FavoriteAt: sonar.TimestampFromSeconds(uint64(createdAt)),
		})
	}
	return out, dbErr("list favorites", rows.Err())
}

// FavoritePut marks an artist, album or track as a favorite. Other
// kinds are invalid.
func FavoritePut(ctx context.Context, db DBTX, user sonar.UserID, id sonar.ID) error {
	switch id.Kind() {
	case sonar.KindArtist, sonar.KindAlbum, sonar.KindTrack:
	default:
		return sonar.Errorf(sonar.ErrInvalid, "cannot favorite %s", id.Kind())
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorite (user, namespace, identifier) VALUES (?, ?, ?)`,
		int64(user), uint32(id.Kind()), id.Ident())
	return dbErr("put favorite", err)
}

// FavoriteRemove clears a favorite mark. Removing an absent mark
// succeeds.
func FavoriteRemove(ctx context.Context, db DBTX, user sonar.UserID, id sonar.ID) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM favorite WHERE user = ? AND namespace = ? AND identifier = ?`,
		int64(user), uint32(id.Kind()), id.Ident())
	return dbErr("remove favorite", err)
}
