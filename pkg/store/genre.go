package store

import (
	"context"

	"github.com/sonarhq/sonar/pkg/sonar"
)

func genreTable(kind sonar.Kind) (table, column string) {
	if kind == sonar.KindAlbum {
		return "album_genre", "album"
	}
	return "artist_genre", "artist"
}

func genresGet(ctx context.Context, db DBTX, owner sonar.ID) (sonar.Genres, error) {
	table, column := genreTable(owner.Kind())
	rows, err := db.QueryContext(ctx,
		`SELECT genre FROM `+table+` WHERE `+column+` = ? ORDER BY genre ASC`, owner.Ident())
	if err != nil {
		return nil, dbErr("list genres", err)
	}
	defer rows.Close()

	var genres sonar.Genres
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, dbErr("scan genre", err)
		}
		genres = append(genres, sonar.Genre(g))
	}
	return genres, dbErr("list genres", rows.Err())
}

func genresSet(ctx context.Context, db DBTX, owner sonar.ID, genres sonar.Genres) error {
	table, column := genreTable(owner.Kind())
	if _, err := db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE `+column+` = ?`, owner.Ident()); err != nil {
		return dbErr("clear genres", err)
	}
	for _, g := range genres.Sorted() {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+table+` (`+column+`, genre) VALUES (?, ?)`,
			owner.Ident(), g.String()); err != nil {
			return dbErr("set genre", err)
		}
	}
	return nil
}

func genresUpdate(ctx context.Context, db DBTX, owner sonar.ID, updates []sonar.GenreUpdate) error {
	table, column := genreTable(owner.Kind())
	for _, u := range updates {
		switch u.Action {
		case sonar.GenreSet:
			if _, err := db.ExecContext(ctx,
				`INSERT OR IGNORE INTO `+table+` (`+column+`, genre) VALUES (?, ?)`,
				owner.Ident(), u.Genre.String()); err != nil {
				return dbErr("set genre", err)
			}
		case sonar.GenreUnset:
			if _, err := db.ExecContext(ctx,
				`DELETE FROM `+table+` WHERE `+column+` = ? AND genre = ?`,
				owner.Ident(), u.Genre.String()); err != nil {
				return dbErr("unset genre", err)
			}
		}
	}
	return nil
}
