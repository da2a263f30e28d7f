package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sonarhq/sonar/pkg/sonar"
)

type artistRow struct {
	id          int64
	name        string
	coverArt    sql.NullInt64
	albumCount  int64
	listenCount int64
}

const artistCols = `id, name, cover_art, album_count, listen_count`

func scanArtistRow(row interface{ Scan(...any) error }) (artistRow, error) {
	var r artistRow
	err := row.Scan(&r.id, &r.name, &r.coverArt, &r.albumCount, &r.listenCount)
	return r, err
}

func (r artistRow) load(ctx context.Context, db DBTX) (sonar.Artist, error) {
	id := sonar.ArtistID(r.id)
	genres, err := genresGet(ctx, db, id.ID())
	if err != nil {
		return sonar.Artist{}, err
	}
	props, err := PropertiesGet(ctx, db, id.ID())
	if err != nil {
		return sonar.Artist{}, err
	}
	artist := sonar.Artist{
		ID:          id,
		Name:        r.name,
		AlbumCount:  uint32(r.albumCount),
		ListenCount: uint32(r.listenCount),
		Genres:      genres,
		Properties:  props,
	}
	if r.coverArt.Valid {
		cover := sonar.ImageID(r.coverArt.Int64)
		artist.CoverArt = &cover
	}
	return artist, nil
}

// ArtistList returns artists ordered by ascending id.
func ArtistList(ctx context.Context, db DBTX, params sonar.ListParams) ([]sonar.Artist, error) {
	limit, offset := listLimits(params)
	rows, err := db.QueryContext(ctx,
		`SELECT `+artistCols+` FROM artist_view ORDER BY id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, dbErr("list artists", err)
	}
	defer rows.Close()

	var views []artistRow
	for rows.Next() {
		r, err := scanArtistRow(rows)
		if err != nil {
			return nil, dbErr("scan artist", err)
		}
		views = append(views, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list artists", err)
	}

	artists := make([]sonar.Artist, 0, len(views))
	for _, v := range views {
		artist, err := v.load(ctx, db)
		if err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}
	return artists, nil
}

// ArtistIDs returns every artist id.
func ArtistIDs(ctx context.Context, db DBTX) ([]sonar.ArtistID, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM artist ORDER BY id ASC`)
	if err != nil {
		return nil, dbErr("list artist ids", err)
	}
	defer rows.Close()

	var ids []sonar.ArtistID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dbErr("scan artist id", err)
		}
		ids = append(ids, sonar.ArtistID(id))
	}
	return ids, dbErr("list artist ids", rows.Err())
}

// ArtistGet returns one artist or NotFound.
func ArtistGet(ctx context.Context, db DBTX, id sonar.ArtistID) (sonar.Artist, error) {
	r, err := scanArtistRow(db.QueryRowContext(ctx,
		`SELECT `+artistCols+` FROM artist_view WHERE id = ?`, int64(id)))
	if err != nil {
		return sonar.Artist{}, getErr("artist", id, err)
	}
	return r.load(ctx, db)
}

// ArtistGetBulk resolves a list of artist ids in order.
func ArtistGetBulk(ctx context.Context, db DBTX, ids []sonar.ArtistID) ([]sonar.Artist, error) {
	artists := make([]sonar.Artist, 0, len(ids))
	for _, id := range ids {
		artist, err := ArtistGet(ctx, db, id)
		if err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}
	return artists, nil
}

// ArtistCreate inserts a new artist with its genres and properties.
func ArtistCreate(ctx context.Context, db DBTX, create sonar.ArtistCreate) (sonar.Artist, error) {
	if create.Name == "" {
		return sonar.Artist{}, sonar.NewError(sonar.ErrInvalid, "artist name is empty")
	}
	var coverArt any
	if create.CoverArt != nil {
		coverArt = int64(*create.CoverArt)
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO artist (name, cover_art) VALUES (?, ?)`, create.Name, coverArt)
	if err != nil {
		return sonar.Artist{}, dbErr("create artist", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return sonar.Artist{}, dbErr("create artist", err)
	}
	id := sonar.ArtistID(rowID)
	if err := genresSet(ctx, db, id.ID(), create.Genres); err != nil {
		return sonar.Artist{}, err
	}
	if err := PropertiesSet(ctx, db, id.ID(), create.Properties); err != nil {
		return sonar.Artist{}, err
	}
	return ArtistGet(ctx, db, id)
}

// ArtistUpdate applies a partial mutation and returns the new state.
func ArtistUpdate(ctx context.Context, db DBTX, id sonar.ArtistID, update sonar.ArtistUpdate) (sonar.Artist, error) {
	if update.Name.Action == sonar.SetValue {
		if update.Name.Value == "" {
			return sonar.Artist{}, sonar.NewError(sonar.ErrInvalid, "artist name is empty")
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE artist SET name = ? WHERE id = ?`, update.Name.Value, int64(id)); err != nil {
			return sonar.Artist{}, dbErr("update artist", err)
		}
	}
	switch update.CoverArt.Action {
	case sonar.SetValue:
		if _, err := db.ExecContext(ctx,
			`UPDATE artist SET cover_art = ? WHERE id = ?`, int64(update.CoverArt.Value), int64(id)); err != nil {
			return sonar.Artist{}, dbErr("update artist", err)
		}
	case sonar.UnsetValue:
		if _, err := db.ExecContext(ctx,
			`UPDATE artist SET cover_art = NULL WHERE id = ?`, int64(id)); err != nil {
			return sonar.Artist{}, dbErr("update artist", err)
		}
	}
	if err := genresUpdate(ctx, db, id.ID(), update.Genres); err != nil {
		return sonar.Artist{}, err
	}
	if err := PropertiesUpdate(ctx, db, id.ID(), update.Properties); err != nil {
		return sonar.Artist{}, err
	}
	return ArtistGet(ctx, db, id)
}

// ArtistDelete removes the artist, its albums and tracks (cascading),
// and its attached properties.
func ArtistDelete(ctx context.Context, db DBTX, id sonar.ArtistID) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM artist WHERE id = ?`, int64(id)); err != nil {
		return dbErr("delete artist", err)
	}
	return PropertiesClear(ctx, db, id.ID())
}

// FindOrCreateArtist returns the artist with the given name, creating
// it from create when absent. Imports rely on this for idempotence.
func FindOrCreateArtist(ctx context.Context, db DBTX, name string, create sonar.ArtistCreate) (sonar.Artist, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM artist WHERE name = ?`, name).Scan(&id)
	switch {
	case err == nil:
		return ArtistGet(ctx, db, sonar.ArtistID(id))
	case errors.Is(err, sql.ErrNoRows):
		create.Name = name
		return ArtistCreate(ctx, db, create)
	default:
		return sonar.Artist{}, dbErr("find artist", err)
	}
}
