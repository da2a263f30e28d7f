package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sonarhq/sonar/pkg/sonar"
)

type albumRow struct {
	id          int64
	name        string
	artist      int64
	coverArt    sql.NullInt64
	releaseDate sql.NullInt64
	trackCount  int64
	listenCount int64
}

const albumCols = `id, name, artist, cover_art, release_date, track_count, listen_count`

func scanAlbumRow(row interface{ Scan(...any) error }) (albumRow, error) {
	var r albumRow
	err := row.Scan(&r.id, &r.name, &r.artist, &r.coverArt, &r.releaseDate, &r.trackCount, &r.listenCount)
	return r, err
}

func (r albumRow) load(ctx context.Context, db DBTX) (sonar.Album, error) {
	id := sonar.AlbumID(r.id)
	genres, err := genresGet(ctx, db, id.ID())
	if err != nil {
		return sonar.Album{}, err
	}
	props, err := PropertiesGet(ctx, db, id.ID())
	if err != nil {
		return sonar.Album{}, err
	}
	album := sonar.Album{
		ID:          id,
		Name:        r.name,
		Artist:      sonar.ArtistID(r.artist),
		TrackCount:  uint32(r.trackCount),
		ListenCount: uint32(r.listenCount),
		Genres:      genres,
		Properties:  props,
	}
	if r.coverArt.Valid {
		cover := sonar.ImageID(r.coverArt.Int64)
		album.CoverArt = &cover
	}
	if r.releaseDate.Valid {
		t := time.Unix(r.releaseDate.Int64, 0).UTC()
		album.ReleaseDate = &t
	}
	return album, nil
}

func albumRowsToAlbums(ctx context.Context, db DBTX, rows *sql.Rows) ([]sonar.Album, error) {
	defer rows.Close()
	var views []albumRow
	for rows.Next() {
		r, err := scanAlbumRow(rows)
		if err != nil {
			return nil, dbErr("scan album", err)
		}
		views = append(views, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list albums", err)
	}
	albums := make([]sonar.Album, 0, len(views))
	for _, v := range views {
		album, err := v.load(ctx, db)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	return albums, nil
}

// AlbumList returns albums ordered by ascending id.
func AlbumList(ctx context.Context, db DBTX, params sonar.ListParams) ([]sonar.Album, error) {
	limit, offset := listLimits(params)
	rows, err := db.QueryContext(ctx,
		`SELECT `+albumCols+` FROM album_view ORDER BY id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, dbErr("list albums", err)
	}
	return albumRowsToAlbums(ctx, db, rows)
}

// AlbumListByArtist returns one artist's albums ordered by id.
func AlbumListByArtist(ctx context.Context, db DBTX, artist sonar.ArtistID, params sonar.ListParams) ([]sonar.Album, error) {
	limit, offset := listLimits(params)
	rows, err := db.QueryContext(ctx,
		`SELECT `+albumCols+` FROM album_view WHERE artist = ? ORDER BY id ASC LIMIT ? OFFSET ?`,
		int64(artist), limit, offset)
	if err != nil {
		return nil, dbErr("list albums", err)
	}
	return albumRowsToAlbums(ctx, db, rows)
}

// AlbumArtistPairs returns every (album, artist) ownership edge.
func AlbumArtistPairs(ctx context.Context, db DBTX) (map[sonar.AlbumID]sonar.ArtistID, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, artist FROM album`)
	if err != nil {
		return nil, dbErr("list album pairs", err)
	}
	defer rows.Close()

	pairs := make(map[sonar.AlbumID]sonar.ArtistID)
	for rows.Next() {
		var album, artist int64
		if err := rows.Scan(&album, &artist); err != nil {
			return nil, dbErr("scan album pair", err)
		}
		pairs[sonar.AlbumID(album)] = sonar.ArtistID(artist)
	}
	return pairs, dbErr("list album pairs", rows.Err())
}

// AlbumGet returns one album or NotFound.
func AlbumGet(ctx context.Context, db DBTX, id sonar.AlbumID) (sonar.Album, error) {
	r, err := scanAlbumRow(db.QueryRowContext(ctx,
		`SELECT `+albumCols+` FROM album_view WHERE id = ?`, int64(id)))
	if err != nil {
		return sonar.Album{}, getErr("album", id, err)
	}
	return r.load(ctx, db)
}

// AlbumGetBulk resolves a list of album ids in order.
func AlbumGetBulk(ctx context.Context, db DBTX, ids []sonar.AlbumID) ([]sonar.Album, error) {
	albums := make([]sonar.Album, 0, len(ids))
	for _, id := range ids {
		album, err := AlbumGet(ctx, db, id)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	return albums, nil
}

// AlbumCreate inserts a new album. The referenced artist must exist.
func AlbumCreate(ctx context.Context, db DBTX, create sonar.AlbumCreate) (sonar.Album, error) {
	if create.Name == "" {
		return sonar.Album{}, sonar.NewError(sonar.ErrInvalid, "album name is empty")
	}
	if _, err := ArtistGet(ctx, db, create.Artist); err != nil {
		return sonar.Album{}, err
	}
	var coverArt, releaseDate any
	if create.CoverArt != nil {
		coverArt = int64(*create.CoverArt)
	}
	if create.ReleaseDate != nil {
		releaseDate = create.ReleaseDate.Unix()
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO album (name, artist, cover_art, release_date) VALUES (?, ?, ?, ?)`,
		create.Name, int64(create.Artist), coverArt, releaseDate)
	if err != nil {
		return sonar.Album{}, dbErr("create album", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return sonar.Album{}, dbErr("create album", err)
	}
	id := sonar.AlbumID(rowID)
	if err := genresSet(ctx, db, id.ID(), create.Genres); err != nil {
		return sonar.Album{}, err
	}
	if err := PropertiesSet(ctx, db, id.ID(), create.Properties); err != nil {
		return sonar.Album{}, err
	}
	return AlbumGet(ctx, db, id)
}

// AlbumUpdate applies a partial mutation and returns the new state.
func AlbumUpdate(ctx context.Context, db DBTX, id sonar.AlbumID, update sonar.AlbumUpdate) (sonar.Album, error) {
	if update.Name.Action == sonar.SetValue {
		if update.Name.Value == "" {
			return sonar.Album{}, sonar.NewError(sonar.ErrInvalid, "album name is empty")
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE album SET name = ? WHERE id = ?`, update.Name.Value, int64(id)); err != nil {
			return sonar.Album{}, dbErr("update album", err)
		}
	}
	if update.Artist.Action == sonar.SetValue {
		if _, err := ArtistGet(ctx, db, update.Artist.Value); err != nil {
			return sonar.Album{}, err
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE album SET artist = ? WHERE id = ?`, int64(update.Artist.Value), int64(id)); err != nil {
			return sonar.Album{}, dbErr("update album", err)
		}
	}
	switch update.CoverArt.Action {
	case sonar.SetValue:
		if _, err := db.ExecContext(ctx,
			`UPDATE album SET cover_art = ? WHERE id = ?`, int64(update.CoverArt.Value), int64(id)); err != nil {
			return sonar.Album{}, dbErr("update album", err)
		}
	case sonar.UnsetValue:
		if _, err := db.ExecContext(ctx,
			`UPDATE album SET cover_art = NULL WHERE id = ?`, int64(id)); err != nil {
			return sonar.Album{}, dbErr("update album", err)
		}
	}
	if err := genresUpdate(ctx, db, id.ID(), update.Genres); err != nil {
		return sonar.Album{}, err
	}
	if err := PropertiesUpdate(ctx, db, id.ID(), update.Properties); err != nil {
		return sonar.Album{}, err
	}
	return AlbumGet(ctx, db, id)
}

// AlbumDelete removes the album and its tracks (cascading).
func AlbumDelete(ctx context.Context, db DBTX, id sonar.AlbumID) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM album WHERE id = ?`, int64(id)); err != nil {
		return dbErr("delete album", err)
	}
	return PropertiesClear(ctx, db, id.ID())
}

// FindOrCreateAlbum returns the (artist, name) album, creating it from
// create when absent.
func FindOrCreateAlbum(ctx context.Context, db DBTX, artist sonar.ArtistID, name string, create sonar.AlbumCreate) (sonar.Album, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM album WHERE artist = ? AND name = ?`, int64(artist), name).Scan(&id)
	switch {
	case err == nil:
		return AlbumGet(ctx, db, sonar.AlbumID(id))
	case errors.Is(err, sql.ErrNoRows):
		create.Artist = artist
		create.Name = name
		return AlbumCreate(ctx, db, create)
	default:
		return sonar.Album{}, dbErr("find album", err)
	}
}
