package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sonarhq/sonar/pkg/sonar"
)

type trackRow struct {
	id          int64
	name        string
	album       int64
	artist      int64
	durationMs  int64
	coverArt    sql.NullInt64
	lyricsKind  sql.NullInt64
	lyricsText  sql.NullString
	listenCount int64
	audio       sql.NullInt64
}

const trackCols = `id, name, album, artist, duration_ms, cover_art, lyrics_kind, lyrics_text, listen_count, audio`

func scanTrackRow(row interface{ Scan(...any) error }) (trackRow, error) {
	var r trackRow
	err := row.Scan(&r.id, &r.name, &r.album, &r.artist, &r.durationMs,
		&r.coverArt, &r.lyricsKind, &r.lyricsText, &r.listenCount, &r.audio)
	return r, err
}

func (r trackRow) load(ctx context.Context, db DBTX) (sonar.Track, error) {
	id := sonar.TrackID(r.id)
	props, err := PropertiesGet(ctx, db, id.ID())
	if err != nil {
		return sonar.Track{}, err
	}
	track := sonar.Track{
		ID:          id,
		Name:        r.name,
		Album:       sonar.AlbumID(r.album),
		Artist:      sonar.ArtistID(r.artist),
		Duration:    time.Duration(r.durationMs) * time.Millisecond,
		ListenCount: uint32(r.listenCount),
		Properties:  props,
	}
	if r.coverArt.Valid {
		cover := sonar.ImageID(r.coverArt.Int64)
		track.CoverArt = &cover
	}
	if r.lyricsKind.Valid && r.lyricsText.Valid {
		track.Lyrics = &sonar.TrackLyrics{
			Kind: sonar.LyricsKind(r.lyricsKind.Int64),
			Text: r.lyricsText.String,
		}
	}
	if r.audio.Valid {
		audio := sonar.AudioID(r.audio.Int64)
		track.Audio = &audio
	}
	return track, nil
}

func trackRowsToTracks(ctx context.Context, db DBTX, rows *sql.Rows) ([]sonar.Track, error) {
	defer rows.Close()
	var views []trackRow
	for rows.Next() {
		r, err := scanTrackRow(rows)
		if err != nil {
			return nil, dbErr("scan track", err)
		}
		views = append(views, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list tracks", err)
	}
	tracks := make([]sonar.Track, 0, len(views))
	for _, v := range views {
		track, err := v.load(ctx, db)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// TrackList returns tracks ordered by ascending id.
func TrackList(ctx context.Context, db DBTX, params sonar.ListParams) ([]sonar.Track, error) {
	limit, offset := listLimits(params)
	rows, err := db.QueryContext(ctx,
		`SELECT `+trackCols+` FROM track_view ORDER BY id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, dbErr("list tracks", err)
	}
	return trackRowsToTracks(ctx, db, rows)
}

// TrackListByAlbum returns one album's tracks ordered by id.
func TrackListByAlbum(ctx context.Context, db DBTX, album sonar.AlbumID, params sonar.ListParams) ([]sonar.Track, error) {
	limit, offset := listLimits(params)
	rows, err := db.QueryContext(ctx,
		`SELECT `+trackCols+` FROM track_view WHERE album = ? ORDER BY id ASC LIMIT ? OFFSET ?`,
		int64(album), limit, offset)
	if err != nil {
		return nil, dbErr("list tracks", err)
	}
	return trackRowsToTracks(ctx, db, rows)
}

// TrackAlbumPairs returns every (track, album) ownership edge.
func TrackAlbumPairs(ctx context.Context, db DBTX) (map[sonar.TrackID]sonar.AlbumID, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, album FROM track`)
	if err != nil {
		return nil, dbErr("list track pairs", err)
	}
	defer rows.Close()

	pairs := make(map[sonar.TrackID]sonar.AlbumID)
	for rows.Next() {
		var track, album int64
		if err := rows.Scan(&track, &album); err != nil {
			return nil, dbErr("scan track pair", err)
		}
		pairs[sonar.TrackID(track)] = sonar.AlbumID(album)
	}
	return pairs, dbErr("list track pairs", rows.Err())
}

// TrackGet returns one track or NotFound.
func TrackGet(ctx context.Context, db DBTX, id sonar.TrackID) (sonar.Track, error) {
	r, err := scanTrackRow(db.QueryRowContext(ctx,
		`SELECT `+trackCols+` FROM track_view WHERE id = ?`, int64(id)))
	if err != nil {
		return sonar.Track{}, getErr("track", id, err)
	}
	return r.load(ctx, db)
}

// TrackGetBulk resolves a list of track ids in order.
func TrackGetBulk(ctx context.Context, db DBTX, ids []sonar.TrackID) ([]sonar.Track, error) {
	tracks := make([]sonar.Track, 0, len(ids))
	for _, id := range ids {
		track, err := TrackGet(ctx, db, id)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// TrackFindByName resolves (album, name), reporting whether a track
// exists. Imports use it for idempotence on the full artist, album
// and track name tuple.
func TrackFindByName(ctx context.Context, db DBTX, album sonar.AlbumID, name string) (sonar.Track, bool, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM track WHERE album = ? AND name = ?`, int64(album), name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return sonar.Track{}, false, nil
	}
	if err != nil {
		return sonar.Track{}, false, dbErr("find track", err)
	}
	track, err := TrackGet(ctx, db, sonar.TrackID(id))
	if err != nil {
		return sonar.Track{}, false, err
	}
	return track, true, nil
}

// TrackCreate inserts a new track. The referenced album must exist.
func TrackCreate(ctx context.Context, db DBTX, create sonar.TrackCreate) (sonar.Track, error) {
	if create.Name == "" {
		return sonar.Track{}, sonar.NewError(sonar.ErrInvalid, "track name is empty")
	}
	if create.Duration < 0 {
		return sonar.Track{}, sonar.NewError(sonar.ErrInvalid, "track duration is negative")
	}
	if _, err := AlbumGet(ctx, db, create.Album); err != nil {
		return sonar.Track{}, err
	}
	var coverArt, lyricsKind, lyricsText any
	if create.CoverArt != nil {
		coverArt = int64(*create.CoverArt)
	}
	if create.Lyrics != nil {
		lyricsKind = int64(create.Lyrics.Kind)
		lyricsText = create.Lyrics.Text
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO track (name, album, duration_ms, cover_art, lyrics_kind, lyrics_text)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		create.Name, int64(create.Album), create.Duration.Milliseconds(), coverArt, lyricsKind, lyricsText)
	if err != nil {
		return sonar.Track{}, dbErr("create track", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return sonar.Track{}, dbErr("create track", err)
	}
	id := sonar.TrackID(rowID)
	if err := PropertiesSet(ctx, db, id.ID(), create.Properties); err != nil {
		return sonar.Track{}, err
	}
	if create.Audio != nil {
		if err := AudioLink(ctx, db, id, *create.Audio, true); err != nil {
			return sonar.Track{}, err
		}
	}
	return TrackGet(ctx, db, id)
}

// TrackUpdate applies a partial mutation and returns the new state.
func TrackUpdate(ctx context.Context, db DBTX, id sonar.TrackID, update sonar.TrackUpdate) (sonar.Track, error) {
	if update.Name.Action == sonar.SetValue {
		if update.Name.Value == "" {
			return sonar.Track{}, sonar.NewError(sonar.ErrInvalid, "track name is empty")
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE track SET name = ? WHERE id = ?`, update.Name.Value, int64(id)); err != nil {
			return sonar.Track{}, dbErr("update track", err)
		}
	}
	if update.Album.Action == sonar.SetValue {
		if _, err := AlbumGet(ctx, db, update.Album.Value); err != nil {
			return sonar.Track{}, err
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE track SET album = ? WHERE id = ?`, int64(update.Album.Value), int64(id)); err != nil {
			return sonar.Track{}, dbErr("update track", err)
		}
	}
	switch update.CoverArt.Action {
	case sonar.SetValue:
		if _, err := db.ExecContext(ctx,
			`UPDATE track SET cover_art = ? WHERE id = ?`, int64(update.CoverArt.Value), int64(id)); err != nil {
			return sonar.Track{}, dbErr("update track", err)
		}
	case sonar.UnsetValue:
		if _, err := db.ExecContext(ctx,
			`UPDATE track SET cover_art = NULL WHERE id = ?`, int64(id)); err != nil {
			return sonar.Track{}, dbErr("update track", err)
		}
	}
	switch update.Lyrics.Action {
	case sonar.SetValue:
		if _, err := db.ExecContext(ctx,
			`UPDATE track SET lyrics_kind = ?, lyrics_text = ? WHERE id = ?`,
			int64(update.Lyrics.Value.Kind), update.Lyrics.Value.Text, int64(id)); err != nil {
			return sonar.Track{}, dbErr("update track", err)
		}
	case sonar.UnsetValue:
		if _, err := db.ExecContext(ctx,
			`UPDATE track SET lyrics_kind = NULL, lyrics_text = NULL WHERE id = ?`, int64(id)); err != nil {
			return sonar.Track{}, dbErr("update track", err)
		}
	}
	if err := PropertiesUpdate(ctx, db, id.ID(), update.Properties); err != nil {
		return sonar.Track{}, err
	}
	return TrackGet(ctx, db, id)
}

// TrackDelete removes the track and its playlist/audio links.
func TrackDelete(ctx context.Context, db DBTX, id sonar.TrackID) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM track WHERE id = ?`, int64(id)); err != nil {
		return dbErr("delete track", err)
	}
	return PropertiesClear(ctx, db, id.ID())
}
