package store

import (
	"context"
	"database/sql"

	"github.com/sonarhq/sonar/pkg/sonar"
)

func scanPlaylistRow(row interface{ Scan(...any) error }) (sonar.Playlist, error) {
	var p sonar.Playlist
	var id, owner, trackCount int64
	var coverArt sql.NullInt64
	if err := row.Scan(&id, &p.Name, &owner, &coverArt, &trackCount); err != nil {
		return sonar.Playlist{}, err
	}
	p.ID = sonar.PlaylistID(id)
	p.Owner = sonar.UserID(owner)
	p.TrackCount = uint32(trackCount)
	if coverArt.Valid {
		img := sonar.ImageID(coverArt.Int64)
		p.CoverArt = &img
	}
	return p, nil
}

const playlistQuery = `
SELECT p.id, p.name, p.owner, p.cover_art,
       (SELECT COUNT(*) FROM playlist_track pt WHERE pt.playlist = p.id)
  FROM playlist p`

// PlaylistList returns playlists ordered by ascending id.
func PlaylistList(ctx context.Context, db DBTX, params sonar.ListParams) ([]sonar.Playlist, error) {
	limit, offset := listLimits(params)
	rows, err := db.QueryContext(ctx, playlistQuery+` ORDER BY p.id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, dbErr("list playlists", err)
	}
	return playlistRows(ctx, db, rows)
}

// PlaylistListByUser returns one user's playlists ordered by id.
func PlaylistListByUser(ctx context.Context, db DBTX, owner sonar.UserID, params sonar.ListParams) ([]sonar.Playlist, error) {
	limit, offset := listLimits(params)
	rows, err := db.QueryContext(ctx,
		playlistQuery+` WHERE p.owner = ? ORDER BY p.id ASC LIMIT ? OFFSET ?`,
		int64(owner), limit, offset)
	if err != nil {
		return nil, dbErr("list playlists", err)
	}
	return playlistRows(ctx, db, rows)
}

func playlistRows(ctx context.Context, db DBTX, rows *sql.Rows) ([]sonar.Playlist, error) {
	defer rows.Close()
	var out []sonar.Playlist
	for rows.Next() {
		p, err := scanPlaylistRow(rows)
		if err != nil {
			return nil, dbErr("scan playlist", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list playlists", err)
	}
	rows.Close()
	for i := range out {
		props, err := PropertiesGet(ctx, db, out[i].ID.ID())
		if err != nil {
			return nil, err
		}
		out[i].Properties = props
	}
	return out, nil
}

// PlaylistGet returns one playlist or NotFound.
func PlaylistGet(ctx context.Context, db DBTX, id sonar.PlaylistID) (sonar.Playlist, error) {
	p, err := scanPlaylistRow(db.QueryRowContext(ctx, playlistQuery+` WHERE p.id = ?`, int64(id)))
	if err != nil {
		return sonar.Playlist{}, getErr("playlist", id, err)
	}
	props, err := PropertiesGet(ctx, db, p.ID.ID())
	if err != nil {
		return sonar.Playlist{}, err
	}
	p.Properties = props
	return p, nil
}

// PlaylistGetBulk resolves a list of playlist ids in order.
func PlaylistGetBulk(ctx context.Context, db DBTX, ids []sonar.PlaylistID) ([]sonar.Playlist, error) {
	out := make([]sonar.Playlist, 0, len(ids))
	for _, id := range ids {
		p, err := PlaylistGet(ctx, db, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// PlaylistCreate inserts a new playlist. The owner must exist.
func PlaylistCreate(ctx context.Context, db DBTX, create sonar.PlaylistCreate) (sonar.Playlist, error) {
	if create.Name == "" {
		return sonar.Playlist{}, sonar.NewError(sonar.ErrInvalid, "playlist name is empty")
	}
	if _, err := UserGet(ctx, db, create.Owner); err != nil {
		return sonar.Playlist{}, err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO playlist (name, owner) VALUES (?, ?)`, create.Name, int64(create.Owner))
	if err != nil {
		return sonar.Playlist{}, dbErr("create playlist", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return sonar.Playlist{}, dbErr("create playlist", err)
	}
	id := sonar.PlaylistID(rowID)
	if err := PropertiesSet(ctx, db, id.ID(), create.Properties); err != nil {
		return sonar.Playlist{}, err
	}
	if len(create.Tracks) > 0 {
		if err := PlaylistInsertTracks(ctx, db, id, create.Tracks); err != nil {
			return sonar.Playlist{}, err
		}
	}
	return PlaylistGet(ctx, db, id)
}

// PlaylistUpdate applies a partial mutation and returns the new state.
func PlaylistUpdate(ctx context.Context, db DBTX, id sonar.PlaylistID, update sonar.PlaylistUpdate) (sonar.Playlist, error) {
	if update.Name.Action == sonar.SetValue {
		if update.Name.Value == "" {
			return sonar.Playlist{}, sonar.NewError(sonar.ErrInvalid, "playlist name is empty")
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE playlist SET name = ? WHERE id = ?`, update.Name.Value, int64(id)); err != nil {
			return sonar.Playlist{}, dbErr("update playlist", err)
		}
	}
	switch update.CoverArt.Action {
	case sonar.SetValue:
		if _, err := db.ExecContext(ctx,
			`UPDATE playlist SET cover_art = ? WHERE id = ?`, int64(update.CoverArt.Value), int64(id)); err != nil {
			return sonar.Playlist{}, dbErr("update playlist", err)
		}
	case sonar.UnsetValue:
		if _, err := db.ExecContext(ctx,
			`UPDATE playlist SET cover_art = NULL WHERE id = ?`, int64(id)); err != nil {
			return sonar.Playlist{}, dbErr("update playlist", err)
		}
	}
	if err := PropertiesUpdate(ctx, db, id.ID(), update.Properties); err != nil {
		return sonar.Playlist{}, err
	}
	return PlaylistGet(ctx, db, id)
}

// PlaylistDelete removes the playlist and its track links.
func PlaylistDelete(ctx context.Context, db DBTX, id sonar.PlaylistID) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM playlist WHERE id = ?`, int64(id)); err != nil {
		return dbErr("delete playlist", err)
	}
	return PropertiesClear(ctx, db, id.ID())
}

// PlaylistListTracks returns a playlist's tracks ordered by stored
// position.
func PlaylistListTracks(ctx context.Context, db DBTX, id sonar.PlaylistID, params sonar.ListParams) ([]sonar.Track, error) {
	limit, offset := listLimits(params)
	rows, err := db.QueryContext(ctx,
		`SELECT t.id, t.name, t.album, t.artist, t.duration_ms, t.cover_art,
		        t.lyrics_kind, t.lyrics_text, t.listen_count, t.audio
		   FROM track_view t
		   JOIN playlist_track pt ON pt.track = t.id
		  WHERE pt.playlist = ?
		  ORDER BY pt.position ASC LIMIT ? OFFSET ?`,
		int64(id), limit, offset)
	if err != nil {
		return nil, dbErr("list playlist tracks", err)
	}
	return trackRowsToTracks(ctx, db, rows)
}

// PlaylistInsertTracks appends tracks after the current last position.
func PlaylistInsertTracks(ctx context.Context, db DBTX, id sonar.PlaylistID, tracks []sonar.TrackID) error {
	var maxPos sql.NullInt64
	if err := db.QueryRowContext(ctx,
		`SELECT MAX(position) FROM playlist_track WHERE playlist = ?`, int64(id)).Scan(&maxPos); err != nil {
		return dbErr("playlist positions", err)
	}
	pos := maxPos.Int64
	for _, track := range tracks {
		if _, err := TrackGet(ctx, db, track); err != nil {
			return err
		}
		pos++
		if _, err := db.ExecContext(ctx,
			`INSERT INTO playlist_track (playlist, position, track) VALUES (?, ?, ?)`,
			int64(id), pos, int64(track)); err != nil {
			return dbErr("insert playlist track", err)
		}
	}
	return nil
}

// PlaylistRemoveTracks removes every occurrence of the given tracks.
func PlaylistRemoveTracks(ctx context.Context, db DBTX, id sonar.PlaylistID, tracks []sonar.TrackID) error {
	for _, track := range tracks {
		if _, err := db.ExecContext(ctx,
			`DELETE FROM playlist_track WHERE playlist = ? AND track = ?`,
			int64(id), int64(track)); err != nil {
			return dbErr("remove playlist track", err)
		}
	}
	return nil
}

// PlaylistClearTracks empties the playlist.
func PlaylistClearTracks(ctx context.Context, db DBTX, id sonar.PlaylistID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM playlist_track WHERE playlist = ?`, int64(id))
	return dbErr("clear playlist", err)
}

// TracksInAllPlaylists returns the distinct track ids referenced by
// any playlist. These are garbage-collection roots.
func TracksInAllPlaylists(ctx context.Context, db DBTX) ([]sonar.TrackID, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT track FROM playlist_track`)
	if err != nil {
		return nil, dbErr("list playlist tracks", err)
	}
	defer rows.Close()

	var ids []sonar.TrackID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dbErr("scan playlist track", err)
		}
		ids = append(ids, sonar.TrackID(id))
	}
	return ids, dbErr("list playlist tracks", rows.Err())
}
