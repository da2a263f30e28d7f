package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sonarhq/sonar/pkg/sonar"
)

func scanAudio(row interface{ Scan(...any) error }) (sonar.Audio, error) {
	var a sonar.Audio
	var id int64
	var filename sql.NullString
	if err := row.Scan(&id, &a.BlobKey, &a.Size, &a.MimeType, &filename); err != nil {
		return sonar.Audio{}, err
	}
	a.ID = sonar.AudioID(id)
	a.Filename = filename.String
	return a, nil
}

const audioCols = `id, blob_key, size, mime_type, filename`

// AudioCreate inserts a new audio row. Audio is created independently
// of any track and linked afterwards.
func AudioCreate(ctx context.Context, db DBTX, create sonar.AudioCreate) (sonar.Audio, error) {
	var filename any
	if create.Filename != "" {
		filename = create.Filename
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO audio (blob_key, size, mime_type, filename) VALUES (?, ?, ?, ?)`,
		create.BlobKey, create.Size, create.MimeType, filename)
	if err != nil {
		return sonar.Audio{}, dbErr("create audio", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return sonar.Audio{}, dbErr("create audio", err)
	}
	return AudioGet(ctx, db, sonar.AudioID(rowID))
}

// AudioGet returns one audio row or NotFound.
func AudioGet(ctx context.Context, db DBTX, id sonar.AudioID) (sonar.Audio, error) {
	a, err := scanAudio(db.QueryRowContext(ctx,
		`SELECT `+audioCols+` FROM audio WHERE id = ?`, int64(id)))
	if err != nil {
		return sonar.Audio{}, getErr("audio", id, err)
	}
	return a, nil
}

// AudioByBlobKey returns the audio row referencing key, if any.
// Duplicate content collapses to a single blob key, so imports check
// here before creating a new row.
func AudioByBlobKey(ctx context.Context, db DBTX, key string) (sonar.Audio, bool, error) {
	a, err := scanAudio(db.QueryRowContext(ctx,
		`SELECT `+audioCols+` FROM audio WHERE blob_key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return sonar.Audio{}, false, nil
	}
	if err != nil {
		return sonar.Audio{}, false, dbErr("get audio by blob key", err)
	}
	return a, true, nil
}

// AudioListByTrack returns the audio renditions linked to a track.
func AudioListByTrack(ctx context.Context, db DBTX, track sonar.TrackID) ([]sonar.Audio, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT a.id, a.blob_key, a.size, a.mime_type, a.filename
		   FROM audio a JOIN audio_track at2 ON at2.audio = a.id
		  WHERE at2.track = ?
		  ORDER BY at2.preferred DESC, a.id ASC`, int64(track))
	if err != nil {
		return nil, dbErr("list audio", err)
	}
	defer rows.Close()

	var out []sonar.Audio
	for rows.Next() {
		a, err := scanAudio(rows)
		if err != nil {
			return nil, dbErr("scan audio", err)
		}
		out = append(out, a)
	}
	return out, dbErr("list audio", rows.Err())
}

// AudioLink attaches an audio rendition to a track. At most one link
// per track is preferred; linking with preferred set demotes the rest.
func AudioLink(ctx context.Context, db DBTX, track sonar.TrackID, audio sonar.AudioID, preferred bool) error {
	if _, err := TrackGet(ctx, db, track); err != nil {
		return err
	}
	if _, err := AudioGet(ctx, db, audio); err != nil {
		return err
	}
	if preferred {
		if _, err := db.ExecContext(ctx,
			`UPDATE audio_track SET preferred = 0 WHERE track = ?`, int64(track)); err != nil {
			return dbErr("link audio", err)
		}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO audio_track (track, audio, preferred) VALUES (?, ?, ?)
		 ON CONFLICT (track, audio) DO UPDATE SET preferred = excluded.preferred`,
		int64(track), int64(audio), boolToInt(preferred))
	return dbErr("link audio", err)
}

// AudioUnlink detaches an audio rendition from a track. The audio row
// itself is kept; unlinked audio becomes a GC candidate.
func AudioUnlink(ctx context.Context, db DBTX, track sonar.TrackID, audio sonar.AudioID) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM audio_track WHERE track = ? AND audio = ?`, int64(track), int64(audio))
	return dbErr("unlink audio", err)
}

// AudioListUnlinked returns audio rows with no track link.
func AudioListUnlinked(ctx context.Context, db DBTX) ([]sonar.Audio, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+audioCols+` FROM audio
		  WHERE id NOT IN (SELECT audio FROM audio_track)`)
	if err != nil {
		return nil, dbErr("list unlinked audio", err)
	}
	defer rows.Close()

	var out []sonar.Audio
	for rows.Next() {
		a, err := scanAudio(rows)
		if err != nil {
			return nil, dbErr("scan audio", err)
		}
		out = append(out, a)
	}
	return out, dbErr("list unlinked audio", rows.Err())
}

// AudioDelete removes the audio row. The caller is responsible for
// deleting the underlying blob.
func AudioDelete(ctx context.Context, db DBTX, id sonar.AudioID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM audio WHERE id = ?`, int64(id))
	return dbErr("delete audio", err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
