package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sonarhq/sonar/pkg/sonar"
)

func scanScrobble(row interface{ Scan(...any) error }) (sonar.Scrobble, error) {
	var s sonar.Scrobble
	var id, user, track, listenAt, listenMs int64
	var device string
	if err := row.Scan(&id, &user, &track, &listenAt, &listenMs, &device); err != nil {
		return sonar.Scrobble{}, err
	}
	s.ID = sonar.ScrobbleID(id)
	s.User = sonar.UserID(user)
	s.Track = sonar.TrackID(track)
	s.ListenAt = sonar.TimestampFromSeconds(uint64(listenAt))
	s.ListenDuration = time.Duration(listenMs) * time.Millisecond
	s.ListenDevice = device
	return s, nil
}

const scrobbleCols = `id, user, track, listen_at, listen_ms, listen_device`

func scrobbleSubmissions(ctx context.Context, db DBTX, id sonar.ScrobbleID) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT scrobbler FROM scrobble_submission WHERE scrobble = ? ORDER BY scrobbler ASC`, int64(id))
	if err != nil {
		return nil, dbErr("list submissions", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, dbErr("scan submission", err)
		}
		out = append(out, s)
	}
	return out, dbErr("list submissions", rows.Err())
}

// ScrobbleList returns scrobbles ordered by ascending id.
func ScrobbleList(ctx context.Context, db DBTX, params sonar.ListParams) ([]sonar.Scrobble, error) {
	limit, offset := listLimits(params)
	rows, err := db.QueryContext(ctx,
		`SELECT `+scrobbleCols+` FROM scrobble ORDER BY id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, dbErr("list scrobbles", err)
	}
	return scrobbleRows(ctx, db, rows)
}

func scrobbleRows(ctx context.Context, db DBTX, rows *sql.Rows) ([]sonar.Scrobble, error) {
	defer rows.Close()
	var out []sonar.Scrobble
	for rows.Next() {
		s, err := scanScrobble(rows)
		if err != nil {
			return nil, dbErr("scan scrobble", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list scrobbles", err)
	}
	for i := range out {
		subs, err := scrobbleSubmissions(ctx, db, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Submissions = subs
	}
	return out, nil
}

// ScrobbleGet returns one scrobble or NotFound.
func ScrobbleGet(ctx context.Context, db DBTX, id sonar.ScrobbleID) (sonar.Scrobble, error) {
	s, err := scanScrobble(db.QueryRowContext(ctx,
		`SELECT `+scrobbleCols+` FROM scrobble WHERE id = ?`, int64(id)))
	if err != nil {
		return sonar.Scrobble{}, getErr("scrobble", id, err)
	}
	subs, err := scrobbleSubmissions(ctx, db, id)
	if err != nil {
		return sonar.Scrobble{}, err
	}
	s.Submissions = subs
	return s, nil
}

// ScrobbleCreate records a listening event. User and track must exist.
func ScrobbleCreate(ctx context.Context, db DBTX, create sonar.ScrobbleCreate) (sonar.Scrobble, error) {
	if _, err := UserGet(ctx, db, create.User); err != nil {
		return sonar.Scrobble{}, err
	}
	if _, err := TrackGet(ctx, db, create.Track); err != nil {
		return sonar.Scrobble{}, err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO scrobble (user, track, listen_at, listen_ms, listen_device)
		 VALUES (?, ?, ?, ?, ?)`,
		int64(create.User), int64(create.Track),
		int64(create.ListenAt.Seconds), create.ListenDuration.Milliseconds(), create.ListenDevice)
	if err != nil {
		return sonar.Scrobble{}, dbErr("create scrobble", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return sonar.Scrobble{}, dbErr("create scrobble", err)
	}
	return ScrobbleGet(ctx, db, sonar.ScrobbleID(rowID))
}

// ScrobbleDelete removes a scrobble and its submission records.
func ScrobbleDelete(ctx context.Context, db DBTX, id sonar.ScrobbleID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM scrobble WHERE id = ?`, int64(id))
	return dbErr("delete scrobble", err)
}

// ScrobbleListUnsubmitted returns scrobbles not yet submitted to the
// given scrobbler, optionally filtered to one user.
func ScrobbleListUnsubmitted(ctx context.Context, db DBTX, scrobbler string, user *sonar.UserID) ([]sonar.Scrobble, error) {
	query := `SELECT ` + scrobbleCols + ` FROM scrobble s
	 WHERE NOT EXISTS (SELECT 1 FROM scrobble_submission ss
	                    WHERE ss.scrobble = s.id AND ss.scrobbler = ?)`
	args := []any{scrobbler}
	if user != nil {
		query += ` AND s.user = ?`
		args = append(args, int64(*user))
	}
	query += ` ORDER BY s.id ASC`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("list unsubmitted scrobbles", err)
	}
	return scrobbleRows(ctx, db, rows)
}

// ScrobbleRegisterSubmission records that a scrobbler accepted a
// scrobble. Registration is idempotent per (scrobble, scrobbler).
func ScrobbleRegisterSubmission(ctx context.Context, db DBTX, id sonar.ScrobbleID, scrobbler string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO scrobble_submission (scrobble, scrobbler) VALUES (?, ?)`,
		int64(id), scrobbler)
	return dbErr("register submission", err)
}
