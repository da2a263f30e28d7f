package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sonarhq/sonar/pkg/sonar"
)

func scanDownload(row interface{ Scan(...any) error }) (sonar.Download, error) {
	var d sonar.Download
	var id, user, status, attempts int64
	var externalID, errMsg string
	if err := row.Scan(&id, &user, &externalID, &status, &attempts, &errMsg); err != nil {
		return sonar.Download{}, err
	}
	d.ID = sonar.DownloadID(id)
	d.User = sonar.UserID(user)
	d.ExternalID = sonar.ExternalMediaID(externalID)
	d.Status = sonar.DownloadStatus(status)
	d.Attempts = int(attempts)
	d.Error = errMsg
	return d, nil
}

const downloadCols = `id, user, external_id, status, attempts, error`

// DownloadListByUser returns one user's download requests.
func DownloadListByUser(ctx context.Context, db DBTX, user sonar.UserID) ([]sonar.Download, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+downloadCols+` FROM download WHERE user = ? ORDER BY id ASC`, int64(user))
	if err != nil {
		return nil, dbErr("list downloads", err)
	}
	defer rows.Close()

	var out []sonar.Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, dbErr("scan download", err)
		}
		out = append(out, d)
	}
	return out, dbErr("list downloads", rows.Err())
}

// DownloadListPending returns queued and active downloads, oldest
// first. The orchestrator resumes these after a restart.
func DownloadListPending(ctx context.Context, db DBTX) ([]sonar.Download, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+downloadCols+` FROM download WHERE status IN (?, ?) ORDER BY id ASC`,
		int64(sonar.DownloadQueued), int64(sonar.DownloadActive))
	if err != nil {
		return nil, dbErr("list pending downloads", err)
	}
	defer rows.Close()

	var out []sonar.Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, dbErr("scan download", err)
		}
		out = append(out, d)
	}
	return out, dbErr("list pending downloads", rows.Err())
}

// DownloadGet returns one download or NotFound.
func DownloadGet(ctx context.Context, db DBTX, id sonar.DownloadID) (sonar.Download, error) {
	d, err := scanDownload(db.QueryRowContext(ctx,
		`SELECT `+downloadCols+` FROM download WHERE id = ?`, int64(id)))
	if err != nil {
		return sonar.Download{}, getErr("download", id, err)
	}
	return d, nil
}

// DownloadRequest queues a download for (user, external id), returning
// the existing row when one is already present.
func DownloadRequest(ctx context.Context, db DBTX, user sonar.UserID, externalID sonar.ExternalMediaID) (sonar.Download, error) {
	if externalID == "" {
		return sonar.Download{}, sonar.NewError(sonar.ErrInvalid, "external id is empty")
	}
	d, err := scanDownload(db.QueryRowContext(ctx,
		`SELECT `+downloadCols+` FROM download WHERE user = ? AND external_id = ?`,
		int64(user), externalID.String()))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return sonar.Download{}, dbErr("lookup download", err)
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO download (user, external_id, status) VALUES (?, ?, ?)`,
		int64(user), externalID.String(), int64(sonar.DownloadQueued))
	if err != nil {
		return sonar.Download{}, dbErr("create download", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return sonar.Download{}, dbErr("create download", err)
	}
	return DownloadGet(ctx, db, sonar.DownloadID(rowID))
}

// DownloadSetStatus updates the lifecycle state. Only the worker that
// owns a download mutates its status.
func DownloadSetStatus(ctx context.Context, db DBTX, id sonar.DownloadID, status sonar.DownloadStatus, errMsg string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE download SET status = ?, error = ? WHERE id = ?`,
		int64(status), errMsg, int64(id))
	return dbErr("update download status", err)
}

// DownloadBumpAttempts increments the retry counter and returns the
// new value.
func DownloadBumpAttempts(ctx context.Context, db DBTX, id sonar.DownloadID) (int, error) {
	if _, err := db.ExecContext(ctx,
		`UPDATE download SET attempts = attempts + 1 WHERE id = ?`, int64(id)); err != nil {
		return 0, dbErr("bump download attempts", err)
	}
	var attempts int
	if err := db.QueryRowContext(ctx,
		`SELECT attempts FROM download WHERE id = ?`, int64(id)).Scan(&attempts); err != nil {
		return 0, dbErr("read download attempts", err)
	}
	return attempts, nil
}

// DownloadDelete removes a download request.
func DownloadDelete(ctx context.Context, db DBTX, user sonar.UserID, externalID sonar.ExternalMediaID) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM download WHERE user = ? AND external_id = ?`,
		int64(user), externalID.String())
	return dbErr("delete download", err)
}
