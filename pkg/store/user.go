package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sonarhq/sonar/pkg/sonar"
)

func scanUser(row interface{ Scan(...any) error }) (sonar.User, error) {
	var u sonar.User
	var id int64
	var username string
	var avatar sql.NullInt64
	if err := row.Scan(&id, &username, &avatar); err != nil {
		return sonar.User{}, err
	}
	u.ID = sonar.UserID(id)
	u.Username = sonar.Username(username)
	if avatar.Valid {
		img := sonar.ImageID(avatar.Int64)
		u.Avatar = &img
	}
	return u, nil
}

// UserList returns users ordered by ascending id.
func UserList(ctx context.Context, db DBTX, params sonar.ListParams) ([]sonar.User, error) {
	limit, offset := listLimits(params)
	rows, err := db.QueryContext(ctx,
		`SELECT id, username, avatar FROM user ORDER BY id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, dbErr("list users", err)
	}
	defer rows.Close()

	var users []sonar.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, dbErr("scan user", err)
		}
		users = append(users, u)
	}
	return users, dbErr("list users", rows.Err())
}

// UserCreate inserts a new user with an already-hashed password.
func UserCreate(ctx context.Context, db DBTX, username sonar.Username, passwordHash string, avatar *sonar.ImageID) (sonar.User, error) {
	var avatarVal any
	if avatar != nil {
		avatarVal = int64(*avatar)
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO user (username, password_hash, avatar) VALUES (?, ?, ?)`,
		username.String(), passwordHash, avatarVal)
	if err != nil {
		return sonar.User{}, dbErr("create user", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return sonar.User{}, dbErr("create user", err)
	}
	return UserGet(ctx, db, sonar.UserID(rowID))
}

// UserGet returns one user or NotFound.
func UserGet(ctx context.Context, db DBTX, id sonar.UserID) (sonar.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT id, username, avatar FROM user WHERE id = ?`, int64(id)))
	if err != nil {
		return sonar.User{}, getErr("user", id, err)
	}
	return u, nil
}

// UserLookup resolves a username, reporting whether it exists.
func UserLookup(ctx context.Context, db DBTX, username sonar.Username) (sonar.User, bool, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT id, username, avatar FROM user WHERE username = ?`, username.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return sonar.User{}, false, nil
	}
	if err != nil {
		return sonar.User{}, false, dbErr("lookup user", err)
	}
	return u, true, nil
}

// UserPasswordHash returns the stored hash string for a username.
func UserPasswordHash(ctx context.Context, db DBTX, username sonar.Username) (sonar.UserID, string, error) {
	var id int64
	var hash string
	err := db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM user WHERE username = ?`, username.String()).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", sonar.Errorf(sonar.ErrUnauthorized, "invalid credentials")
	}
	if err != nil {
		return 0, "", dbErr("lookup user", err)
	}
	return sonar.UserID(id), hash, nil
}

// UserSetPasswordHash replaces a user's stored hash.
func UserSetPasswordHash(ctx context.Context, db DBTX, id sonar.UserID, hash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE user SET password_hash = ? WHERE id = ?`, hash, int64(id))
	return dbErr("update user password", err)
}

// UserSetAvatar updates or clears a user's avatar.
func UserSetAvatar(ctx context.Context, db DBTX, id sonar.UserID, avatar *sonar.ImageID) error {
	var avatarVal any
	if avatar != nil {
		avatarVal = int64(*avatar)
	}
	_, err := db.ExecContext(ctx, `UPDATE user SET avatar = ? WHERE id = ?`, avatarVal, int64(id))
	return dbErr("update user avatar", err)
}

// UserDelete removes the user and (cascading) their sessions,
// playlists, favorites, pins, scrobbles and subscriptions.
func UserDelete(ctx context.Context, db DBTX, id sonar.UserID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM user WHERE id = ?`, int64(id))
	return dbErr("delete user", err)
}

// SessionCreate stores a fresh login token.
func SessionCreate(ctx context.Context, db DBTX, user sonar.UserID, token sonar.UserToken, createdAt sonar.Timestamp) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO session (token, user, created_at) VALUES (?, ?, ?)`,
		token.String(), int64(user), int64(createdAt.Seconds))
	return dbErr("create session", err)
}

// SessionUser resolves a token to its user, or Unauthorized.
func SessionUser(ctx context.Context, db DBTX, token sonar.UserToken) (sonar.UserID, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`SELECT user FROM session WHERE token = ?`, token.String()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sonar.NewError(sonar.ErrUnauthorized, "invalid session token")
	}
	if err != nil {
		return 0, dbErr("lookup session", err)
	}
	return sonar.UserID(id), nil
}

// SessionDelete invalidates a token. Deleting an unknown token
// succeeds.
func SessionDelete(ctx context.Context, db DBTX, token sonar.UserToken) error {
	_, err := db.ExecContext(ctx, `DELETE FROM session WHERE token = ?`, token.String())
	return dbErr("delete session", err)
}
