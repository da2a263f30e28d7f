package library

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/sonarhq/sonar/pkg/sonar"
	"github.com/sonarhq/sonar/pkg/store"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 48

	// argon2id parameters. They are embedded in every stored hash
	// string, so changing them does not invalidate existing hashes.
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

func validatePassword(password string) error {
	if len(password) < passwordMinLength {
		return sonar.Errorf(sonar.ErrInvalid,
			"password is too short (minimum length is %d characters)", passwordMinLength)
	}
	if len(password) > passwordMaxLength {
		return sonar.Errorf(sonar.ErrInvalid,
			"password is too long (maximum length is %d characters)", passwordMaxLength)
	}
	for i := 0; i < len(password); i++ {
		if password[i] > 0x7f {
			return sonar.NewError(sonar.ErrInvalid, "password is not ASCII")
		}
	}
	return nil
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", sonar.WrapInternal("generate salt", err)
	}
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// verifyPassword checks password against a stored hash string. The
// parameters come from the hash itself so they survive restarts and
// parameter changes; comparison is constant time.
func verifyPassword(stored, password string) error {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return sonar.NewError(sonar.ErrInternal, "malformed password hash")
	}
	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return sonar.WrapInternal("malformed password hash", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return sonar.WrapInternal("malformed password hash", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return sonar.WrapInternal("malformed password hash", err)
	}
	got := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(want)))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return sonar.NewError(sonar.ErrUnauthorized, "invalid credentials")
	}
	return nil
}

// UserList returns users ordered by ascending id.
func (c *Context) UserList(ctx context.Context, params sonar.ListParams) ([]sonar.User, error) {
	return store.UserList(ctx, c.db.Handle(), params)
}

// UserGet returns one user or NotFound.
func (c *Context) UserGet(ctx context.Context, id sonar.UserID) (sonar.User, error) {
	return store.UserGet(ctx, c.db.Handle(), id)
}

// UserLookup resolves a username to a user id if it exists.
func (c *Context) UserLookup(ctx context.Context, username sonar.Username) (sonar.UserID, bool, error) {
	u, ok, err := store.UserLookup(ctx, c.db.Handle(), username)
	return u.ID, ok, err
}

// UserCreate validates the password, hashes it and inserts the user.
func (c *Context) UserCreate(ctx context.Context, create sonar.UserCreate) (sonar.User, error) {
	if _, err := sonar.ParseUsername(create.Username.String()); err != nil {
		return sonar.User{}, err
	}
	if err := validatePassword(create.Password); err != nil {
		return sonar.User{}, err
	}
	hash, err := hashPassword(create.Password)
	if err != nil {
		return sonar.User{}, err
	}
	var user sonar.User
	err = c.db.WithTx(ctx, func(tx store.DBTX) error {
		var err error
		user, err = store.UserCreate(ctx, tx, create.Username, hash, create.Avatar)
		return err
	})
	return user, err
}

// UserUpdate applies a partial user mutation.
func (c *Context) UserUpdate(ctx context.Context, id sonar.UserID, update sonar.UserUpdate) (sonar.User, error) {
	err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		if update.Password.Action == sonar.SetValue {
			if err := validatePassword(update.Password.Value); err != nil {
				return err
			}
			hash, err := hashPassword(update.Password.Value)
			if err != nil {
				return err
			}
			if err := store.UserSetPasswordHash(ctx, tx, id, hash); err != nil {
				return err
			}
		}
		switch update.Avatar.Action {
		case sonar.SetValue:
			avatar := update.Avatar.Value
			return store.UserSetAvatar(ctx, tx, id, &avatar)
		case sonar.UnsetValue:
			return store.UserSetAvatar(ctx, tx, id, nil)
		}
		return nil
	})
	if err != nil {
		return sonar.User{}, err
	}
	return store.UserGet(ctx, c.db.Handle(), id)
}

// UserDelete removes the user and everything they own.
func (c *Context) UserDelete(ctx context.Context, id sonar.UserID) error {
	return c.db.WithTx(ctx, func(tx store.DBTX) error {
		return store.UserDelete(ctx, tx, id)
	})
}

// UserLogin authenticates and issues a fresh session token.
func (c *Context) UserLogin(ctx context.Context, username sonar.Username, password string) (sonar.UserID, sonar.UserToken, error) {
	id, hash, err := store.UserPasswordHash(ctx, c.db.Handle(), username)
	if err != nil {
		return 0, "", err
	}
	if err := verifyPassword(hash, password); err != nil {
		return 0, "", err
	}
	token := sonar.RandomUserToken()
	if err := store.SessionCreate(ctx, c.db.Handle(), id, token, sonar.Now()); err != nil {
		return 0, "", err
	}
	return id, token, nil
}

// UserLogout invalidates a session token.
func (c *Context) UserLogout(ctx context.Context, token sonar.UserToken) error {
	return store.SessionDelete(ctx, c.db.Handle(), token)
}

// UserValidateToken resolves a session token to its user, or fails
// with Unauthorized.
func (c *Context) UserValidateToken(ctx context.Context, token sonar.UserToken) (sonar.UserID, error) {
	if _, err := sonar.ParseUserToken(token.String()); err != nil {
		return 0, sonar.NewError(sonar.ErrUnauthorized, "invalid session token")
	}
	return store.SessionUser(ctx, c.db.Handle(), token)
}
