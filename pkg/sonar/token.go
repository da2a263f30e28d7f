package sonar

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	userTokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	userTokenLength   = 32
)

// UserToken is an opaque 32-character base62 session token obtained by
// logging in with a username and password.
type UserToken string

// ParseUserToken validates the token shape.
func ParseUserToken(s string) (UserToken, error) {
	if len(s) != userTokenLength {
		return "", NewError(ErrInvalid, "invalid user token")
	}
	for _, c := range s {
		if !strings.ContainsRune(userTokenAlphabet, c) {
			return "", NewError(ErrInvalid, "invalid user token")
		}
	}
	return UserToken(s), nil
}

// RandomUserToken draws a fresh token from crypto/rand.
func RandomUserToken() UserToken {
	var b strings.Builder
	b.Grow(userTokenLength)
	max := big.NewInt(int64(len(userTokenAlphabet)))
	for i := 0; i < userTokenLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("sonar: crypto/rand unavailable: " + err.Error())
		}
		b.WriteByte(userTokenAlphabet[n.Int64()])
	}
	return UserToken(b.String())
}

func (t UserToken) String() string { return string(t) }
