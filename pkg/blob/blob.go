// Package blob provides the content store for audio and image bytes.
// Keys are opaque strings; entities reference blobs by key and the
// catalog guarantees a referenced key is present.
package blob

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// Store is the interface all blob backends implement. Put and Write
// are overwrite-replace; Delete of a missing key succeeds; Get and
// Read of a missing key fail with a not-found error. Ranges past the
// stored length are clamped.
type Store interface {
	// Get reads the selected range into memory.
	Get(ctx context.Context, key string, rng sonar.ByteRange) ([]byte, error)
	// Read returns a streaming reader over the selected range.
	Read(ctx context.Context, key string, rng sonar.ByteRange) (io.ReadCloser, error)
	// Put stores the bytes under key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error
	// Write streams r into the store under key. r is read exactly once.
	Write(ctx context.Context, key string, r io.Reader) error
	// Delete removes the key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// RandomKey returns a fresh 26-character crockford token. Keys sort by
// creation time.
func RandomKey() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// RandomKeyWithPrefix returns "<prefix>/<key>". The prefix is advisory
// only.
func RandomKeyWithPrefix(prefix string) string {
	return prefix + "/" + RandomKey()
}

func errKeyNotFound(key string) error {
	return sonar.Errorf(sonar.ErrNotFound, "blob %q not found", key)
}
