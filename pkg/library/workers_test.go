package library

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// recordingScrobbler captures submissions in memory.
type recordingScrobbler struct {
	id       string
	username sonar.Username
	fail     bool

	mu        sync.Mutex
	submitted []sonar.ScrobbleID
}

func (r *recordingScrobbler) Identifier() string       { return r.id }
func (r *recordingScrobbler) Username() sonar.Username { return r.username }

func (r *recordingScrobbler) Scrobble(_ context.Context, target sonar.ScrobbleTarget) error {
	if r.fail {
		return errors.New("scrobbler unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, target.Scrobble.ID)
	return nil
}

func (r *recordingScrobbler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.submitted)
}

func scrobbleFixture(t *testing.T, c *Context) (sonar.User, sonar.Scrobble) {
	t.Helper()
	ctx := context.Background()
	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "listener", Password: "admin1234"})
	require.NoError(t, err)
	cat := buildCatalog(t, c, "band")
	scrobble, err := c.ScrobbleCreate(ctx, sonar.ScrobbleCreate{
		User:           user.ID,
		Track:          cat.track.ID,
		ListenAt:       sonar.Now(),
		ListenDuration: 30 * time.Second,
		ListenDevice:   "test",
	})
	require.NoError(t, err)
	return user, scrobble
}

func TestScrobblerIterationSubmits(t *testing.T) {
	scrobbler := &recordingScrobbler{id: "test-scrobbler"}
	c := newTestContext(t, func(cfg *Config) {
		cfg.Scrobblers = []sonar.Scrobbler{scrobbler}
	})
	ctx := context.Background()
	_, scrobble := scrobbleFixture(t, c)

	require.NoError(t, c.scrobblerIteration(ctx, scrobbler))
	assert.Equal(t, 1, scrobbler.count())

	got, err := c.ScrobbleGet(ctx, scrobble.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"test-scrobbler"}, got.Submissions)

	// A second iteration finds nothing unsubmitted.
	require.NoError(t, c.scrobblerIteration(ctx, scrobbler))
	assert.Equal(t, 1, scrobbler.count())
}

func TestScrobblerIterationSkipsFailures(t *testing.T) {
	scrobbler := &recordingScrobbler{id: "flaky", fail: true}
	c := newTestContext(t, func(cfg *Config) {
		cfg.Scrobblers = []sonar.Scrobbler{scrobbler}
	})
	ctx := context.Background()
	_, scrobble := scrobbleFixture(t, c)

	// A failing scrobbler does not kill the iteration and leaves the
	// scrobble unsubmitted for the next round.
	require.NoError(t, c.scrobblerIteration(ctx, scrobbler))
	got, err := c.ScrobbleGet(ctx, scrobble.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Submissions)

	scrobbler.fail = false
	require.NoError(t, c.scrobblerIteration(ctx, scrobbler))
	assert.Equal(t, 1, scrobbler.count())
}

func TestScrobblerUserScoping(t *testing.T) {
	scoped := &recordingScrobbler{id: "scoped", username: "listener"}
	c := newTestContext(t, func(cfg *Config) {
		cfg.Scrobblers = []sonar.Scrobbler{scoped}
	})
	ctx := context.Background()
	_, _ = scrobbleFixture(t, c)

	// A scrobble by a different user is not submitted to the scoped
	// scrobbler.
	other, err := c.UserCreate(ctx, sonar.UserCreate{Username: "stranger", Password: "admin1234"})
	require.NoError(t, err)
	cat := buildCatalog(t, c, "other band")
	_, err = c.ScrobbleCreate(ctx, sonar.ScrobbleCreate{
		User:     other.ID,
		Track:    cat.track.ID,
		ListenAt: sonar.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, c.scrobblerIteration(ctx, scoped))
	assert.Equal(t, 1, scoped.count())
}

func pngBytes(t *testing.T, c uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = c
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPlaylistCoverGeneration(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "curator", Password: "admin1234"})
	require.NoError(t, err)
	cat := buildCatalog(t, c, "band")

	cover, err := c.ImageCreate(ctx, sonar.ImageCreate{MimeType: "image/png", Data: pngBytes(t, 128)})
	require.NoError(t, err)
	_, err = c.TrackUpdate(ctx, cat.track.ID, sonar.TrackUpdate{CoverArt: sonar.Set(cover)})
	require.NoError(t, err)

	playlist, err := c.PlaylistCreate(ctx, sonar.PlaylistCreate{
		Name:   "mix",
		Owner:  user.ID,
		Tracks: []sonar.TrackID{cat.track.ID},
	})
	require.NoError(t, err)
	require.Nil(t, playlist.CoverArt)

	require.NoError(t, c.playlistCoverIteration(ctx))

	playlist, err = c.PlaylistGet(ctx, playlist.ID)
	require.NoError(t, err)
	require.NotNil(t, playlist.CoverArt)

	// The synthesized cover is a decodable image blob.
	img, rc, err := c.ImageOpen(ctx, *playlist.CoverArt)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/jpeg", img.MimeType)
}

func TestPlaylistCoverSkipsCoverless(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "curator", Password: "admin1234"})
	require.NoError(t, err)
	playlist, err := c.PlaylistCreate(ctx, sonar.PlaylistCreate{Name: "empty", Owner: user.ID})
	require.NoError(t, err)

	// No track covers: the iteration leaves the playlist untouched.
	require.NoError(t, c.playlistCoverIteration(ctx))
	playlist, err = c.PlaylistGet(ctx, playlist.ID)
	require.NoError(t, err)
	assert.Nil(t, playlist.CoverArt)
}

func TestSubscriptionIteration(t *testing.T) {
	service := &playlistService{id: "fake", kind: sonar.ExternalPlaylistType}
	c := newTestContext(t, func(cfg *Config) {
		cfg.ExternalServices = []sonar.ExternalService{service}
	})
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "sub", Password: "admin1234"})
	require.NoError(t, err)

	interval := time.Hour
	require.NoError(t, c.SubscriptionCreate(ctx, sonar.SubscriptionCreate{
		User:       user.ID,
		ExternalID: "fake:playlist:1",
		Interval:   &interval,
	}))

	require.NoError(t, c.subscriptionIteration(ctx))

	downloads, err := c.DownloadList(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, downloads, 1)
	assert.Equal(t, sonar.ExternalMediaID("fake:playlist:1"), downloads[0].ExternalID)

	subs, err := c.SubscriptionList(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].LastSubmitted)

	// A fresh submission inside the interval is skipped.
	require.NoError(t, c.subscriptionIteration(ctx))
	downloads, err = c.DownloadList(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, downloads, 1)
}
