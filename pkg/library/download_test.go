package library

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// playlistService resolves every id to an empty playlist. Useful for
// exercising the orchestrator without audio downloads.
type playlistService struct {
	id     string
	kind   sonar.ExternalMediaType
	tracks []sonar.ExternalMediaID
}

func (s *playlistService) Identifier() string { return s.id }
func (s *playlistService) Priority() int      { return 1 }

func (s *playlistService) Probe(context.Context, sonar.ExternalMediaID) (sonar.ExternalMediaType, error) {
	return s.kind, nil
}

func (s *playlistService) FetchArtist(context.Context, sonar.ExternalMediaID) (sonar.ExternalArtist, error) {
	return sonar.ExternalArtist{}, errors.New("not implemented")
}
func (s *playlistService) FetchAlbum(context.Context, sonar.ExternalMediaID) (sonar.ExternalAlbum, error) {
	return sonar.ExternalAlbum{}, errors.New("not implemented")
}
func (s *playlistService) FetchTrack(context.Context, sonar.ExternalMediaID) (sonar.ExternalTrack, error) {
	return sonar.ExternalTrack{}, errors.New("not implemented")
}
func (s *playlistService) FetchPlaylist(context.Context, sonar.ExternalMediaID) (sonar.ExternalPlaylist, error) {
	return sonar.ExternalPlaylist{Name: "feed", Tracks: s.tracks}, nil
}
func (s *playlistService) DownloadTrack(context.Context, sonar.ExternalMediaID) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func waitForStatus(t *testing.T, c *Context, user sonar.UserID, externalID sonar.ExternalMediaID, want sonar.DownloadStatus) sonar.Download {
	t.Helper()
	var last sonar.Download
	require.Eventually(t, func() bool {
		downloads, err := c.DownloadList(context.Background(), user)
		if err != nil {
			return false
		}
		for _, d := range downloads {
			if d.ExternalID == externalID {
				last = d
				return d.Status == want
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return last
}

func TestDownloadPlaylistCompletes(t *testing.T) {
	service := &playlistService{id: "fake", kind: sonar.ExternalPlaylistType}
	c := newTestContext(t, func(cfg *Config) {
		cfg.ExternalServices = []sonar.ExternalService{service}
	})
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "dl", Password: "admin1234"})
	require.NoError(t, err)

	download, err := c.DownloadRequest(ctx, user.ID, "fake:playlist:1")
	require.NoError(t, err)
	assert.Equal(t, sonar.DownloadQueued, download.Status)

	waitForStatus(t, c, user.ID, "fake:playlist:1", sonar.DownloadComplete)
}

func TestDownloadFailsAfterAttempts(t *testing.T) {
	// The service claims to handle tracks but every fetch errors.
	service := &playlistService{id: "broken", kind: sonar.ExternalTrackType}
	c := newTestContext(t, func(cfg *Config) {
		cfg.ExternalServices = []sonar.ExternalService{service}
		cfg.MaxDownloadAttempts = 1
	})
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "dl", Password: "admin1234"})
	require.NoError(t, err)

	_, err = c.DownloadRequest(ctx, user.ID, "broken:track:1")
	require.NoError(t, err)

	failed := waitForStatus(t, c, user.ID, "broken:track:1", sonar.DownloadFailed)
	assert.Equal(t, 1, failed.Attempts)
	assert.NotEmpty(t, failed.Error)
}

func TestDownloadUnknownService(t *testing.T) {
	c := newTestContext(t, func(cfg *Config) {
		cfg.MaxDownloadAttempts = 1
	})
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "dl", Password: "admin1234"})
	require.NoError(t, err)

	// No registered service handles the id; the request is accepted
	// and fails asynchronously.
	_, err = c.DownloadRequest(ctx, user.ID, "mystery:track:1")
	require.NoError(t, err)
	waitForStatus(t, c, user.ID, "mystery:track:1", sonar.DownloadFailed)
}

func TestDownloadInvalidID(t *testing.T) {
	c := newTestContext(t)
	user, err := c.UserCreate(context.Background(), sonar.UserCreate{Username: "dl", Password: "admin1234"})
	require.NoError(t, err)

	_, err = c.DownloadRequest(context.Background(), user.ID, "")
	assert.True(t, sonar.IsInvalid(err))
}

func TestDownloadDelete(t *testing.T) {
	service := &playlistService{id: "fake", kind: sonar.ExternalPlaylistType}
	c := newTestContext(t, func(cfg *Config) {
		cfg.ExternalServices = []sonar.ExternalService{service}
	})
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "dl", Password: "admin1234"})
	require.NoError(t, err)
	_, err = c.DownloadRequest(ctx, user.ID, "fake:playlist:2")
	require.NoError(t, err)
	waitForStatus(t, c, user.ID, "fake:playlist:2", sonar.DownloadComplete)

	require.NoError(t, c.DownloadDelete(ctx, user.ID, "fake:playlist:2"))
	downloads, err := c.DownloadList(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, downloads)
}
