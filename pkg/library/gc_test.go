package library

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarhq/sonar/pkg/sonar"
)

type testCatalog struct {
	user   sonar.User
	artist sonar.Artist
	album  sonar.Album
	track  sonar.Track
}

func buildCatalog(t *testing.T, c *Context, artistName string) testCatalog {
	t.Helper()
	ctx := context.Background()
	artist, err := c.ArtistCreate(ctx, sonar.ArtistCreate{Name: artistName})
	require.NoError(t, err)
	album, err := c.AlbumCreate(ctx, sonar.AlbumCreate{Name: artistName + " album", Artist: artist.ID})
	require.NoError(t, err)
	track, err := c.TrackCreate(ctx, sonar.TrackCreate{Name: artistName + " track", Album: album.ID})
	require.NoError(t, err)
	return testCatalog{artist: artist, album: album, track: track}
}

func TestGCCandidatesPartition(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "gc", Password: "admin1234"})
	require.NoError(t, err)

	pinned := buildCatalog(t, c, "pinned")
	listed := buildCatalog(t, c, "listed")
	orphan := buildCatalog(t, c, "orphan")

	// Pinning a track retains its album and artist.
	require.NoError(t, c.PinSet(ctx, user.ID, pinned.track.ID.ID()))

	// Playlist membership is a root too.
	_, err = c.PlaylistCreate(ctx, sonar.PlaylistCreate{
		Name:   "keep",
		Owner:  user.ID,
		Tracks: []sonar.TrackID{listed.track.ID},
	})
	require.NoError(t, err)

	candidates, err := c.GCCandidates(ctx)
	require.NoError(t, err)

	set := make(map[sonar.ID]struct{}, len(candidates))
	for _, id := range candidates {
		set[id] = struct{}{}
	}
	// No pinned or playlist-tracked entity (or its relatives) is a
	// candidate.
	for _, id := range []sonar.ID{
		pinned.artist.ID.ID(), pinned.album.ID.ID(), pinned.track.ID.ID(),
		listed.artist.ID.ID(), listed.album.ID.ID(), listed.track.ID.ID(),
	} {
		_, found := set[id]
		assert.False(t, found, "%s should be retained", id)
	}
	// The orphan subtree is fully collectable.
	for _, id := range []sonar.ID{
		orphan.artist.ID.ID(), orphan.album.ID.ID(), orphan.track.ID.ID(),
	} {
		_, found := set[id]
		assert.True(t, found, "%s should be a candidate", id)
	}
	assert.Len(t, candidates, 3)
}

func TestGCPinArtistRetainsDiscography(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "gc", Password: "admin1234"})
	require.NoError(t, err)
	cat := buildCatalog(t, c, "band")

	require.NoError(t, c.PinSet(ctx, user.ID, cat.artist.ID.ID()))
	candidates, err := c.GCCandidates(ctx)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestGCSweep(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "gc", Password: "admin1234"})
	require.NoError(t, err)

	kept := buildCatalog(t, c, "kept")
	doomed := buildCatalog(t, c, "doomed")
	require.NoError(t, c.PinSet(ctx, user.ID, kept.track.ID.ID()))

	require.NoError(t, c.GCSweep(ctx))

	artists, err := c.ArtistList(ctx, sonar.ListAll())
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, kept.artist.ID, artists[0].ID)

	_, err = c.TrackGet(ctx, doomed.track.ID)
	assert.True(t, sonar.IsNotFound(err))
	_, err = c.AlbumGet(ctx, doomed.album.ID)
	assert.True(t, sonar.IsNotFound(err))
}

func TestGCSweepRemovesUnlinkedAudio(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	audio, err := c.AudioCreate(ctx, "audio/mpeg", "loose.mp3", strings.NewReader("loose bytes"))
	require.NoError(t, err)

	require.NoError(t, c.GCSweep(ctx))

	_, err = c.AudioGet(ctx, audio.ID)
	assert.True(t, sonar.IsNotFound(err))
	_, err = c.BlobStore().Get(ctx, audio.BlobKey, sonar.FullRange())
	assert.True(t, sonar.IsNotFound(err))
}
