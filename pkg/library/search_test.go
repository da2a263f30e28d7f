package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarhq/sonar/pkg/sonar"
)

func TestSearchBuiltin(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "seeker", Password: "admin1234"})
	require.NoError(t, err)

	artist, err := c.ArtistCreate(ctx, sonar.ArtistCreate{Name: "artist"})
	require.NoError(t, err)
	album, err := c.AlbumCreate(ctx, sonar.AlbumCreate{Name: "album", Artist: artist.ID})
	require.NoError(t, err)
	_, err = c.TrackCreate(ctx, sonar.TrackCreate{Name: "track a", Album: album.ID})
	require.NoError(t, err)

	// Empty query matches everything requested.
	results, err := c.Search(ctx, user.ID, sonar.SearchQuery{Query: "", Flags: sonar.SearchFlagAll})
	require.NoError(t, err)
	assert.Len(t, results.Results, 3)

	// A specific query returns exactly the artist.
	results, err = c.Search(ctx, user.ID, sonar.SearchQuery{Query: "artist", Flags: sonar.SearchFlagAll})
	require.NoError(t, err)
	require.Len(t, results.Results, 1)
	artists := results.Artists()
	require.Len(t, artists, 1)
	assert.Equal(t, artist.ID, artists[0].ID)

	// Matching is case-insensitive.
	results, err = c.Search(ctx, user.ID, sonar.SearchQuery{Query: "ARTIST", Flags: sonar.SearchFlagAll})
	require.NoError(t, err)
	assert.Len(t, results.Artists(), 1)
}

func TestSearchFlagsAndLimit(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "seeker", Password: "admin1234"})
	require.NoError(t, err)
	artist, err := c.ArtistCreate(ctx, sonar.ArtistCreate{Name: "alpha"})
	require.NoError(t, err)
	album, err := c.AlbumCreate(ctx, sonar.AlbumCreate{Name: "alpha album", Artist: artist.ID})
	require.NoError(t, err)

	results, err := c.Search(ctx, user.ID, sonar.SearchQuery{Query: "alpha", Flags: sonar.SearchFlagAlbum})
	require.NoError(t, err)
	require.Len(t, results.Results, 1)
	albums := results.Albums()
	require.Len(t, albums, 1)
	assert.Equal(t, album.ID, albums[0].ID)

	results, err = c.Search(ctx, user.ID, sonar.SearchQuery{
		Query: "alpha",
		Flags: sonar.SearchFlagAll,
		Limit: 1,
	})
	require.NoError(t, err)
	assert.Len(t, results.Results, 1)
}

func TestSearchPlaylistsScopedToUser(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	owner, err := c.UserCreate(ctx, sonar.UserCreate{Username: "owner", Password: "admin1234"})
	require.NoError(t, err)
	other, err := c.UserCreate(ctx, sonar.UserCreate{Username: "other", Password: "admin1234"})
	require.NoError(t, err)

	_, err = c.PlaylistCreate(ctx, sonar.PlaylistCreate{Name: "my mix", Owner: owner.ID})
	require.NoError(t, err)

	results, err := c.Search(ctx, owner.ID, sonar.SearchQuery{Query: "mix", Flags: sonar.SearchFlagPlaylist})
	require.NoError(t, err)
	assert.Len(t, results.Playlists(), 1)

	results, err = c.Search(ctx, other.ID, sonar.SearchQuery{Query: "mix", Flags: sonar.SearchFlagPlaylist})
	require.NoError(t, err)
	assert.Empty(t, results.Playlists())
}
