package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// testExtractor returns fixed metadata regardless of input.
type testExtractor struct {
	md         sonar.ExtractedMetadata
	codecAware bool
}

func (e testExtractor) Extract(string) (sonar.ExtractedMetadata, error) { return e.md, nil }
func (e testExtractor) CodecAware() bool                                { return e.codecAware }

func newTestContext(t *testing.T, mutate ...func(*Config)) *Context {
	t.Helper()
	cfg := Config{
		DatabasePath:   ":memory:",
		DisableWorkers: true,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func simpleGenres(t *testing.T) sonar.Genres {
	t.Helper()
	genres, err := sonar.ParseGenres([]string{"heavy metal", "electronic"})
	require.NoError(t, err)
	return genres
}

func simpleProperties() sonar.Properties {
	return sonar.Properties{"key1": "value1", "key2": "value2"}
}

func TestEmptyLists(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	artists, err := c.ArtistList(ctx, sonar.ListAll())
	require.NoError(t, err)
	assert.Empty(t, artists)

	albums, err := c.AlbumList(ctx, sonar.ListAll())
	require.NoError(t, err)
	assert.Empty(t, albums)

	tracks, err := c.TrackList(ctx, sonar.ListAll())
	require.NoError(t, err)
	assert.Empty(t, tracks)

	playlists, err := c.PlaylistList(ctx, sonar.ListAll())
	require.NoError(t, err)
	assert.Empty(t, playlists)

	users, err := c.UserList(ctx, sonar.ListAll())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestArtistCreateAndRead(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	artist, err := c.ArtistCreate(ctx, sonar.ArtistCreate{
		Name:       "Artist",
		Genres:     simpleGenres(t),
		Properties: simpleProperties(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Artist", artist.Name)
	assert.Len(t, artist.Genres, 2)
	assert.Len(t, artist.Properties, 2)

	artists, err := c.ArtistList(ctx, sonar.ListAll())
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, artist.ID, artists[0].ID)
}

func TestArtistUpdate(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	artist, err := c.ArtistCreate(ctx, sonar.ArtistCreate{
		Name:       "Artist",
		Genres:     simpleGenres(t),
		Properties: simpleProperties(),
	})
	require.NoError(t, err)

	updated, err := c.ArtistUpdate(ctx, artist.ID, sonar.ArtistUpdate{
		Name:       sonar.Set("Artist2"),
		Genres:     []sonar.GenreUpdate{sonar.SetGenre("rock")},
		Properties: []sonar.PropertyUpdate{sonar.SetProperty("key3", "value3")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Artist2", updated.Name)
	assert.Len(t, updated.Genres, 3)
	assert.Len(t, updated.Properties, 3)
}

func TestArtistNotFound(t *testing.T) {
	c := newTestContext(t)
	_, err := c.ArtistGet(context.Background(), sonar.ArtistID(12345))
	assert.True(t, sonar.IsNotFound(err))
}

func TestUserLifecycle(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "User", Password: "admin1234"})
	require.NoError(t, err)

	users, err := c.UserList(ctx, sonar.ListAll())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, user.ID, users[0].ID)

	require.NoError(t, c.UserDelete(ctx, user.ID))
	users, err = c.UserList(ctx, sonar.ListAll())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserLogin(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "User", Password: "admin1234"})
	require.NoError(t, err)

	userID, token, err := c.UserLogin(ctx, "User", "admin1234")
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	validated, err := c.UserValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, validated)

	_, _, err = c.UserLogin(ctx, "User", "wrong-password")
	assert.True(t, sonar.IsUnauthorized(err))

	_, _, err = c.UserLogin(ctx, "nobody", "admin1234")
	assert.True(t, sonar.IsUnauthorized(err))
}

func TestUserPasswordRules(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	_, err := c.UserCreate(ctx, sonar.UserCreate{Username: "short", Password: "1234567"})
	assert.True(t, sonar.IsInvalid(err))

	_, err = c.UserCreate(ctx, sonar.UserCreate{
		Username: "long",
		Password: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", // 49 chars
	})
	assert.True(t, sonar.IsInvalid(err))

	_, err = c.UserCreate(ctx, sonar.UserCreate{Username: "uni", Password: "pässword123"})
	assert.True(t, sonar.IsInvalid(err))
}

func TestUserLogout(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	_, err := c.UserCreate(ctx, sonar.UserCreate{Username: "User", Password: "admin1234"})
	require.NoError(t, err)
	_, token, err := c.UserLogin(ctx, "User", "admin1234")
	require.NoError(t, err)

	require.NoError(t, c.UserLogout(ctx, token))
	_, err = c.UserValidateToken(ctx, token)
	assert.True(t, sonar.IsUnauthorized(err))
}

func TestFavoriteKinds(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	user, err := c.UserCreate(ctx, sonar.UserCreate{Username: "fan", Password: "admin1234"})
	require.NoError(t, err)
	artist, err := c.ArtistCreate(ctx, sonar.ArtistCreate{Name: "artist"})
	require.NoError(t, err)

	require.NoError(t, c.FavoritePut(ctx, user.ID, artist.ID.ID()))
	favorites, err := c.FavoriteList(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, artist.ID.ID(), favorites[0].ID)

	// Only artists, albums and tracks can be favorited.
	err = c.FavoritePut(ctx, user.ID, user.ID.ID())
	assert.True(t, sonar.IsInvalid(err))

	require.NoError(t, c.FavoriteRemove(ctx, user.ID, artist.ID.ID()))
	favorites, err = c.FavoriteList(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestRebuildIndexes(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	genres, err := sonar.ParseGenres([]string{"rock"})
	require.NoError(t, err)
	artist, err := c.ArtistCreate(ctx, sonar.ArtistCreate{Name: "artist", Genres: genres})
	require.NoError(t, err)
	album, err := c.AlbumCreate(ctx, sonar.AlbumCreate{Name: "album", Artist: artist.ID})
	require.NoError(t, err)
	track, err := c.TrackCreate(ctx, sonar.TrackCreate{Name: "track", Album: album.ID})
	require.NoError(t, err)

	require.NoError(t, c.RebuildIndexes(ctx))
	idx := c.Indexes().Genres()

	stats := idx.ListGenres()
	require.Len(t, stats, 1)
	assert.Equal(t, sonar.Genre("rock"), stats[0].Genre)
	assert.Equal(t, uint32(1), stats[0].NumArtists)
	assert.Equal(t, uint32(1), stats[0].NumAlbums)
	assert.Equal(t, uint32(1), stats[0].NumTracks)

	assert.Equal(t, []sonar.ArtistID{artist.ID}, idx.ArtistsByGenre("rock", sonar.ListAll()))
	assert.Equal(t, []sonar.AlbumID{album.ID}, idx.AlbumsByGenre("rock", sonar.ListAll()))
	assert.Equal(t, []sonar.TrackID{track.ID}, idx.TracksByGenre("rock", sonar.ListAll()))
	assert.Empty(t, idx.AlbumsByGenre("jazz", sonar.ListAll()))
}
