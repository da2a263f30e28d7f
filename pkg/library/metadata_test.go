package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarhq/sonar/pkg/sonar"
)

type staticProvider struct {
	artist sonar.ArtistMetadata
	album  sonar.AlbumMetadata
	track  sonar.TrackMetadata
}

func (p staticProvider) Identifier() string { return "static" }

func (p staticProvider) ArtistMetadata(context.Context, sonar.ArtistMetadataRequest) (sonar.ArtistMetadata, error) {
	return p.artist, nil
}
func (p staticProvider) AlbumMetadata(context.Context, sonar.AlbumMetadataRequest) (sonar.AlbumMetadata, error) {
	return p.album, nil
}
func (p staticProvider) TrackMetadata(context.Context, sonar.TrackMetadataRequest) (sonar.TrackMetadata, error) {
	return p.track, nil
}

func TestArtistMetadataFetch(t *testing.T) {
	provider := staticProvider{
		artist: sonar.ArtistMetadata{
			Genres: sonar.Genres{"rock"},
			Properties: sonar.Properties{
				sonar.PropExternalMusicBrainzID: "mbid-123",
			},
		},
	}
	c := newTestContext(t, func(cfg *Config) {
		cfg.MetadataProviders = []sonar.MetadataProvider{provider}
	})
	ctx := context.Background()

	artist, err := c.ArtistCreate(ctx, sonar.ArtistCreate{
		Name:       "artist",
		Properties: sonar.Properties{"key1": "kept"},
	})
	require.NoError(t, err)

	enriched, err := c.ArtistMetadataFetch(ctx, "static", artist.ID)
	require.NoError(t, err)
	assert.True(t, enriched.Genres.Contains("rock"))
	assert.Equal(t, sonar.PropertyValue("mbid-123"), enriched.Properties[sonar.PropExternalMusicBrainzID])
	// Existing properties are untouched.
	assert.Equal(t, sonar.PropertyValue("kept"), enriched.Properties["key1"])
}

func TestAlbumMetadataFetchReleaseDateAndCover(t *testing.T) {
	release := time.Date(1997, time.June, 1, 0, 0, 0, 0, time.UTC)
	provider := staticProvider{
		album: sonar.AlbumMetadata{
			ReleaseDate: &release,
			Cover:       &sonar.ExtractedImage{MimeType: "image/png", Data: pngBytes(t, 10)},
		},
	}
	c := newTestContext(t, func(cfg *Config) {
		cfg.MetadataProviders = []sonar.MetadataProvider{provider}
	})
	ctx := context.Background()

	artist, err := c.ArtistCreate(ctx, sonar.ArtistCreate{Name: "artist"})
	require.NoError(t, err)
	album, err := c.AlbumCreate(ctx, sonar.AlbumCreate{Name: "album", Artist: artist.ID})
	require.NoError(t, err)

	enriched, err := c.AlbumMetadataFetch(ctx, "static", album.ID)
	require.NoError(t, err)
	assert.Equal(t, sonar.PropertyValue("1997-06-01"), enriched.Properties[sonar.PropReleaseDate])
	require.NotNil(t, enriched.CoverArt)
}

func TestMetadataFetchUnknownProvider(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()
	artist, err := c.ArtistCreate(ctx, sonar.ArtistCreate{Name: "artist"})
	require.NoError(t, err)

	_, err = c.ArtistMetadataFetch(ctx, "nope", artist.ID)
	assert.True(t, sonar.IsInvalid(err))
}
