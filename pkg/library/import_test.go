package library

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarhq/sonar/pkg/extractor"
	"github.com/sonarhq/sonar/pkg/sonar"
)

var smallAudio = []byte("not really audio but stable bytes")

func TestImportSimple(t *testing.T) {
	md := sonar.ExtractedMetadata{
		Title:       "title",
		Album:       "album",
		Artist:      "artist",
		TrackNumber: 4,
		DiscNumber:  2,
		Duration:    3 * time.Second,
		Genres:      sonar.Genres{"edm"},
	}
	c := newTestContext(t, func(cfg *Config) {
		cfg.Extractors = []extractor.Named{
			{Name: "static", Extractor: testExtractor{md: md, codecAware: true}},
		}
	})
	ctx := context.Background()

	track, err := c.ImportTrack(ctx, Import{
		Filepath: "test.mp3",
		Stream:   bytes.NewReader(smallAudio),
	})
	require.NoError(t, err)

	artists, err := c.ArtistList(ctx, sonar.ListAll())
	require.NoError(t, err)
	albums, err := c.AlbumList(ctx, sonar.ListAll())
	require.NoError(t, err)
	tracks, err := c.TrackList(ctx, sonar.ListAll())
	require.NoError(t, err)

	require.Len(t, artists, 1)
	require.Len(t, albums, 1)
	require.Len(t, tracks, 1)

	assert.Equal(t, "artist", artists[0].Name)
	assert.Equal(t, "album", albums[0].Name)
	assert.Equal(t, artists[0].ID, albums[0].Artist)
	assert.Equal(t, "title", tracks[0].Name)
	assert.Equal(t, albums[0].ID, tracks[0].Album)
	assert.Equal(t, 3*time.Second, tracks[0].Duration)
	assert.Equal(t, track.ID, tracks[0].ID)

	// Track and disc numbers land as reserved properties.
	assert.Equal(t, sonar.PropertyValue("4"), tracks[0].Properties[sonar.PropTrackNumber])
	assert.Equal(t, sonar.PropertyValue("2"), tracks[0].Properties[sonar.PropDiscNumber])

	// The audio blob exists under the track's linked audio.
	require.NotNil(t, tracks[0].Audio)
	audio, err := c.AudioGet(ctx, *tracks[0].Audio)
	require.NoError(t, err)
	data, err := c.BlobStore().Get(ctx, audio.BlobKey, sonar.FullRange())
	require.NoError(t, err)
	assert.Equal(t, smallAudio, data)
	assert.Equal(t, int64(len(smallAudio)), audio.Size)
}

func TestImportMergesExtractors(t *testing.T) {
	md1 := sonar.ExtractedMetadata{
		Album:      "album",
		Artist:     "artist",
		DiscNumber: 2,
	}
	md2 := sonar.ExtractedMetadata{
		Title:       "title",
		TrackNumber: 4,
		Duration:    7 * time.Second,
		Genres:      sonar.Genres{"edm"},
	}
	c := newTestContext(t, func(cfg *Config) {
		cfg.Extractors = []extractor.Named{
			{Name: "one", Extractor: testExtractor{md: md1}},
			{Name: "two", Extractor: testExtractor{md: md2, codecAware: true}},
		}
	})
	ctx := context.Background()

	_, err := c.ImportTrack(ctx, Import{
		Filepath: "test.mp3",
		Stream:   bytes.NewReader(smallAudio),
	})
	require.NoError(t, err)

	artists, err := c.ArtistList(ctx, sonar.ListAll())
	require.NoError(t, err)
	albums, err := c.AlbumList(ctx, sonar.ListAll())
	require.NoError(t, err)
	tracks, err := c.TrackList(ctx, sonar.ListAll())
	require.NoError(t, err)

	require.Len(t, artists, 1)
	require.Len(t, albums, 1)
	require.Len(t, tracks, 1)
	assert.Equal(t, "artist", artists[0].Name)
	assert.Equal(t, "album", albums[0].Name)
	assert.Equal(t, "title", tracks[0].Name)
	assert.Equal(t, 7*time.Second, tracks[0].Duration)
}

func TestImportIdempotent(t *testing.T) {
	md := sonar.ExtractedMetadata{Title: "title", Album: "album", Artist: "artist"}
	c := newTestContext(t, func(cfg *Config) {
		cfg.Extractors = []extractor.Named{
			{Name: "static", Extractor: testExtractor{md: md}},
		}
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.ImportTrack(ctx, Import{
			Filepath: "test.mp3",
			Stream:   bytes.NewReader(smallAudio),
		})
		require.NoError(t, err)
	}

	artists, err := c.ArtistList(ctx, sonar.ListAll())
	require.NoError(t, err)
	albums, err := c.AlbumList(ctx, sonar.ListAll())
	require.NoError(t, err)
	tracks, err := c.TrackList(ctx, sonar.ListAll())
	require.NoError(t, err)
	assert.Len(t, artists, 1)
	assert.Len(t, albums, 1)
	assert.Len(t, tracks, 1)
}

// mutableExtractor lets a test change the reported metadata between
// imports.
type mutableExtractor struct {
	md sonar.ExtractedMetadata
}

func (e *mutableExtractor) Extract(string) (sonar.ExtractedMetadata, error) { return e.md, nil }
func (e *mutableExtractor) CodecAware() bool                                { return false }

func TestImportDuplicateBytesShareBlob(t *testing.T) {
	ext := &mutableExtractor{md: sonar.ExtractedMetadata{Title: "one", Album: "album", Artist: "artist"}}
	c := newTestContext(t, func(cfg *Config) {
		cfg.Extractors = []extractor.Named{{Name: "tags", Extractor: ext}}
	})
	ctx := context.Background()

	first, err := c.ImportTrack(ctx, Import{Filepath: "a.mp3", Stream: bytes.NewReader(smallAudio)})
	require.NoError(t, err)

	// Same bytes under a different track name collapse to one audio
	// row and blob.
	ext.md.Title = "two"
	second, err := c.ImportTrack(ctx, Import{Filepath: "b.mp3", Stream: bytes.NewReader(smallAudio)})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	audioA, err := c.AudioGet(ctx, *first.Audio)
	require.NoError(t, err)
	audioB, err := c.AudioGet(ctx, *second.Audio)
	require.NoError(t, err)
	assert.Equal(t, audioA.ID, audioB.ID)
	assert.Equal(t, audioA.BlobKey, audioB.BlobKey)
}

func TestImportNameFallbacks(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	// No extractors: everything comes from the filename.
	track, err := c.ImportTrack(ctx, Import{
		Filepath: "Some Artist - Some Song.mp3",
		Stream:   bytes.NewReader(smallAudio),
	})
	require.NoError(t, err)
	assert.Equal(t, "Some Song", track.Name)

	artists, err := c.ArtistList(ctx, sonar.ListAll())
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, "Some Artist", artists[0].Name)

	albums, err := c.AlbumList(ctx, sonar.ListAll())
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "Unknown Album", albums[0].Name)
}

func TestImportOverrides(t *testing.T) {
	md := sonar.ExtractedMetadata{Title: "title", Album: "tagged album", Artist: "tagged artist"}
	c := newTestContext(t, func(cfg *Config) {
		cfg.Extractors = []extractor.Named{
			{Name: "static", Extractor: testExtractor{md: md}},
		}
	})
	ctx := context.Background()

	_, err := c.ImportTrack(ctx, Import{
		Artist:   "override artist",
		Album:    "override album",
		Filepath: "test.mp3",
		Stream:   bytes.NewReader(smallAudio),
	})
	require.NoError(t, err)

	artists, err := c.ArtistList(ctx, sonar.ListAll())
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, "override artist", artists[0].Name)

	albums, err := c.AlbumList(ctx, sonar.ListAll())
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "override album", albums[0].Name)
}

func TestImportPlainFilenameFallsBackToUnknownArtist(t *testing.T) {
	c := newTestContext(t)
	ctx := context.Background()

	track, err := c.ImportTrack(ctx, Import{
		Filepath: "recording.mp3",
		Stream:   bytes.NewReader(smallAudio),
	})
	require.NoError(t, err)
	assert.Equal(t, "recording.mp3", track.Name)

	artists, err := c.ArtistList(ctx, sonar.ListAll())
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, "Unknown Artist", artists[0].Name)
}
