package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sonarhq/sonar/pkg/sonar"
)

type staticExtractor struct {
	md         sonar.ExtractedMetadata
	codecAware bool
}

func (s staticExtractor) Extract(string) (sonar.ExtractedMetadata, error) { return s.md, nil }
func (s staticExtractor) CodecAware() bool                                { return s.codecAware }

func TestMergeFirstValueWins(t *testing.T) {
	a := staticExtractor{md: sonar.ExtractedMetadata{
		Album:      "album",
		Artist:     "artist",
		DiscNumber: 2,
	}}
	b := staticExtractor{md: sonar.ExtractedMetadata{
		Title:       "title",
		Album:       "other album",
		TrackNumber: 4,
		Genres:      sonar.Genres{"edm"},
	}}

	merged := ExtractMerged([]Named{
		{Name: "a", Extractor: a},
		{Name: "b", Extractor: b},
	}, "test.mp3")

	assert.Equal(t, "title", merged.Title)
	assert.Equal(t, "album", merged.Album)
	assert.Equal(t, "artist", merged.Artist)
	assert.Equal(t, uint32(4), merged.TrackNumber)
	assert.Equal(t, uint32(2), merged.DiscNumber)
	assert.Equal(t, sonar.Genres{"edm"}, merged.Genres)
}

func TestMergeGenreUnion(t *testing.T) {
	a := staticExtractor{md: sonar.ExtractedMetadata{Genres: sonar.Genres{"rock", "edm"}}}
	b := staticExtractor{md: sonar.ExtractedMetadata{Genres: sonar.Genres{"edm", "jazz"}}}

	merged := ExtractMerged([]Named{
		{Name: "a", Extractor: a},
		{Name: "b", Extractor: b},
	}, "test.mp3")

	assert.ElementsMatch(t, sonar.Genres{"rock", "edm", "jazz"}, merged.Genres)
}

func TestMergeDurationPrefersCodecAware(t *testing.T) {
	tagOnly := staticExtractor{md: sonar.ExtractedMetadata{Duration: 10 * time.Second}}
	codec := staticExtractor{md: sonar.ExtractedMetadata{Duration: 42 * time.Second}, codecAware: true}

	merged := ExtractMerged([]Named{
		{Name: "tag", Extractor: tagOnly},
		{Name: "codec", Extractor: codec},
	}, "test.mp3")
	assert.Equal(t, 42*time.Second, merged.Duration)

	// Without a codec-aware value the first non-zero duration stands.
	merged = ExtractMerged([]Named{
		{Name: "tag", Extractor: tagOnly},
	}, "test.mp3")
	assert.Equal(t, 10*time.Second, merged.Duration)
}

func TestMergeCoverArtFirstNonEmpty(t *testing.T) {
	empty := staticExtractor{md: sonar.ExtractedMetadata{CoverArt: &sonar.ExtractedImage{MimeType: "image/png"}}}
	full := staticExtractor{md: sonar.ExtractedMetadata{
		CoverArt: &sonar.ExtractedImage{MimeType: "image/jpeg", Data: []byte{1, 2, 3}},
	}}

	merged := ExtractMerged([]Named{
		{Name: "empty", Extractor: empty},
		{Name: "full", Extractor: full},
	}, "test.mp3")
	assert.NotNil(t, merged.CoverArt)
	assert.Equal(t, "image/jpeg", merged.CoverArt.MimeType)
}
