package sonar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDRoundTrip(t *testing.T) {
	id := ArtistID(42).ID()
	assert.Equal(t, KindArtist, id.Kind())
	assert.Equal(t, uint32(42), id.Ident())
	assert.Equal(t, "sonar:artist:42", id.String())

	parsed, err := ParseID("sonar:artist:42")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	artistID, err := parsed.ArtistID()
	require.NoError(t, err)
	assert.Equal(t, ArtistID(42), artistID)
}

func TestIDPartsRoundTrip(t *testing.T) {
	for _, kind := range []Kind{
		KindArtist, KindAlbum, KindTrack, KindPlaylist, KindUser,
		KindImage, KindAudio, KindScrobble, KindDownload, KindSubscription,
	} {
		id := NewID(kind, 7)
		back, err := IDFromParts(uint32(kind), 7)
		require.NoError(t, err)
		assert.Equal(t, id, back)

		parsed, err := ParseID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
}

func TestParseIDRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"sonar",
		"sonar:artist",
		"sonar:artist:",
		"sonar:artist:abc",
		"sonar:artist:-1",
		"sonar:widget:1",
		"other:artist:1",
		"sonar:artist:1:extra",
		"sonar:artist:4294967296",
	} {
		_, err := ParseID(input)
		assert.Error(t, err, "input %q", input)
		assert.True(t, IsInvalid(err), "input %q", input)
	}
}

func TestIDKindMismatch(t *testing.T) {
	id := AlbumID(3).ID()
	_, err := id.ArtistID()
	assert.True(t, IsInvalid(err))
}
