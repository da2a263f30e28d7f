package sonar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsernameRules(t *testing.T) {
	for _, ok := range []string{"admin", "User", "a.b-c_d", "ABC123", strings.Repeat("a", 24)} {
		_, err := ParseUsername(ok)
		assert.NoError(t, err, "input %q", ok)
	}
	for _, bad := range []string{"", strings.Repeat("a", 25), "with space", "héllo", "semi;colon", "at@sign"} {
		_, err := ParseUsername(bad)
		assert.True(t, IsInvalid(err), "input %q", bad)
	}
}

func TestPropertyKeyRules(t *testing.T) {
	for _, ok := range []string{"sonar.io/description", "a", "0-9._/-ab", strings.Repeat("k", 64)} {
		_, err := ParsePropertyKey(ok)
		assert.NoError(t, err, "input %q", ok)
	}
	for _, bad := range []string{"", "UPPER", "with space", strings.Repeat("k", 65), "bäd"} {
		_, err := ParsePropertyKey(bad)
		assert.True(t, IsInvalid(err), "input %q", bad)
	}
}

func TestPropertyValueRules(t *testing.T) {
	for _, ok := range []string{"", "anything ascii !?", strings.Repeat("v", 128)} {
		_, err := ParsePropertyValue(ok)
		assert.NoError(t, err, "input %q", ok)
	}
	for _, bad := range []string{strings.Repeat("v", 129), "ünicode"} {
		_, err := ParsePropertyValue(bad)
		assert.True(t, IsInvalid(err), "input %q", bad)
	}
}

func TestGenreCanonicalization(t *testing.T) {
	g, err := ParseGenre("Heavy Metal")
	require.NoError(t, err)
	assert.Equal(t, Genre("heavy-metal"), g)

	g, err = ParseGenre("  edm  ")
	require.NoError(t, err)
	assert.Equal(t, Genre("edm"), g)

	for _, bad := range []string{"", "   ", "sym&bols"} {
		_, err := ParseGenre(bad)
		assert.True(t, IsInvalid(err), "input %q", bad)
	}
}

func TestUserTokenRules(t *testing.T) {
	token := RandomUserToken()
	assert.Len(t, token.String(), 32)
	_, err := ParseUserToken(token.String())
	assert.NoError(t, err)

	for _, bad := range []string{"", "abc", strings.Repeat("!", 32), strings.Repeat("a", 33)} {
		_, err := ParseUserToken(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestTimestampNormalization(t *testing.T) {
	ts := NewTimestamp(1, 2_500_000_000)
	assert.Equal(t, uint64(3), ts.Seconds)
	assert.Equal(t, uint32(500_000_000), ts.Nanos)

	ts = TimestampFromMillis(1500)
	assert.Equal(t, uint64(1), ts.Seconds)
	assert.Equal(t, uint32(500_000_000), ts.Nanos)
}

func TestByteRangeClamp(t *testing.T) {
	full := FullRange()
	offset, length := full.Clamp(10)
	assert.Equal(t, int64(0), offset)
	assert.Equal(t, int64(10), length)

	offset, length = RangeAt(4, 3).Clamp(10)
	assert.Equal(t, int64(4), offset)
	assert.Equal(t, int64(3), length)

	// Length past the end clamps to the remainder.
	offset, length = RangeAt(8, 100).Clamp(10)
	assert.Equal(t, int64(8), offset)
	assert.Equal(t, int64(2), length)

	// Offset past the end yields an empty window.
	offset, length = RangeAt(50, 5).Clamp(10)
	assert.Equal(t, int64(10), offset)
	assert.Equal(t, int64(0), length)
}

func TestPropertiesApply(t *testing.T) {
	props := Properties{"a": "1"}
	props.Apply([]PropertyUpdate{
		SetProperty("b", "2"),
		RemoveProperty("a"),
	})
	assert.Equal(t, Properties{"b": "2"}, props)
}

func TestGenresApply(t *testing.T) {
	genres := Genres{"rock"}
	genres = genres.Apply([]GenreUpdate{
		SetGenre("edm"),
		SetGenre("edm"),
		UnsetGenre("rock"),
	})
	assert.Equal(t, Genres{"edm"}, genres)
}

func TestErrorKinds(t *testing.T) {
	err := NewError(ErrNotFound, "missing")
	assert.True(t, IsNotFound(err))
	wrapped := WrapInternal("boom", assert.AnError)
	assert.True(t, IsInternal(wrapped))
	// Wrapping an already-classified error keeps the original kind.
	again := WrapInternal("outer", err)
	assert.True(t, IsNotFound(again))
}
