package sonar

import "fmt"

// Reserved property keys recognized by the engine.
var (
	PropDescription = MustPropertyKey("sonar.io/description")
	PropReleaseDate = MustPropertyKey("sonar.io/release-date")
	PropTrackNumber = MustPropertyKey("sonar.io/track-number")
	PropDiscNumber  = MustPropertyKey("sonar.io/disc-number")

	PropExternalSpotifyID     = MustPropertyKey("external.sonar.io/spotify-id")
	PropExternalMusicBrainzID = MustPropertyKey("external.sonar.io/musicbrainz-id")
	PropExternalISRC          = MustPropertyKey("external.sonar.io/isrc")
	PropExternalEAN           = MustPropertyKey("external.sonar.io/ean")
	PropExternalUPC           = MustPropertyKey("external.sonar.io/upc")
)

// GenrePropertyKey returns the presence key marking membership in a
// genre: "sonar.io/genre/<tag>".
func GenrePropertyKey(g Genre) PropertyKey {
	return MustPropertyKey(fmt.Sprintf("sonar.io/genre/%s", g))
}
