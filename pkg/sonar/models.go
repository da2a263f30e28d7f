package sonar

import "time"

// Artist is the top level of the catalog hierarchy.
type Artist struct {
	ID          ArtistID
	Name        string
	CoverArt    *ImageID
	ListenCount uint32
	AlbumCount  uint32
	Genres      Genres
	Properties  Properties
}

// ArtistCreate carries the fields for creating an artist.
type ArtistCreate struct {
	Name       string
	CoverArt   *ImageID
	Genres     Genres
	Properties Properties
}

// ArtistUpdate carries a partial artist mutation.
type ArtistUpdate struct {
	Name       ValueUpdate[string]
	CoverArt   ValueUpdate[ImageID]
	Genres     []GenreUpdate
	Properties []PropertyUpdate
}

// Album belongs to an artist and owns tracks.
type Album struct {
	ID          AlbumID
	Name        string
	Artist      ArtistID
	CoverArt    *ImageID
	ReleaseDate *time.Time
	TrackCount  uint32
	ListenCount uint32
	Genres      Genres
	Properties  Properties
}

// AlbumCreate carries the fields for creating an album.
type AlbumCreate struct {
	Name        string
	Artist      ArtistID
	CoverArt    *ImageID
	ReleaseDate *time.Time
	Genres      Genres
	Properties  Properties
}

// AlbumUpdate carries a partial album mutation.
type AlbumUpdate struct {
	Name       ValueUpdate[string]
	Artist     ValueUpdate[ArtistID]
	CoverArt   ValueUpdate[ImageID]
	Genres     []GenreUpdate
	Properties []PropertyUpdate
}

// Track belongs to an album and links zero or more audio renditions.
type Track struct {
	ID          TrackID
	Name        string
	Album       AlbumID
	Artist      ArtistID
	Duration    time.Duration
	CoverArt    *ImageID
	Lyrics      *TrackLyrics
	ListenCount uint32
	Audio       *AudioID
	Properties  Properties
}

// TrackCreate carries the fields for creating a track.
type TrackCreate struct {
	Name       string
	Album      AlbumID
	Duration   time.Duration
	CoverArt   *ImageID
	Lyrics     *TrackLyrics
	Audio      *AudioID
	Properties Properties
}

// TrackUpdate carries a partial track mutation.
type TrackUpdate struct {
	Name       ValueUpdate[string]
	Album      ValueUpdate[AlbumID]
	CoverArt   ValueUpdate[ImageID]
	Lyrics     ValueUpdate[TrackLyrics]
	Properties []PropertyUpdate
}

// LyricsKind says whether lyrics carry timing information.
type LyricsKind int

const (
	LyricsPlain LyricsKind = iota
	LyricsSynced
)

// TrackLyrics is the lyric text of one track.
type TrackLyrics struct {
	Kind LyricsKind
	Text string
}

// Audio is one encoded rendition of a track's bytes. Audio rows are
// created independently and then linked; unlinking does not delete the
// audio, and audio without any link is eligible for garbage
// collection.
type Audio struct {
	ID       AudioID
	BlobKey  string
	Size     int64
	MimeType string
	Filename string
}

// AudioCreate carries the fields for creating an audio row.
type AudioCreate struct {
	BlobKey  string
	Size     int64
	MimeType string
	Filename string
}

// Image is a stored picture referenced by catalog entities.
type Image struct {
	ID       ImageID
	BlobKey  string
	MimeType string
}

// ImageCreate carries the bytes for creating an image.
type ImageCreate struct {
	MimeType string
	Data     []byte
}

// Playlist is an ordered, user-owned list of tracks.
type Playlist struct {
	ID         PlaylistID
	Name       string
	Owner      UserID
	CoverArt   *ImageID
	TrackCount uint32
	Properties Properties
}

// PlaylistCreate carries the fields for creating a playlist.
type PlaylistCreate struct {
	Name       string
	Owner      UserID
	Tracks     []TrackID
	Properties Properties
}

// PlaylistUpdate carries a partial playlist mutation.
type PlaylistUpdate struct {
	Name       ValueUpdate[string]
	CoverArt   ValueUpdate[ImageID]
	Properties []PropertyUpdate
}

// PlaylistTrack is one position of a playlist.
type PlaylistTrack struct {
	Playlist PlaylistID
	Track    TrackID
	Position int
	AddedAt  Timestamp
}

// User owns playlists, favorites, pins, scrobbles and subscriptions.
type User struct {
	ID       UserID
	Username Username
	Avatar   *ImageID
}

// UserCreate carries the fields for creating a user.
type UserCreate struct {
	Username Username
	Password string
	Avatar   *ImageID
}

// UserUpdate carries a partial user mutation.
type UserUpdate struct {
	Password ValueUpdate[string]
	Avatar   ValueUpdate[ImageID]
}

// Favorite is a user-visible mark over an artist, album or track.
type Favorite struct {
	ID         ID
	FavoriteAt Timestamp
}

// Scrobble records one listening event, to be submitted to zero or
// more scrobblers. Submissions maps scrobbler identifiers that have
// accepted it.
type Scrobble struct {
	ID             ScrobbleID
	User           UserID
	Track          TrackID
	ListenAt       Timestamp
	ListenDuration time.Duration
	ListenDevice   string
	Submissions    []string
}

// ScrobbleCreate carries the fields for recording a listen.
type ScrobbleCreate struct {
	User           UserID
	Track          TrackID
	ListenAt       Timestamp
	ListenDuration time.Duration
	ListenDevice   string
}

// Subscription is a standing request to periodically re-download an
// external media id.
type Subscription struct {
	ID            SubscriptionID
	User          UserID
	ExternalID    ExternalMediaID
	Description   string
	Interval      *time.Duration
	LastSubmitted *Timestamp
}

// SubscriptionCreate carries the fields for creating a subscription.
type SubscriptionCreate struct {
	User        UserID
	ExternalID  ExternalMediaID
	Description string
	Interval    *time.Duration
}

// DownloadStatus is the lifecycle state of a download request.
type DownloadStatus int

const (
	DownloadQueued DownloadStatus = iota
	DownloadActive
	DownloadComplete
	DownloadFailed
)

func (s DownloadStatus) String() string {
	switch s {
	case DownloadQueued:
		return "queued"
	case DownloadActive:
		return "active"
	case DownloadComplete:
		return "complete"
	case DownloadFailed:
		return "failed"
	}
	return "unknown"
}

// Download is a one-shot or retried ingestion of external media.
type Download struct {
	ID         DownloadID
	User       UserID
	ExternalID ExternalMediaID
	Status     DownloadStatus
	Attempts   int
	Error      string
}
