package sonar

import (
	"context"
	"io"
	"time"
)

// ExternalMediaID is an opaque provider-scoped identifier, typically
// of the shape "service:kind:id".
type ExternalMediaID string

func (id ExternalMediaID) String() string { return string(id) }

// ExternalMediaType is the entity kind an external id resolves to.
type ExternalMediaType int

const (
	ExternalUnsupported ExternalMediaType = iota
	ExternalArtistType
	ExternalAlbumType
	ExternalTrackType
	ExternalPlaylistType
)

// ExternalArtist is an artist as described by an external service.
type ExternalArtist struct {
	Name       string
	Genres     Genres
	Properties Properties
}

// ExternalAlbum is an album as described by an external service.
type ExternalAlbum struct {
	Name        string
	Artist      ExternalMediaID
	ReleaseDate *time.Time
	Cover       *ExternalImage
	Genres      Genres
	Properties  Properties
}

// ExternalTrack is a track as described by an external service.
type ExternalTrack struct {
	Name       string
	Album      ExternalMediaID
	Duration   time.Duration
	Properties Properties
}

// ExternalPlaylist is a playlist as described by an external service.
type ExternalPlaylist struct {
	Name   string
	Tracks []ExternalMediaID
}

// ExternalImage is picture bytes fetched from an external service.
type ExternalImage struct {
	MimeType string
	Data     []byte
}

// ExternalService is a streaming provider or other media source. The
// orchestrator probes registered services in priority order (lower
// first) to find the one handling a given external id.
type ExternalService interface {
	// Identifier names the service, e.g. "spotify" or "rss".
	Identifier() string
	// Priority orders probing; lower values are tried first.
	Priority() int

	Probe(ctx context.Context, id ExternalMediaID) (ExternalMediaType, error)
	FetchArtist(ctx context.Context, id ExternalMediaID) (ExternalArtist, error)
	FetchAlbum(ctx context.Context, id ExternalMediaID) (ExternalAlbum, error)
	FetchTrack(ctx context.Context, id ExternalMediaID) (ExternalTrack, error)
	FetchPlaylist(ctx context.Context, id ExternalMediaID) (ExternalPlaylist, error)
	// DownloadTrack streams the raw (pre-transcode) audio bytes.
	DownloadTrack(ctx context.Context, id ExternalMediaID) (io.ReadCloser, error)
}
