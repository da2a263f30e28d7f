package sonar

import "context"

// SearchFlags is a bitmask selecting the entity kinds a query matches.
type SearchFlags uint32

const (
	SearchFlagArtist SearchFlags = 1 << iota
	SearchFlagAlbum
	SearchFlagTrack
	SearchFlagPlaylist

	SearchFlagAll = SearchFlagArtist | SearchFlagAlbum | SearchFlagTrack | SearchFlagPlaylist
)

// SearchQuery is one search request. A zero Limit means "all".
type SearchQuery struct {
	Query string
	Limit int
	Flags SearchFlags
}

// SearchResult holds exactly one of the four entity kinds.
type SearchResult struct {
	Artist   *Artist
	Album    *Album
	Track    *Track
	Playlist *Playlist
}

// SearchResults is the ordered result list of one query.
type SearchResults struct {
	Results []SearchResult
}

// Artists filters the artist results in order.
func (r SearchResults) Artists() []Artist {
	var out []Artist
	for _, res := range r.Results {
		if res.Artist != nil {
			out = append(out, *res.Artist)
		}
	}
	return out
}

// Albums filters the album results in order.
func (r SearchResults) Albums() []Album {
	var out []Album
	for _, res := range r.Results {
		if res.Album != nil {
			out = append(out, *res.Album)
		}
	}
	return out
}

// Tracks filters the track results in order.
func (r SearchResults) Tracks() []Track {
	var out []Track
	for _, res := range r.Results {
		if res.Track != nil {
			out = append(out, *res.Track)
		}
	}
	return out
}

// Playlists filters the playlist results in order.
func (r SearchResults) Playlists() []Playlist {
	var out []Playlist
	for _, res := range r.Results {
		if res.Playlist != nil {
			out = append(out, *res.Playlist)
		}
	}
	return out
}

// SearchEngine answers catalog queries. External engines additionally
// receive Synchronize events whenever catalog rows change so they can
// maintain their own index; the built-in engine ignores them.
type SearchEngine interface {
	Search(ctx context.Context, user UserID, query SearchQuery) (SearchResults, error)
	SynchronizeArtist(ctx context.Context, id ArtistID)
	SynchronizeAlbum(ctx context.Context, id AlbumID)
	SynchronizeTrack(ctx context.Context, id TrackID)
	SynchronizePlaylist(ctx context.Context, id PlaylistID)
	SynchronizeAll(ctx context.Context)
}
