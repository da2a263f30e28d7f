package library

import (
	"context"

	"github.com/sonarhq/sonar/pkg/sonar"
	"github.com/sonarhq/sonar/pkg/store"
)

// builtinSearch matches entity names case-insensitively against
// %query% directly on the catalog. Playlists are scoped to the
// requesting user. It keeps no index of its own, so synchronize
// events are no-ops.
type builtinSearch struct {
	c *Context
}

func (s *builtinSearch) Search(ctx context.Context, user sonar.UserID, query sonar.SearchQuery) (sonar.SearchResults, error) {
	db := s.c.db.Handle()
	pattern := "%" + query.Query + "%"
	var results sonar.SearchResults

	if query.Flags&sonar.SearchFlagArtist != 0 {
		ids, err := searchIDs(ctx, db, `SELECT id FROM artist WHERE name LIKE ? ORDER BY id ASC`, pattern)
		if err != nil {
			return sonar.SearchResults{}, err
		}
		artists, err := store.ArtistGetBulk(ctx, db, asTyped[sonar.ArtistID](ids))
		if err != nil {
			return sonar.SearchResults{}, err
		}
		for i := range artists {
			results.Results = append(results.Results, sonar.SearchResult{Artist: &artists[i]})
		}
	}
	if query.Flags&sonar.SearchFlagAlbum != 0 {
		ids, err := searchIDs(ctx, db, `SELECT id FROM album WHERE name LIKE ? ORDER BY id ASC`, pattern)
		if err != nil {
			return sonar.SearchResults{}, err
		}
		albums, err := store.AlbumGetBulk(ctx, db, asTyped[sonar.AlbumID](ids))
		if err != nil {
			return sonar.SearchResults{}, err
		}
		for i := range albums {
			results.Results = append(results.Results, sonar.SearchResult{Album: &albums[i]})
		}
	}
	if query.Flags&sonar.SearchFlagTrack != 0 {
		ids, err := searchIDs(ctx, db, `SELECT id FROM track WHERE name LIKE ? ORDER BY id ASC`, pattern)
		if err != nil {
			return sonar.SearchResults{}, err
		}
		tracks, err := store.TrackGetBulk(ctx, db, asTyped[sonar.TrackID](ids))
		if err != nil {
			return sonar.SearchResults{}, err
		}
		for i := range tracks {
			results.Results = append(results.Results, sonar.SearchResult{Track: &tracks[i]})
		}
	}
	if query.Flags&sonar.SearchFlagPlaylist != 0 {
		ids, err := searchIDs(ctx, db,
			`SELECT id FROM playlist WHERE owner = ? AND name LIKE ? ORDER BY id ASC`,
			int64(user), pattern)
		if err != nil {
			return sonar.SearchResults{}, err
		}
		playlists, err := store.PlaylistGetBulk(ctx, db, asTyped[sonar.PlaylistID](ids))
		if err != nil {
			return sonar.SearchResults{}, err
		}
		for i := range playlists {
			results.Results = append(results.Results, sonar.SearchResult{Playlist: &playlists[i]})
		}
	}

	if query.Limit > 0 && len(results.Results) > query.Limit {
		results.Results = results.Results[:query.Limit]
	}
	return results, nil
}

func (s *builtinSearch) SynchronizeArtist(context.Context, sonar.ArtistID)     {}
func (s *builtinSearch) SynchronizeAlbum(context.Context, sonar.AlbumID)       {}
func (s *builtinSearch) SynchronizeTrack(context.Context, sonar.TrackID)       {}
func (s *builtinSearch) SynchronizePlaylist(context.Context, sonar.PlaylistID) {}
func (s *builtinSearch) SynchronizeAll(context.Context)                        {}

func searchIDs(ctx context.Context, db store.DBTX, query string, args ...any) ([]int64, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sonar.WrapInternal("search query", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, sonar.WrapInternal("scan search id", err)
		}
		ids = append(ids, id)
	}
	return ids, sonar.WrapInternal("search query", rows.Err())
}

func asTyped[T ~uint32](ids []int64) []T {
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = T(id)
	}
	return out
}
