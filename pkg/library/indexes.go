package library

import (
	"context"
	"log/slog"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// MemoryIndexes are derived genre lookups rebuilt from the catalog and
// swapped atomically. Readers always see a complete snapshot.
type MemoryIndexes struct {
	genres *GenreIndex
}

// Genres returns the genre index snapshot.
func (m *MemoryIndexes) Genres() *GenreIndex { return m.genres }

// GenreStats counts the entities carrying one genre.
type GenreStats struct {
	Genre      sonar.Genre
	NumArtists uint32
	NumAlbums  uint32
	NumTracks  uint32
}

// GenreIndex maps genres to the entities carrying them. Albums and
// tracks inherit their artist's genres.
type GenreIndex struct {
	stats   map[sonar.Genre]GenreStats
	artists map[sonar.Genre][]sonar.ArtistID
	albums  map[sonar.Genre][]sonar.AlbumID
	tracks  map[sonar.Genre][]sonar.TrackID
}

func emptyIndexes() *MemoryIndexes {
	return &MemoryIndexes{genres: &GenreIndex{
		stats:   map[sonar.Genre]GenreStats{},
		artists: map[sonar.Genre][]sonar.ArtistID{},
		albums:  map[sonar.Genre][]sonar.AlbumID{},
		tracks:  map[sonar.Genre][]sonar.TrackID{},
	}}
}

// ListGenres returns the stats of every indexed genre.
func (g *GenreIndex) ListGenres() []GenreStats {
	out := make([]GenreStats, 0, len(g.stats))
	for _, s := range g.stats {
		out = append(out, s)
	}
	return out
}

// ArtistsByGenre pages through the artists carrying a genre.
func (g *GenreIndex) ArtistsByGenre(genre sonar.Genre, params sonar.ListParams) []sonar.ArtistID {
	return pageIDs(g.artists[genre], params)
}

// AlbumsByGenre pages through the albums carrying a genre.
func (g *GenreIndex) AlbumsByGenre(genre sonar.Genre, params sonar.ListParams) []sonar.AlbumID {
	return pageIDs(g.albums[genre], params)
}

// TracksByGenre pages through the tracks carrying a genre.
func (g *GenreIndex) TracksByGenre(genre sonar.Genre, params sonar.ListParams) []sonar.TrackID {
	return pageIDs(g.tracks[genre], params)
}

func pageIDs[T any](ids []T, params sonar.ListParams) []T {
	if params.Offset >= len(ids) {
		return nil
	}
	ids = ids[params.Offset:]
	if params.Limit > 0 && params.Limit < len(ids) {
		ids = ids[:params.Limit]
	}
	out := make([]T, len(ids))
	copy(out, ids)
	return out
}

// Indexes returns the current in-memory index snapshot.
func (c *Context) Indexes() *MemoryIndexes { return c.indexes.Load() }

// RebuildIndexes recomputes the genre indexes from the catalog and
// swaps them in atomically.
func (c *Context) RebuildIndexes(ctx context.Context) error {
	artists, err := c.ArtistList(ctx, sonar.ListAll())
	if err != nil {
		return err
	}
	albums, err := c.AlbumList(ctx, sonar.ListAll())
	if err != nil {
		return err
	}
	tracks, err := c.TrackList(ctx, sonar.ListAll())
	if err != nil {
		return err
	}

	artistGenres := make(map[sonar.ArtistID]sonar.Genres, len(artists))
	albumGenres := make(map[sonar.AlbumID]sonar.Genres, len(albums))

	idx := emptyIndexes().genres
	for _, artist := range artists {
		artistGenres[artist.ID] = artist.Genres
		for _, g := range artist.Genres {
			idx.artists[g] = append(idx.artists[g], artist.ID)
		}
	}
	for _, album := range albums {
		genres := album.Genres.Union(artistGenres[album.Artist])
		albumGenres[album.ID] = genres
		for _, g := range genres {
			idx.albums[g] = append(idx.albums[g], album.ID)
		}
	}
	for _, track := range tracks {
		for _, g := range albumGenres[track.Album] {
			idx.tracks[g] = append(idx.tracks[g], track.ID)
		}
	}

	for g, ids := range idx.artists {
		s := idx.stats[g]
		s.Genre = g
		s.NumArtists = uint32(len(ids))
		idx.stats[g] = s
	}
	for g, ids := range idx.albums {
		s := idx.stats[g]
		s.Genre = g
		s.NumAlbums = uint32(len(ids))
		idx.stats[g] = s
	}
	for g, ids := range idx.tracks {
		s := idx.stats[g]
		s.Genre = g
		s.NumTracks = uint32(len(ids))
		idx.stats[g] = s
	}

	c.indexes.Store(&MemoryIndexes{genres: idx})
	slog.Debug("memory indexes rebuilt",
		"genres", len(idx.stats), "artists", len(artists), "albums", len(albums), "tracks", len(tracks))
	return nil
}
