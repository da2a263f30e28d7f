package library

import (
	"context"
	"log/slog"

	"github.com/sonarhq/sonar/pkg/sonar"
	"github.com/sonarhq/sonar/pkg/store"
)

// Garbage collection removes catalog entities nobody holds on to.
// Downloaded playlists churn a lot of one-listen tracks; anything not
// pinned, not in a playlist, and not connected to something that is,
// eventually goes.
//
// Roots are every user pin and every playlist-tracked id.
// Reachability is bidirectional along ownership edges: pinning an
// artist preserves their discography, pinning a track preserves its
// album and artist.

type gcRels struct {
	parent   sonar.ID
	children []sonar.ID
}

// GCCandidates returns the ids of unreachable artists, albums and
// tracks. Candidates and roots partition the catalog ids.
func (c *Context) GCCandidates(ctx context.Context) ([]sonar.ID, error) {
	db := c.db.Handle()

	pinned, err := store.PinListAll(ctx, db)
	if err != nil {
		return nil, err
	}
	playlistTracks, err := store.TracksInAllPlaylists(ctx, db)
	if err != nil {
		return nil, err
	}
	artists, err := store.ArtistIDs(ctx, db)
	if err != nil {
		return nil, err
	}
	albumArtist, err := store.AlbumArtistPairs(ctx, db)
	if err != nil {
		return nil, err
	}
	trackAlbum, err := store.TrackAlbumPairs(ctx, db)
	if err != nil {
		return nil, err
	}

	rels := make(map[sonar.ID]*gcRels)
	node := func(id sonar.ID) *gcRels {
		r, ok := rels[id]
		if !ok {
			r = &gcRels{}
			rels[id] = r
		}
		return r
	}
	for _, artist := range artists {
		node(artist.ID())
	}
	for album, artist := range albumArtist {
		node(artist.ID()).children = append(node(artist.ID()).children, album.ID())
		node(album.ID()).parent = artist.ID()
	}
	for track, album := range trackAlbum {
		node(album.ID()).children = append(node(album.ID()).children, track.ID())
		node(track.ID()).parent = album.ID()
	}

	candidates := make(map[sonar.ID]struct{}, len(rels))
	for id := range rels {
		candidates[id] = struct{}{}
	}

	roots := make([]sonar.ID, 0, len(pinned)+len(playlistTracks))
	roots = append(roots, pinned...)
	for _, track := range playlistTracks {
		roots = append(roots, track.ID())
	}

	queue := make([]sonar.ID, 0, len(roots))
	for _, root := range roots {
		queue = append(queue[:0], root)
		for len(queue) > 0 {
			id := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			if _, live := candidates[id]; !live {
				continue
			}
			delete(candidates, id)
			r := rels[id]
			if r.parent != 0 {
				queue = append(queue, r.parent)
			}
			queue = append(queue, r.children...)
		}
	}

	out := make([]sonar.ID, 0, len(candidates))
	for id := range candidates {
		out = append(out, id)
	}
	return out, nil
}

// GCSweep deletes the current candidates plus unlinked audio. Track
// rows go before album rows before artist rows so cascades stay
// quiet; blobs of deleted audio are removed best-effort.
func (c *Context) GCSweep(ctx context.Context) error {
	candidates, err := c.GCCandidates(ctx)
	if err != nil {
		return err
	}
	byKind := func(kind sonar.Kind) []sonar.ID {
		var out []sonar.ID
		for _, id := range candidates {
			if id.Kind() == kind {
				out = append(out, id)
			}
		}
		return out
	}

	for _, id := range byKind(sonar.KindTrack) {
		trackID, _ := id.TrackID()
		if err := c.TrackDelete(ctx, trackID); err != nil {
			slog.Warn("gc track delete failed", "track", id, "err", err)
		}
	}
	for _, id := range byKind(sonar.KindAlbum) {
		albumID, _ := id.AlbumID()
		if err := c.AlbumDelete(ctx, albumID); err != nil {
			slog.Warn("gc album delete failed", "album", id, "err", err)
		}
	}
	for _, id := range byKind(sonar.KindArtist) {
		artistID, _ := id.ArtistID()
		if err := c.ArtistDelete(ctx, artistID); err != nil {
			slog.Warn("gc artist delete failed", "artist", id, "err", err)
		}
	}

	// Audio without any track link has no owner left.
	unlinked, err := store.AudioListUnlinked(ctx, c.db.Handle())
	if err != nil {
		return err
	}
	for _, audio := range unlinked {
		if err := c.AudioDelete(ctx, audio.ID); err != nil {
			slog.Warn("gc audio delete failed", "audio", audio.ID, "err", err)
		}
	}
	if len(candidates) > 0 || len(unlinked) > 0 {
		slog.Info("gc sweep complete", "entities", len(candidates), "audio", len(unlinked))
	}
	return nil
}
