package library

import (
	"context"
	"io"
	"log/slog"

	"github.com/sonarhq/sonar/pkg/blob"
	"github.com/sonarhq/sonar/pkg/sonar"
	"github.com/sonarhq/sonar/pkg/store"
)

// --- artists ---

func (c *Context) ArtistList(ctx context.Context, params sonar.ListParams) ([]sonar.Artist, error) {
	return store.ArtistList(ctx, c.db.Handle(), params)
}

func (c *Context) ArtistGet(ctx context.Context, id sonar.ArtistID) (sonar.Artist, error) {
	return store.ArtistGet(ctx, c.db.Handle(), id)
}

func (c *Context) ArtistCreate(ctx context.Context, create sonar.ArtistCreate) (sonar.Artist, error) {
	var artist sonar.Artist
	err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		var err error
		artist, err = store.ArtistCreate(ctx, tx, create)
		return err
	})
	if err != nil {
		return sonar.Artist{}, err
	}
	c.search.SynchronizeArtist(ctx, artist.ID)
	return artist, nil
}

func (c *Context) ArtistUpdate(ctx context.Context, id sonar.ArtistID, update sonar.ArtistUpdate) (sonar.Artist, error) {
	var artist sonar.Artist
	err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		var err error
		artist, err = store.ArtistUpdate(ctx, tx, id, update)
		return err
	})
	if err != nil {
		return sonar.Artist{}, err
	}
	c.search.SynchronizeArtist(ctx, id)
	return artist, nil
}

func (c *Context) ArtistDelete(ctx context.Context, id sonar.ArtistID) error {
	if err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		return store.ArtistDelete(ctx, tx, id)
	}); err != nil {
		return err
	}
	c.search.SynchronizeArtist(ctx, id)
	return nil
}

// --- albums ---

func (c *Context) AlbumList(ctx context.Context, params sonar.ListParams) ([]sonar.Album, error) {
	return store.AlbumList(ctx, c.db.Handle(), params)
}

func (c *Context) AlbumListByArtist(ctx context.Context, artist sonar.ArtistID, params sonar.ListParams) ([]sonar.Album, error) {
	return store.AlbumListByArtist(ctx, c.db.Handle(), artist, params)
}

func (c *Context) AlbumGet(ctx context.Context, id sonar.AlbumID) (sonar.Album, error) {
	return store.AlbumGet(ctx, c.db.Handle(), id)
}

func (c *Context) AlbumCreate(ctx context.Context, create sonar.AlbumCreate) (sonar.Album, error) {
	var album sonar.Album
	err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		var err error
		album, err = store.AlbumCreate(ctx, tx, create)
		return err
	})
	if err != nil {
		return sonar.Album{}, err
	}
	c.search.SynchronizeAlbum(ctx, album.ID)
	return album, nil
}

func (c *Context) AlbumUpdate(ctx context.Context, id sonar.AlbumID, update sonar.AlbumUpdate) (sonar.Album, error) {
	var album sonar.Album
	err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		var err error
		album, err = store.AlbumUpdate(ctx, tx, id, update)
		return err
	})
	if err != nil {
		return sonar.Album{}, err
	}
	c.search.SynchronizeAlbum(ctx, id)
	return album, nil
}

func (c *Context) AlbumDelete(ctx context.Context, id sonar.AlbumID) error {
	if err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		return store.AlbumDelete(ctx, tx, id)
	}); err != nil {
		return err
	}
	c.search.SynchronizeAlbum(ctx, id)
	return nil
}

// --- tracks ---

func (c *Context) TrackList(ctx context.Context, params sonar.ListParams) ([]sonar.Track, error) {
	return store.TrackList(ctx, c.db.Handle(), params)
}

func (c *Context) TrackListByAlbum(ctx context.Context, album sonar.AlbumID, params sonar.ListParams) ([]sonar.Track, error) {
	return store.TrackListByAlbum(ctx, c.db.Handle(), album, params)
}

func (c *Context) TrackGet(ctx context.Context, id sonar.TrackID) (sonar.Track, error) {
	return store.TrackGet(ctx, c.db.Handle(), id)
}

func (c *Context) TrackCreate(ctx context.Context, create sonar.TrackCreate) (sonar.Track, error) {
	var track sonar.Track
	err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		var err error
		track, err = store.TrackCreate(ctx, tx, create)
		return err
	})
	if err != nil {
		return sonar.Track{}, err
	}
	c.search.SynchronizeTrack(ctx, track.ID)
	return track, nil
}

func (c *Context) TrackUpdate(ctx context.Context, id sonar.TrackID, update sonar.TrackUpdate) (sonar.Track, error) {
	var track sonar.Track
	err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		var err error
		track, err = store.TrackUpdate(ctx, tx, id, update)
		return err
	})
	if err != nil {
		return sonar.Track{}, err
	}
	c.search.SynchronizeTrack(ctx, id)
	return track, nil
}

func (c *Context) TrackDelete(ctx context.Context, id sonar.TrackID) error {
	if err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		return store.TrackDelete(ctx, tx, id)
	}); err != nil {
		return err
	}
	c.search.SynchronizeTrack(ctx, id)
	return nil
}

// TrackGetLyrics returns the stored lyrics of a track, or NotFound
// when the track has none.
func (c *Context) TrackGetLyrics(ctx context.Context, id sonar.TrackID) (sonar.TrackLyrics, error) {
	track, err := store.TrackGet(ctx, c.db.Handle(), id)
	if err != nil {
		return sonar.TrackLyrics{}, err
	}
	if track.Lyrics == nil {
		return sonar.TrackLyrics{}, sonar.Errorf(sonar.ErrNotFound, "track %s has no lyrics", id)
	}
	return *track.Lyrics, nil
}

// --- audio ---

// AudioCreate drains r into the blob store and records the audio row.
func (c *Context) AudioCreate(ctx context.Context, mimeType, filename string, r io.Reader) (sonar.Audio, error) {
	key := blob.RandomKeyWithPrefix("audio")
	counted := &countingReader{r: r}
	if err := c.blobs.Write(ctx, key, counted); err != nil {
		return sonar.Audio{}, sonar.WrapInternal("write audio blob", err)
	}
	audio, err := store.AudioCreate(ctx, c.db.Handle(), sonar.AudioCreate{
		BlobKey:  key,
		Size:     counted.n,
		MimeType: mimeType,
		Filename: filename,
	})
	if err != nil {
		_ = c.blobs.Delete(ctx, key)
		return sonar.Audio{}, err
	}
	return audio, nil
}

func (c *Context) AudioGet(ctx context.Context, id sonar.AudioID) (sonar.Audio, error) {
	return store.AudioGet(ctx, c.db.Handle(), id)
}

func (c *Context) AudioListByTrack(ctx context.Context, track sonar.TrackID) ([]sonar.Audio, error) {
	return store.AudioListByTrack(ctx, c.db.Handle(), track)
}

func (c *Context) AudioLink(ctx context.Context, track sonar.TrackID, audio sonar.AudioID, preferred bool) error {
	return c.db.WithTx(ctx, func(tx store.DBTX) error {
		return store.AudioLink(ctx, tx, track, audio, preferred)
	})
}

func (c *Context) AudioUnlink(ctx context.Context, track sonar.TrackID, audio sonar.AudioID) error {
	return store.AudioUnlink(ctx, c.db.Handle(), track, audio)
}

// AudioDelete removes the row and its blob.
func (c *Context) AudioDelete(ctx context.Context, id sonar.AudioID) error {
	audio, err := store.AudioGet(ctx, c.db.Handle(), id)
	if err != nil {
		return err
	}
	if err := store.AudioDelete(ctx, c.db.Handle(), id); err != nil {
		return err
	}
	if err := c.blobs.Delete(ctx, audio.BlobKey); err != nil {
		slog.Warn("audio blob delete failed", "key", audio.BlobKey, "err", err)
	}
	return nil
}

// AudioOpen streams a range of a track's preferred audio rendition.
func (c *Context) AudioOpen(ctx context.Context, track sonar.TrackID, rng sonar.ByteRange) (sonar.Audio, io.ReadCloser, error) {
	t, err := store.TrackGet(ctx, c.db.Handle(), track)
	if err != nil {
		return sonar.Audio{}, nil, err
	}
	if t.Audio == nil {
		return sonar.Audio{}, nil, sonar.Errorf(sonar.ErrNotFound, "track %s has no audio", track)
	}
	audio, err := store.AudioGet(ctx, c.db.Handle(), *t.Audio)
	if err != nil {
		return sonar.Audio{}, nil, err
	}
	rc, err := c.blobs.Read(ctx, audio.BlobKey, rng)
	if err != nil {
		return sonar.Audio{}, nil, err
	}
	return audio, rc, nil
}

// --- images ---

// ImageCreate stores picture bytes and records the image row.
func (c *Context) ImageCreate(ctx context.Context, create sonar.ImageCreate) (sonar.ImageID, error) {
	key := blob.RandomKeyWithPrefix("image")
	if err := c.blobs.Put(ctx, key, create.Data); err != nil {
		return 0, sonar.WrapInternal("write image blob", err)
	}
	mime := create.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	img, err := store.ImageCreate(ctx, c.db.Handle(), mime, key)
	if err != nil {
		_ = c.blobs.Delete(ctx, key)
		return 0, err
	}
	return img.ID, nil
}

// ImageOpen streams the image bytes with their mime type.
func (c *Context) ImageOpen(ctx context.Context, id sonar.ImageID) (sonar.Image, io.ReadCloser, error) {
	img, err := store.ImageGet(ctx, c.db.Handle(), id)
	if err != nil {
		return sonar.Image{}, nil, err
	}
	rc, err := c.blobs.Read(ctx, img.BlobKey, sonar.FullRange())
	if err != nil {
		return sonar.Image{}, nil, err
	}
	return img, rc, nil
}

// ImageDelete removes the row and its blob.
func (c *Context) ImageDelete(ctx context.Context, id sonar.ImageID) error {
	img, err := store.ImageGet(ctx, c.db.Handle(), id)
	if err != nil {
		return err
	}
	if err := store.ImageDelete(ctx, c.db.Handle(), id); err != nil {
		return err
	}
	if err := c.blobs.Delete(ctx, img.BlobKey); err != nil {
		slog.Warn("image blob delete failed", "key", img.BlobKey, "err", err)
	}
	return nil
}

// --- playlists ---

func (c *Context) PlaylistList(ctx context.Context, params sonar.ListParams) ([]sonar.Playlist, error) {
	return store.PlaylistList(ctx, c.db.Handle(), params)
}

func (c *Context) PlaylistListByUser(ctx context.Context, user sonar.UserID, params sonar.ListParams) ([]sonar.Playlist, error) {
	return store.PlaylistListByUser(ctx, c.db.Handle(), user, params)
}

func (c *Context) PlaylistGet(ctx context.Context, id sonar.PlaylistID) (sonar.Playlist, error) {
	return store.PlaylistGet(ctx, c.db.Handle(), id)
}

func (c *Context) PlaylistCreate(ctx context.Context, create sonar.PlaylistCreate) (sonar.Playlist, error) {
	var playlist sonar.Playlist
	err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		var err error
		playlist, err = store.PlaylistCreate(ctx, tx, create)
		return err
	})
	if err != nil {
		return sonar.Playlist{}, err
	}
	c.search.SynchronizePlaylist(ctx, playlist.ID)
	return playlist, nil
}

func (c *Context) PlaylistUpdate(ctx context.Context, id sonar.PlaylistID, update sonar.PlaylistUpdate) (sonar.Playlist, error) {
	var playlist sonar.Playlist
	err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		var err error
		playlist, err = store.PlaylistUpdate(ctx, tx, id, update)
		return err
	})
	if err != nil {
		return sonar.Playlist{}, err
	}
	c.search.SynchronizePlaylist(ctx, id)
	return playlist, nil
}

func (c *Context) PlaylistDelete(ctx context.Context, id sonar.PlaylistID) error {
	if err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		return store.PlaylistDelete(ctx, tx, id)
	}); err != nil {
		return err
	}
	c.search.SynchronizePlaylist(ctx, id)
	return nil
}

func (c *Context) PlaylistListTracks(ctx context.Context, id sonar.PlaylistID, params sonar.ListParams) ([]sonar.Track, error) {
	return store.PlaylistListTracks(ctx, c.db.Handle(), id, params)
}

func (c *Context) PlaylistInsertTracks(ctx context.Context, id sonar.PlaylistID, tracks []sonar.TrackID) error {
	return c.db.WithTx(ctx, func(tx store.DBTX) error {
		return store.PlaylistInsertTracks(ctx, tx, id, tracks)
	})
}

func (c *Context) PlaylistRemoveTracks(ctx context.Context, id sonar.PlaylistID, tracks []sonar.TrackID) error {
	return c.db.WithTx(ctx, func(tx store.DBTX) error {
		return store.PlaylistRemoveTracks(ctx, tx, id, tracks)
	})
}

func (c *Context) PlaylistClearTracks(ctx context.Context, id sonar.PlaylistID) error {
	return store.PlaylistClearTracks(ctx, c.db.Handle(), id)
}

// --- favorites & pins ---

func (c *Context) FavoriteList(ctx context.Context, user sonar.UserID) ([]sonar.Favorite, error) {
	return store.FavoriteList(ctx, c.db.Handle(), user)
}

func (c *Context) FavoritePut(ctx context.Context, user sonar.UserID, id sonar.ID) error {
	return store.FavoritePut(ctx, c.db.Handle(), user, id)
}

func (c *Context) FavoriteRemove(ctx context.Context, user sonar.UserID, id sonar.ID) error {
	return store.FavoriteRemove(ctx, c.db.Handle(), user, id)
}

func (c *Context) PinList(ctx context.Context, user sonar.UserID) ([]sonar.ID, error) {
	return store.PinList(ctx, c.db.Handle(), user)
}

func (c *Context) PinSet(ctx context.Context, user sonar.UserID, ids ...sonar.ID) error {
	return store.PinSet(ctx, c.db.Handle(), user, ids...)
}

func (c *Context) PinUnset(ctx context.Context, user sonar.UserID, ids ...sonar.ID) error {
	return store.PinUnset(ctx, c.db.Handle(), user, ids...)
}

// --- scrobbles ---

func (c *Context) ScrobbleList(ctx context.Context, params sonar.ListParams) ([]sonar.Scrobble, error) {
	return store.ScrobbleList(ctx, c.db.Handle(), params)
}

func (c *Context) ScrobbleGet(ctx context.Context, id sonar.ScrobbleID) (sonar.Scrobble, error) {
	return store.ScrobbleGet(ctx, c.db.Handle(), id)
}

func (c *Context) ScrobbleCreate(ctx context.Context, create sonar.ScrobbleCreate) (sonar.Scrobble, error) {
	var scrobble sonar.Scrobble
	err := c.db.WithTx(ctx, func(tx store.DBTX) error {
		var err error
		scrobble, err = store.ScrobbleCreate(ctx, tx, create)
		return err
	})
	return scrobble, err
}

func (c *Context) ScrobbleDelete(ctx context.Context, id sonar.ScrobbleID) error {
	return store.ScrobbleDelete(ctx, c.db.Handle(), id)
}

// --- subscriptions & downloads ---

func (c *Context) SubscriptionList(ctx context.Context, user sonar.UserID) ([]sonar.Subscription, error) {
	return store.SubscriptionListByUser(ctx, c.db.Handle(), user)
}

func (c *Context) SubscriptionCreate(ctx context.Context, create sonar.SubscriptionCreate) error {
	if err := store.SubscriptionCreate(ctx, c.db.Handle(), create); err != nil {
		return err
	}
	if c.resources != nil {
		if err := c.resources.Add(create.ExternalID); err != nil {
			slog.Warn("resource index update failed", "external_id", create.ExternalID, "err", err)
		}
	}
	return nil
}

func (c *Context) SubscriptionDelete(ctx context.Context, user sonar.UserID, externalID sonar.ExternalMediaID) error {
	if err := store.SubscriptionDelete(ctx, c.db.Handle(), user, externalID); err != nil {
		return err
	}
	if c.resources != nil {
		if err := c.resources.Remove(externalID); err != nil {
			slog.Warn("resource index update failed", "external_id", externalID, "err", err)
		}
	}
	return nil
}

func (c *Context) DownloadList(ctx context.Context, user sonar.UserID) ([]sonar.Download, error) {
	return store.DownloadListByUser(ctx, c.db.Handle(), user)
}

// --- search ---

func (c *Context) Search(ctx context.Context, user sonar.UserID, query sonar.SearchQuery) (sonar.SearchResults, error) {
	return c.search.Search(ctx, user, query)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
