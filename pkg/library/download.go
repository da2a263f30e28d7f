package library

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sonarhq/sonar/pkg/sonar"
	"github.com/sonarhq/sonar/pkg/store"
)

// downloadController owns the in-flight download set. Only the worker
// goroutine that claimed a download id mutates that download's
// status.
type downloadController struct {
	c *Context

	mu      sync.Mutex
	pending map[sonar.DownloadID]struct{}

	base context.Context
	wg   *sync.WaitGroup
}

func newDownloadController(c *Context, base context.Context) *downloadController {
	return &downloadController{
		c:       c,
		pending: map[sonar.DownloadID]struct{}{},
		base:    base,
		wg:      &c.workers,
	}
}

// claim marks a download as owned by the calling worker.
func (dc *downloadController) claim(id sonar.DownloadID) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if _, busy := dc.pending[id]; busy {
		return false
	}
	dc.pending[id] = struct{}{}
	return true
}

func (dc *downloadController) release(id sonar.DownloadID) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	delete(dc.pending, id)
}

// DownloadRequest queues (or returns) the download of an external
// media id for a user and starts working on it in the background.
func (c *Context) DownloadRequest(ctx context.Context, user sonar.UserID, externalID sonar.ExternalMediaID) (sonar.Download, error) {
	download, err := store.DownloadRequest(ctx, c.db.Handle(), user, externalID)
	if err != nil {
		return sonar.Download{}, err
	}
	if download.Status == sonar.DownloadComplete {
		return download, nil
	}
	c.downloads.start(download)
	return download, nil
}

// DownloadDelete removes a download request.
func (c *Context) DownloadDelete(ctx context.Context, user sonar.UserID, externalID sonar.ExternalMediaID) error {
	return store.DownloadDelete(ctx, c.db.Handle(), user, externalID)
}

// resumePending re-queues downloads left over from a previous run.
func (dc *downloadController) resumePending() {
	downloads, err := store.DownloadListPending(dc.base, dc.c.db.Handle())
	if err != nil {
		slog.Error("resume pending downloads failed", "err", err)
		return
	}
	for _, d := range downloads {
		dc.start(d)
	}
}

func (dc *downloadController) start(download sonar.Download) {
	if !dc.claim(download.ID) {
		return
	}
	dc.wg.Add(1)
	go func() {
		defer dc.wg.Done()
		defer dc.release(download.ID)
		dc.run(download)
	}()
}

// run drives one download to completion with exponential backoff on
// failure, capped at the configured ceiling. After the attempt limit
// the download is marked failed but keeps its row so it can be
// retried by a fresh request.
func (dc *downloadController) run(download sonar.Download) {
	ctx := dc.base
	c := dc.c
	backoff := 2 * time.Second

	for {
		if err := store.DownloadSetStatus(ctx, c.db.Handle(), download.ID, sonar.DownloadActive, ""); err != nil {
			slog.Error("download status update failed", "download", download.ID, "err", err)
			return
		}
		err := c.fetchExternal(ctx, download.User, download.ExternalID)
		if err == nil {
			if err := store.DownloadSetStatus(ctx, c.db.Handle(), download.ID, sonar.DownloadComplete, ""); err != nil {
				slog.Error("download status update failed", "download", download.ID, "err", err)
			}
			slog.Info("download complete", "download", download.ID, "external_id", download.ExternalID)
			return
		}
		if ctx.Err() != nil {
			return
		}
		slog.Warn("download attempt failed",
			"download", download.ID, "external_id", download.ExternalID, "err", err)

		attempts, aerr := store.DownloadBumpAttempts(ctx, c.db.Handle(), download.ID)
		if aerr != nil {
			slog.Error("download attempt bump failed", "download", download.ID, "err", aerr)
			return
		}
		if attempts >= c.cfg.MaxDownloadAttempts {
			if serr := store.DownloadSetStatus(ctx, c.db.Handle(), download.ID, sonar.DownloadFailed, err.Error()); serr != nil {
				slog.Error("download status update failed", "download", download.ID, "err", serr)
			}
			return
		}
		if serr := store.DownloadSetStatus(ctx, c.db.Handle(), download.ID, sonar.DownloadQueued, err.Error()); serr != nil {
			slog.Error("download status update failed", "download", download.ID, "err", serr)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.cfg.DownloadBackoffCeiling {
			backoff = c.cfg.DownloadBackoffCeiling
		}
	}
}

// fetchExternal resolves an external id and ingests it: tracks are
// downloaded and transcoded; albums and playlists fan out into track
// downloads for the same user.
func (c *Context) fetchExternal(ctx context.Context, user sonar.UserID, externalID sonar.ExternalMediaID) error {
	service, kind, err := c.registry.Resolve(ctx, externalID)
	if err != nil {
		return err
	}
	switch kind {
	case sonar.ExternalTrackType:
		return c.fetchExternalTrack(ctx, service, externalID)
	case sonar.ExternalAlbumType, sonar.ExternalPlaylistType:
		// Collections fan out into per-track downloads for the user.
		playlist, err := c.callFetchPlaylist(ctx, service, externalID)
		if err != nil {
			return err
		}
		return c.fanOutTracks(ctx, user, playlist.Tracks)
	default:
		return sonar.Errorf(sonar.ErrInvalid, "external id %q is not downloadable", externalID)
	}
}

func (c *Context) fanOutTracks(ctx context.Context, user sonar.UserID, tracks []sonar.ExternalMediaID) error {
	for _, track := range tracks {
		if _, err := c.DownloadRequest(ctx, user, track); err != nil {
			return err
		}
	}
	return nil
}

// fetchExternalTrack runs the full flow for one track: fetch the
// track, its album and artist, find-or-create the catalog rows,
// download the raw audio, transcode to the canonical format and link
// the result.
func (c *Context) fetchExternalTrack(ctx context.Context, service sonar.ExternalService, externalID sonar.ExternalMediaID) error {
	extTrack, err := c.callFetchTrack(ctx, service, externalID)
	if err != nil {
		return err
	}
	extAlbum, err := c.callFetchAlbum(ctx, service, extTrack.Album)
	if err != nil {
		return err
	}
	extArtist, err := c.callFetchArtist(ctx, service, extAlbum.Artist)
	if err != nil {
		return err
	}

	var artist sonar.Artist
	var album sonar.Album
	err = c.db.WithTx(ctx, func(tx store.DBTX) error {
		var err error
		artist, err = store.FindOrCreateArtist(ctx, tx, extArtist.Name, sonar.ArtistCreate{
			Genres:     extArtist.Genres,
			Properties: extArtist.Properties,
		})
		if err != nil {
			return err
		}
		album, err = store.FindOrCreateAlbum(ctx, tx, artist.ID, extAlbum.Name, sonar.AlbumCreate{
			ReleaseDate: extAlbum.ReleaseDate,
			Genres:      extAlbum.Genres,
			Properties:  extAlbum.Properties,
		})
		return err
	})
	if err != nil {
		return err
	}

	// Skip tracks already present under this album; re-downloading a
	// playlist must not duplicate them.
	if _, found, err := store.TrackFindByName(ctx, c.db.Handle(), album.ID, extTrack.Name); err != nil {
		return err
	} else if found {
		return nil
	}

	raw, err := c.downloadToTemp(ctx, service, externalID)
	if err != nil {
		return err
	}
	defer os.Remove(raw)

	transcoded, err := c.transcode(ctx, raw)
	if err != nil {
		return err
	}
	defer os.Remove(transcoded)

	f, err := os.Open(transcoded)
	if err != nil {
		return sonar.WrapInternal("open transcoded audio", err)
	}
	defer f.Close()

	audio, err := c.AudioCreate(ctx, transcodeMime, extTrack.Name+".mp3", f)
	if err != nil {
		return err
	}

	audioID := audio.ID
	track, err := c.TrackCreate(ctx, sonar.TrackCreate{
		Name:       extTrack.Name,
		Album:      album.ID,
		Duration:   extTrack.Duration,
		Audio:      &audioID,
		Properties: extTrack.Properties,
	})
	if err != nil {
		return err
	}
	slog.Info("external track ingested", "track", track.ID, "external_id", externalID)
	return nil
}

func (c *Context) downloadToTemp(ctx context.Context, service sonar.ExternalService, id sonar.ExternalMediaID) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	stream, err := service.DownloadTrack(ctx, id)
	if err != nil {
		return "", sonar.WrapInternal("download external track", err)
	}
	defer stream.Close()

	tmp, err := os.CreateTemp("", "sonar-download-*")
	if err != nil {
		return "", sonar.WrapInternal("create temp file", err)
	}
	if _, err := io.Copy(tmp, stream); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", sonar.WrapInternal("drain external track", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", sonar.WrapInternal("flush temp file", err)
	}
	return tmp.Name(), nil
}

// Per-call timeout wrappers around the external service fetches.

func (c *Context) callFetchTrack(ctx context.Context, s sonar.ExternalService, id sonar.ExternalMediaID) (sonar.ExternalTrack, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	track, err := s.FetchTrack(ctx, id)
	if err != nil {
		return sonar.ExternalTrack{}, sonar.WrapInternal("fetch external track", err)
	}
	return track, nil
}

func (c *Context) callFetchAlbum(ctx context.Context, s sonar.ExternalService, id sonar.ExternalMediaID) (sonar.ExternalAlbum, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	album, err := s.FetchAlbum(ctx, id)
	if err != nil {
		return sonar.ExternalAlbum{}, sonar.WrapInternal("fetch external album", err)
	}
	return album, nil
}

func (c *Context) callFetchArtist(ctx context.Context, s sonar.ExternalService, id sonar.ExternalMediaID) (sonar.ExternalArtist, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	artist, err := s.FetchArtist(ctx, id)
	if err != nil {
		return sonar.ExternalArtist{}, sonar.WrapInternal("fetch external artist", err)
	}
	return artist, nil
}

func (c *Context) callFetchPlaylist(ctx context.Context, s sonar.ExternalService, id sonar.ExternalMediaID) (sonar.ExternalPlaylist, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	playlist, err := s.FetchPlaylist(ctx, id)
	if err != nil {
		return sonar.ExternalPlaylist{}, sonar.WrapInternal("fetch external playlist", err)
	}
	return playlist, nil
}
