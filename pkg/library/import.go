package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/sonarhq/sonar/pkg/extractor"
	"github.com/sonarhq/sonar/pkg/sonar"
	"github.com/sonarhq/sonar/pkg/store"
)

// Import is one upload entering the catalog. Artist and Album, when
// set, override extracted metadata; Filepath is the client-side name
// used for fallbacks and mime sniffing.
type Import struct {
	Artist   string
	Album    string
	Filepath string
	Stream   io.Reader
}

// ImportTrack runs the ingestion pipeline: drain the stream to a temp
// file, extract and merge metadata, find-or-create the artist and
// album, store the audio blob under its content hash, create the
// track and link the audio. Re-importing the same stream does not
// duplicate artists, albums or blobs.
func (c *Context) ImportTrack(ctx context.Context, imp Import) (sonar.Track, error) {
	tmp, err := os.CreateTemp("", "sonar-import-*")
	if err != nil {
		return sonar.Track{}, sonar.WrapInternal("create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), imp.Stream); err != nil {
		tmp.Close()
		return sonar.Track{}, sonar.WrapInternal("drain import stream", err)
	}
	if err := tmp.Close(); err != nil {
		return sonar.Track{}, sonar.WrapInternal("flush temp file", err)
	}
	contentHash := hex.EncodeToString(hasher.Sum(nil))

	md := extractor.ExtractMerged(c.extractors, tmpPath)

	artistName := resolveArtistName(imp, md)
	albumName := resolveAlbumName(imp, md)
	trackName := resolveTrackName(imp, md)
	if artistName == "" || albumName == "" || trackName == "" {
		return sonar.Track{}, sonar.NewError(sonar.ErrInvalid,
			"import has no artist, album or title after metadata and filename resolution")
	}

	// The audio blob is keyed by content hash so duplicate uploads
	// collapse to one stored copy.
	blobKey := "audio/sha256-" + contentHash
	audioFile, err := os.Open(tmpPath)
	if err != nil {
		return sonar.Track{}, sonar.WrapInternal("reopen temp file", err)
	}
	defer audioFile.Close()

	var coverArt *sonar.ImageID
	if md.CoverArt != nil {
		imageID, err := c.ImageCreate(ctx, sonar.ImageCreate{
			MimeType: md.CoverArt.MimeType,
			Data:     md.CoverArt.Data,
		})
		if err != nil {
			slog.Warn("import cover art failed", "path", imp.Filepath, "err", err)
		} else {
			coverArt = &imageID
		}
	}

	var track sonar.Track
	var wroteBlob bool
	err = c.db.WithTx(ctx, func(tx store.DBTX) error {
		artist, err := store.FindOrCreateArtist(ctx, tx, artistName, sonar.ArtistCreate{
			Genres: md.Genres,
		})
		if err != nil {
			return err
		}
		album, err := store.FindOrCreateAlbum(ctx, tx, artist.ID, albumName, sonar.AlbumCreate{
			ReleaseDate: md.ReleaseDate,
			CoverArt:    coverArt,
			Genres:      md.Genres,
		})
		if err != nil {
			return err
		}

		// A re-import of the same (artist, album, track name) tuple
		// returns the existing track instead of duplicating it.
		if existing, found, err := store.TrackFindByName(ctx, tx, album.ID, trackName); err != nil {
			return err
		} else if found {
			track = existing
			return nil
		}

		audio, exists, err := store.AudioByBlobKey(ctx, tx, blobKey)
		if err != nil {
			return err
		}
		if !exists {
			if err := c.blobs.Write(ctx, blobKey, audioFile); err != nil {
				return sonar.WrapInternal("write audio blob", err)
			}
			wroteBlob = true
			fi, err := os.Stat(tmpPath)
			if err != nil {
				return sonar.WrapInternal("stat temp file", err)
			}
			audio, err = store.AudioCreate(ctx, tx, sonar.AudioCreate{
				BlobKey:  blobKey,
				Size:     fi.Size(),
				MimeType: mimeForFilename(imp.Filepath),
				Filename: filepath.Base(imp.Filepath),
			})
			if err != nil {
				return err
			}
		}

		props := sonar.Properties{}
		if md.TrackNumber > 0 {
			props[sonar.PropTrackNumber] = sonar.MustPropertyValue(fmt.Sprint(md.TrackNumber))
		}
		if md.DiscNumber > 0 {
			props[sonar.PropDiscNumber] = sonar.MustPropertyValue(fmt.Sprint(md.DiscNumber))
		}

		audioID := audio.ID
		track, err = store.TrackCreate(ctx, tx, sonar.TrackCreate{
			Name:       trackName,
			Album:      album.ID,
			Duration:   md.Duration,
			CoverArt:   coverArt,
			Audio:      &audioID,
			Properties: props,
		})
		return err
	})
	if err != nil {
		// Partial catalog writes rolled back with the transaction; a
		// freshly written blob must go too.
		if wroteBlob {
			_ = c.blobs.Delete(ctx, blobKey)
		}
		return sonar.Track{}, err
	}

	c.search.SynchronizeTrack(ctx, track.ID)
	slog.Info("imported track", "track", track.ID, "artist", artistName, "album", albumName, "name", trackName)
	return track, nil
}

// Artist resolution: override, extracted, filename stem before the
// first " - ", then "Unknown Artist".
func resolveArtistName(imp Import, md sonar.ExtractedMetadata) string {
	if imp.Artist != "" {
		return strings.TrimSpace(imp.Artist)
	}
	if md.Artist != "" {
		return strings.TrimSpace(md.Artist)
	}
	stem := filenameStem(imp.Filepath)
	if before, _, ok := strings.Cut(stem, " - "); ok {
		if name := strings.TrimSpace(before); name != "" {
			return name
		}
	}
	return "Unknown Artist"
}

func resolveAlbumName(imp Import, md sonar.ExtractedMetadata) string {
	if imp.Album != "" {
		return strings.TrimSpace(imp.Album)
	}
	if md.Album != "" {
		return strings.TrimSpace(md.Album)
	}
	return "Unknown Album"
}

// Track resolution: extracted title, filename stem after " - ", then
// the original filename.
func resolveTrackName(imp Import, md sonar.ExtractedMetadata) string {
	if md.Title != "" {
		return strings.TrimSpace(md.Title)
	}
	if imp.Filepath == "" {
		return ""
	}
	stem := filenameStem(imp.Filepath)
	if _, after, ok := strings.Cut(stem, " - "); ok {
		if name := strings.TrimSpace(after); name != "" {
			return name
		}
	}
	return strings.TrimSpace(filepath.Base(imp.Filepath))
}

func filenameStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func mimeForFilename(path string) string {
	if m := mime.TypeByExtension(filepath.Ext(path)); m != "" {
		return m
	}
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".") {
	case "mp3":
		return "audio/mpeg"
	case "flac":
		return "audio/flac"
	case "ogg":
		return "audio/ogg"
	case "wav":
		return "audio/wav"
	}
	return "application/octet-stream"
}
