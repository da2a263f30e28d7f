package library

import (
	"context"
	"log/slog"
	"time"

	"github.com/sonarhq/sonar/pkg/sonar"
	"github.com/sonarhq/sonar/pkg/store"
)

const (
	subscriptionPollInterval = time.Minute
	scrobbleSubmitInterval   = 20 * time.Second
	playlistCoverInterval    = 30 * time.Minute
	indexRebuildInterval     = 15 * time.Minute
)

// startWorkers spawns the long-lived cooperative loops. Each loop
// logs and swallows per-iteration errors; none terminates because a
// single iteration failed. All of them stop when the context is
// cancelled and are joined on Close.
func (c *Context) startWorkers(ctx context.Context) {
	c.spawnLoop(ctx, "subscriptions", subscriptionPollInterval, c.subscriptionIteration)
	for _, s := range c.scrobblers {
		scrobbler := s
		c.spawnLoop(ctx, "scrobbler:"+scrobbler.Identifier(), scrobbleSubmitInterval,
			func(ctx context.Context) error {
				return c.scrobblerIteration(ctx, scrobbler)
			})
	}
	c.spawnLoop(ctx, "playlist-covers", playlistCoverInterval, c.playlistCoverIteration)
	c.spawnLoop(ctx, "index-rebuild", indexRebuildInterval, c.RebuildIndexes)
	if c.cfg.GCInterval > 0 {
		c.spawnLoop(ctx, "gc", c.cfg.GCInterval, c.GCSweep)
	}
}

func (c *Context) spawnLoop(ctx context.Context, name string, interval time.Duration, iteration func(context.Context) error) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if err := iteration(ctx); err != nil {
				slog.Error("worker iteration failed", "worker", name, "err", err)
			}
		}
	}()
}

// subscriptionIteration submits every subscription whose interval has
// elapsed since its last submission, i.e. enqueues a download of its
// external id for the subscribing user.
func (c *Context) subscriptionIteration(ctx context.Context) error {
	subscriptions, err := store.SubscriptionListAll(ctx, c.db.Handle())
	if err != nil {
		return err
	}
	for _, sub := range subscriptions {
		if sub.Interval == nil {
			continue
		}
		if sub.LastSubmitted != nil && sub.LastSubmitted.Elapsed() < *sub.Interval {
			continue
		}
		if err := c.SubscriptionSubmit(ctx, sub.ID); err != nil {
			return err
		}
	}
	return nil
}

// SubscriptionSubmit enqueues the subscription's download and stamps
// its submission time.
func (c *Context) SubscriptionSubmit(ctx context.Context, id sonar.SubscriptionID) error {
	sub, err := store.SubscriptionGet(ctx, c.db.Handle(), id)
	if err != nil {
		return err
	}
	if _, err := c.DownloadRequest(ctx, sub.User, sub.ExternalID); err != nil {
		return err
	}
	return store.SubscriptionMarkSubmitted(ctx, c.db.Handle(), id, sonar.Now())
}

// scrobblerIteration submits unsubmitted scrobbles to one scrobbler.
// Submission is idempotent per (scrobble, scrobbler); a crash between
// the external call and the submission record may submit the same
// scrobble twice, which scrobblers must tolerate.
func (c *Context) scrobblerIteration(ctx context.Context, scrobbler sonar.Scrobbler) error {
	var userFilter *sonar.UserID
	if username := scrobbler.Username(); username != "" {
		id, ok, err := c.UserLookup(ctx, username)
		if err != nil {
			return err
		}
		if !ok {
			slog.Warn("scrobbler user not found", "scrobbler", scrobbler.Identifier(), "username", username)
			return nil
		}
		userFilter = &id
	}

	scrobbles, err := store.ScrobbleListUnsubmitted(ctx, c.db.Handle(), scrobbler.Identifier(), userFilter)
	if err != nil {
		return err
	}
	for _, scrobble := range scrobbles {
		target, err := c.scrobbleTarget(ctx, scrobble)
		if err != nil {
			slog.Error("scrobble target resolution failed", "scrobble", scrobble.ID, "err", err)
			continue
		}
		if err := scrobbler.Scrobble(ctx, target); err != nil {
			slog.Error("scrobble submission failed",
				"scrobbler", scrobbler.Identifier(), "scrobble", scrobble.ID, "err", err)
			continue
		}
		if err := store.ScrobbleRegisterSubmission(ctx, c.db.Handle(), scrobble.ID, scrobbler.Identifier()); err != nil {
			return err
		}
		slog.Info("scrobbled", "scrobbler", scrobbler.Identifier(), "scrobble", scrobble.ID)
	}
	return nil
}

func (c *Context) scrobbleTarget(ctx context.Context, scrobble sonar.Scrobble) (sonar.ScrobbleTarget, error) {
	track, err := c.TrackGet(ctx, scrobble.Track)
	if err != nil {
		return sonar.ScrobbleTarget{}, err
	}
	album, err := c.AlbumGet(ctx, track.Album)
	if err != nil {
		return sonar.ScrobbleTarget{}, err
	}
	artist, err := c.ArtistGet(ctx, album.Artist)
	if err != nil {
		return sonar.ScrobbleTarget{}, err
	}
	return sonar.ScrobbleTarget{Scrobble: scrobble, Track: track, Album: album, Artist: artist}, nil
}

// playlistCoverIteration attaches a synthesized cover to every
// playlist without one.
func (c *Context) playlistCoverIteration(ctx context.Context) error {
	playlists, err := c.PlaylistList(ctx, sonar.ListAll())
	if err != nil {
		return err
	}
	for _, playlist := range playlists {
		if playlist.CoverArt != nil {
			continue
		}
		if err := c.PlaylistGenerateCover(ctx, playlist.ID); err != nil {
			if sonar.IsNotFound(err) {
				continue
			}
			slog.Error("playlist cover generation failed", "playlist", playlist.ID, "err", err)
		}
	}
	return nil
}
