package external

import (
	"context"
	"io"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// Limited wraps a service so every outbound call first passes through
// a rate limiter shared by all tasks of that service.
type Limited struct {
	service sonar.ExternalService
	limiter *RateLimiter
}

// Limit wraps service with a limiter allowing rps requests per second.
func Limit(service sonar.ExternalService, rps float64) *Limited {
	return &Limited{service: service, limiter: NewRateLimiter(rps)}
}

func (l *Limited) Identifier() string { return l.service.Identifier() }
func (l *Limited) Priority() int      { return l.service.Priority() }

func (l *Limited) Probe(ctx context.Context, id sonar.ExternalMediaID) (sonar.ExternalMediaType, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return sonar.ExternalUnsupported, err
	}
	return l.service.Probe(ctx, id)
}

func (l *Limited) FetchArtist(ctx context.Context, id sonar.ExternalMediaID) (sonar.ExternalArtist, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return sonar.ExternalArtist{}, err
	}
	return l.service.FetchArtist(ctx, id)
}

func (l *Limited) FetchAlbum(ctx context.Context, id sonar.ExternalMediaID) (sonar.ExternalAlbum, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return sonar.ExternalAlbum{}, err
	}
	return l.service.FetchAlbum(ctx, id)
}

func (l *Limited) FetchTrack(ctx context.Context, id sonar.ExternalMediaID) (sonar.ExternalTrack, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return sonar.ExternalTrack{}, err
	}
	return l.service.FetchTrack(ctx, id)
}

func (l *Limited) FetchPlaylist(ctx context.Context, id sonar.ExternalMediaID) (sonar.ExternalPlaylist, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return sonar.ExternalPlaylist{}, err
	}
	return l.service.FetchPlaylist(ctx, id)
}

func (l *Limited) DownloadTrack(ctx context.Context, id sonar.ExternalMediaID) (io.ReadCloser, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.service.DownloadTrack(ctx, id)
}
