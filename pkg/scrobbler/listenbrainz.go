// Package scrobbler provides scrobbler implementations that submit
// listening events to external services.
package scrobbler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sonarhq/sonar/pkg/sonar"
)

const listenBrainzBase = "https://api.listenbrainz.org"

// ListenBrainz submits listens to the ListenBrainz API on behalf of
// one user. Submission may be retried after a crash; ListenBrainz
// deduplicates by (listened_at, recording), so double submission is
// harmless.
type ListenBrainz struct {
	http     *resty.Client
	token    string
	username sonar.Username
}

// NewListenBrainz builds a scrobbler for the given user token. The
// username scopes submissions to that user's scrobbles.
func NewListenBrainz(username sonar.Username, token string) *ListenBrainz {
	return &ListenBrainz{
		http:     resty.New().SetBaseURL(listenBrainzBase).SetTimeout(15 * time.Second),
		token:    token,
		username: username,
	}
}

func (l *ListenBrainz) Identifier() string       { return "listenbrainz" }
func (l *ListenBrainz) Username() sonar.Username { return l.username }

type submitListensRequest struct {
	ListenType string   `json:"listen_type"`
	Payload    []listen `json:"payload"`
}

type listen struct {
	ListenedAt int64         `json:"listened_at"`
	Metadata   listenTrackMD `json:"track_metadata"`
}

type listenTrackMD struct {
	ArtistName  string `json:"artist_name"`
	TrackName   string `json:"track_name"`
	ReleaseName string `json:"release_name,omitempty"`
}

func (l *ListenBrainz) Scrobble(ctx context.Context, target sonar.ScrobbleTarget) error {
	req := submitListensRequest{
		ListenType: "single",
		Payload: []listen{{
			ListenedAt: int64(target.Scrobble.ListenAt.Seconds),
			Metadata: listenTrackMD{
				ArtistName:  target.Artist.Name,
				TrackName:   target.Track.Name,
				ReleaseName: target.Album.Name,
			},
		}},
	}
	resp, err := l.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Token "+l.token).
		SetBody(req).
		Post("/1/submit-listens")
	if err != nil {
		return fmt.Errorf("submit listen: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("submit listen: http %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
