package external

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// RSSService treats a podcast/RSS feed as an external media source:
// the feed is an album (or playlist) of episode tracks, the feed
// author is the artist, and episode enclosures are the downloadable
// audio.
//
// Ids have the shape "rss:<feed-url>" for the feed itself and
// "rss:<feed-url>#<index>" for one episode.
type RSSService struct {
	http     *resty.Client
	parser   *gofeed.Parser
	priority int
}

// NewRSSService builds the service with the given probe priority.
func NewRSSService(priority int) *RSSService {
	return &RSSService{
		http:     resty.New().SetTimeout(30 * time.Second),
		parser:   gofeed.NewParser(),
		priority: priority,
	}
}

func (s *RSSService) Identifier() string { return "rss" }
func (s *RSSService) Priority() int      { return s.priority }

func splitRSSID(id sonar.ExternalMediaID) (feedURL string, episode int, isEpisode bool, err error) {
	raw, ok := strings.CutPrefix(string(id), "rss:")
	if !ok {
		return "", 0, false, sonar.Errorf(sonar.ErrInvalid, "%q is not an rss id", id)
	}
	feedURL, frag, hasFrag := strings.Cut(raw, "#")
	if !hasFrag {
		return feedURL, 0, false, nil
	}
	n, err := strconv.Atoi(frag)
	if err != nil || n < 0 {
		return "", 0, false, sonar.Errorf(sonar.ErrInvalid, "malformed rss episode id %q", id)
	}
	return feedURL, n, true, nil
}

func episodeID(feedURL string, index int) sonar.ExternalMediaID {
	return sonar.ExternalMediaID(fmt.Sprintf("rss:%s#%d", feedURL, index))
}

func (s *RSSService) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	resp, err := s.http.R().SetContext(ctx).Get(feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %q: %w", feedURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch feed %q: http %d", feedURL, resp.StatusCode())
	}
	feed, err := s.parser.ParseString(resp.String())
	if err != nil {
		return nil, fmt.Errorf("parse feed %q: %w", feedURL, err)
	}
	return feed, nil
}

func (s *RSSService) Probe(ctx context.Context, id sonar.ExternalMediaID) (sonar.ExternalMediaType, error) {
	_, _, isEpisode, err := splitRSSID(id)
	if err != nil {
		return sonar.ExternalUnsupported, nil
	}
	if isEpisode {
		return sonar.ExternalTrackType, nil
	}
	return sonar.ExternalAlbumType, nil
}

func (s *RSSService) FetchArtist(ctx context.Context, id sonar.ExternalMediaID) (sonar.ExternalArtist, error) {
	feedURL, _, _, err := splitRSSID(id)
	if err != nil {
		return sonar.ExternalArtist{}, err
	}
	feed, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		return sonar.ExternalArtist{}, err
	}
	name := feed.Title
	if feed.Author != nil && feed.Author.Name != "" {
		name = feed.Author.Name
	}
	return sonar.ExternalArtist{Name: name}, nil
}

func (s *RSSService) FetchAlbum(ctx context.Context, id sonar.ExternalMediaID) (sonar.ExternalAlbum, error) {
	feedURL, _, _, err := splitRSSID(id)
	if err != nil {
		return sonar.ExternalAlbum{}, err
	}
	feed, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		return sonar.ExternalAlbum{}, err
	}
	album := sonar.ExternalAlbum{
		Name:   feed.Title,
		Artist: sonar.ExternalMediaID("rss:" + feedURL),
	}
	if feed.PublishedParsed != nil {
		t := feed.PublishedParsed.UTC()
		album.ReleaseDate = &t
	}
	return album, nil
}

func (s *RSSService) FetchTrack(ctx context.Context, id sonar.ExternalMediaID) (sonar.ExternalTrack, error) {
	feedURL, index, isEpisode, err := splitRSSID(id)
	if err != nil {
		return sonar.ExternalTrack{}, err
	}
	if !isEpisode {
		return sonar.ExternalTrack{}, sonar.Errorf(sonar.ErrInvalid, "%q is not an episode id", id)
	}
	feed, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		return sonar.ExternalTrack{}, err
	}
	if index >= len(feed.Items) {
		return sonar.ExternalTrack{}, sonar.Errorf(sonar.ErrNotFound, "episode %d not in feed %q", index, feedURL)
	}
	item := feed.Items[index]
	track := sonar.ExternalTrack{
		Name:  item.Title,
		Album: sonar.ExternalMediaID("rss:" + feedURL),
	}
	if item.ITunesExt != nil {
		track.Duration = parseITunesDuration(item.ITunesExt.Duration)
	}
	return track, nil
}

func (s *RSSService) FetchPlaylist(ctx context.Context, id sonar.ExternalMediaID) (sonar.ExternalPlaylist, error) {
	feedURL, _, _, err := splitRSSID(id)
	if err != nil {
		return sonar.ExternalPlaylist{}, err
	}
	feed, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		return sonar.ExternalPlaylist{}, err
	}
	playlist := sonar.ExternalPlaylist{Name: feed.Title}
	for i := range feed.Items {
		playlist.Tracks = append(playlist.Tracks, episodeID(feedURL, i))
	}
	return playlist, nil
}

func (s *RSSService) DownloadTrack(ctx context.Context, id sonar.ExternalMediaID) (io.ReadCloser, error) {
	feedURL, index, isEpisode, err := splitRSSID(id)
	if err != nil {
		return nil, err
	}
	if !isEpisode {
		return nil, sonar.Errorf(sonar.ErrInvalid, "%q is not an episode id", id)
	}
	feed, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	if index >= len(feed.Items) {
		return nil, sonar.Errorf(sonar.ErrNotFound, "episode %d not in feed %q", index, feedURL)
	}
	var enclosureURL string
	for _, enc := range feed.Items[index].Enclosures {
		if strings.HasPrefix(enc.Type, "audio/") || enc.Type == "" {
			enclosureURL = enc.URL
			break
		}
	}
	if enclosureURL == "" {
		return nil, sonar.Errorf(sonar.ErrNotFound, "episode %d of %q has no audio enclosure", index, feedURL)
	}

	resp, err := s.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(enclosureURL)
	if err != nil {
		return nil, fmt.Errorf("download enclosure %q: %w", enclosureURL, err)
	}
	if resp.StatusCode() >= 300 {
		resp.RawBody().Close()
		return nil, fmt.Errorf("download enclosure %q: http %d", enclosureURL, resp.StatusCode())
	}
	return resp.RawBody(), nil
}

func parseITunesDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	parts := strings.Split(raw, ":")
	var total time.Duration
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		total = total*60 + time.Duration(n)*time.Second
	}
	return total
}
