// Package musicbrainz is a metadata provider backed by the
// MusicBrainz API. See https://musicbrainz.org/doc/MusicBrainz_API.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sonarhq/sonar/pkg/external"
)

const (
	baseURL      = "https://musicbrainz.org/ws/2"
	coverArtBase = "https://coverartarchive.org"
	userAgent    = "sonar/0.1 (https://github.com/sonarhq/sonar)"
)

// client is a rate-limited MusicBrainz API client. MusicBrainz allows
// one request per second per client.
type client struct {
	http    *http.Client
	limiter *external.RateLimiter
}

func newClient() *client {
	return &client{
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: external.NewRateLimiter(1),
	}
}

func (c *client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := baseURL + path
	if strings.Contains(u, "?") {
		u += "&fmt=json"
	} else {
		u += "?fmt=json"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("musicbrainz: http %d for %s", resp.StatusCode, path)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("musicbrainz: parse %s: %w", path, err)
	}
	return nil
}

type mbGenre struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type artistResult struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Score  int       `json:"score"`
	Genres []mbGenre `json:"genres"`
}

type artistSearchResponse struct {
	Artists []artistResult `json:"artists"`
}

func (c *client) searchArtist(ctx context.Context, name string) (*artistSearchResponse, error) {
	path := fmt.Sprintf("/artist/?query=artist:%s&limit=5&inc=genres", url.QueryEscape(quoteQuery(name)))
	var resp artistSearchResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type releaseGroupResult struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	FirstRelease string    `json:"first-release-date"`
	Score        int       `json:"score"`
	Genres       []mbGenre `json:"genres"`
}

type releaseGroupSearchResponse struct {
	ReleaseGroups []releaseGroupResult `json:"release-groups"`
}

func (c *client) searchReleaseGroup(ctx context.Context, title, artist string) (*releaseGroupSearchResponse, error) {
	q := fmt.Sprintf("releasegroup:%s AND artist:%s", quoteQuery(title), quoteQuery(artist))
	path := fmt.Sprintf("/release-group/?query=%s&limit=5", url.QueryEscape(q))
	var resp releaseGroupSearchResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type recordingResult struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Score int      `json:"score"`
	ISRCs []string `json:"isrcs"`
}

type recordingSearchResponse struct {
	Recordings []recordingResult `json:"recordings"`
}

func (c *client) searchRecording(ctx context.Context, title, artist string) (*recordingSearchResponse, error) {
	q := fmt.Sprintf("recording:%s AND artist:%s", quoteQuery(title), quoteQuery(artist))
	path := fmt.Sprintf("/recording/?query=%s&limit=5&inc=isrcs", url.QueryEscape(q))
	var resp recordingSearchResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// fetchCoverArt pulls the front cover of a release group from the
// Cover Art Archive. Returns nil when no cover exists.
func (c *client) fetchCoverArt(ctx context.Context, releaseGroupID string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/release-group/%s/front-500", coverArtBase, url.PathEscape(releaseGroupID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("coverartarchive: http %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// quoteQuery wraps a value in quotes for Lucene query syntax.
func quoteQuery(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
