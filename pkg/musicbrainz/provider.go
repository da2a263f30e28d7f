package musicbrainz

import (
	"context"
	"time"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// Matches below this search score are too uncertain to apply.
const minScore = 90

// Provider implements the metadata-provider contract on top of the
// MusicBrainz API and the Cover Art Archive.
type Provider struct {
	client *client
}

// NewProvider builds a provider with its own rate-limited client.
func NewProvider() *Provider {
	return &Provider{client: newClient()}
}

func (p *Provider) Identifier() string { return "musicbrainz" }

func (p *Provider) ArtistMetadata(ctx context.Context, req sonar.ArtistMetadataRequest) (sonar.ArtistMetadata, error) {
	resp, err := p.client.searchArtist(ctx, req.Artist.Name)
	if err != nil {
		return sonar.ArtistMetadata{}, err
	}
	if len(resp.Artists) == 0 || resp.Artists[0].Score < minScore {
		return sonar.ArtistMetadata{}, nil
	}
	best := resp.Artists[0]

	md := sonar.ArtistMetadata{
		Name:       best.Name,
		Genres:     genresFrom(best.Genres),
		Properties: sonar.Properties{},
	}
	if value, err := sonar.ParsePropertyValue(best.ID); err == nil {
		md.Properties[sonar.PropExternalMusicBrainzID] = value
	}
	return md, nil
}

func (p *Provider) AlbumMetadata(ctx context.Context, req sonar.AlbumMetadataRequest) (sonar.AlbumMetadata, error) {
	resp, err := p.client.searchReleaseGroup(ctx, req.Album.Name, req.Artist.Name)
	if err != nil {
		return sonar.AlbumMetadata{}, err
	}
	if len(resp.ReleaseGroups) == 0 || resp.ReleaseGroups[0].Score < minScore {
		return sonar.AlbumMetadata{}, nil
	}
	best := resp.ReleaseGroups[0]

	md := sonar.AlbumMetadata{
		Name:       best.Title,
		Genres:     genresFrom(best.Genres),
		Properties: sonar.Properties{},
	}
	if value, err := sonar.ParsePropertyValue(best.ID); err == nil {
		md.Properties[sonar.PropExternalMusicBrainzID] = value
	}
	if t, err := time.Parse("2006-01-02", best.FirstRelease); err == nil {
		md.ReleaseDate = &t
	} else if t, err := time.Parse("2006", best.FirstRelease); err == nil {
		md.ReleaseDate = &t
	}

	// Cover art is best-effort; a release group without one is common.
	if req.Album.CoverArt == nil {
		if data, err := p.client.fetchCoverArt(ctx, best.ID); err == nil && len(data) > 0 {
			md.Cover = &sonar.ExtractedImage{MimeType: "image/jpeg", Data: data}
		}
	}
	return md, nil
}

func (p *Provider) TrackMetadata(ctx context.Context, req sonar.TrackMetadataRequest) (sonar.TrackMetadata, error) {
	resp, err := p.client.searchRecording(ctx, req.Track.Name, req.Artist.Name)
	if err != nil {
		return sonar.TrackMetadata{}, err
	}
	if len(resp.Recordings) == 0 || resp.Recordings[0].Score < minScore {
		return sonar.TrackMetadata{}, nil
	}
	best := resp.Recordings[0]

	md := sonar.TrackMetadata{
		Name:       best.Title,
		Properties: sonar.Properties{},
	}
	if value, err := sonar.ParsePropertyValue(best.ID); err == nil {
		md.Properties[sonar.PropExternalMusicBrainzID] = value
	}
	if len(best.ISRCs) > 0 {
		if value, err := sonar.ParsePropertyValue(best.ISRCs[0]); err == nil {
			md.Properties[sonar.PropExternalISRC] = value
		}
	}
	return md, nil
}

func genresFrom(raw []mbGenre) sonar.Genres {
	var out sonar.Genres
	for _, g := range raw {
		parsed, err := sonar.ParseGenre(g.Name)
		if err != nil {
			continue
		}
		out = out.With(parsed)
	}
	return out
}
