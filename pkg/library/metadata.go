package library

import (
	"context"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// Metadata providers fetch richer metadata for entities already in
// the catalog and fold it in: names fill gaps, genres union, existing
// properties win over provider properties, and covers attach only
// where none is set.

func (c *Context) provider(name string) (sonar.MetadataProvider, error) {
	for _, p := range c.providers {
		if p.Identifier() == name {
			return p, nil
		}
	}
	return nil, sonar.Errorf(sonar.ErrInvalid, "unknown metadata provider %q", name)
}

// MetadataProviders lists the registered provider identifiers.
func (c *Context) MetadataProviders() []string {
	out := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, p.Identifier())
	}
	return out
}

// ArtistMetadataFetch asks one provider about an artist and applies
// the result.
func (c *Context) ArtistMetadataFetch(ctx context.Context, providerName string, id sonar.ArtistID) (sonar.Artist, error) {
	provider, err := c.provider(providerName)
	if err != nil {
		return sonar.Artist{}, err
	}
	artist, err := c.ArtistGet(ctx, id)
	if err != nil {
		return sonar.Artist{}, err
	}
	md, err := provider.ArtistMetadata(ctx, sonar.ArtistMetadataRequest{Artist: artist})
	if err != nil {
		return sonar.Artist{}, sonar.WrapInternal("fetch artist metadata", err)
	}

	var update sonar.ArtistUpdate
	for _, g := range md.Genres {
		update.Genres = append(update.Genres, sonar.SetGenre(g))
	}
	update.Properties = newProperties(artist.Properties, md.Properties)
	if artist.CoverArt == nil && md.Cover != nil {
		imageID, err := c.ImageCreate(ctx, sonar.ImageCreate{MimeType: md.Cover.MimeType, Data: md.Cover.Data})
		if err != nil {
			return sonar.Artist{}, err
		}
		update.CoverArt = sonar.Set(imageID)
	}
	return c.ArtistUpdate(ctx, id, update)
}

// AlbumMetadataFetch asks one provider about an album and applies the
// result.
func (c *Context) AlbumMetadataFetch(ctx context.Context, providerName string, id sonar.AlbumID) (sonar.Album, error) {
	provider, err := c.provider(providerName)
	if err != nil {
		return sonar.Album{}, err
	}
	album, err := c.AlbumGet(ctx, id)
	if err != nil {
		return sonar.Album{}, err
	}
	artist, err := c.ArtistGet(ctx, album.Artist)
	if err != nil {
		return sonar.Album{}, err
	}
	md, err := provider.AlbumMetadata(ctx, sonar.AlbumMetadataRequest{Artist: artist, Album: album})
	if err != nil {
		return sonar.Album{}, sonar.WrapInternal("fetch album metadata", err)
	}

	var update sonar.AlbumUpdate
	for _, g := range md.Genres {
		update.Genres = append(update.Genres, sonar.SetGenre(g))
	}
	update.Properties = newProperties(album.Properties, md.Properties)
	if md.ReleaseDate != nil && album.ReleaseDate == nil {
		update.Properties = append(update.Properties, sonar.SetProperty(
			sonar.PropReleaseDate,
			sonar.MustPropertyValue(md.ReleaseDate.Format("2006-01-02"))))
	}
	if album.CoverArt == nil && md.Cover != nil {
		imageID, err := c.ImageCreate(ctx, sonar.ImageCreate{MimeType: md.Cover.MimeType, Data: md.Cover.Data})
		if err != nil {
			return sonar.Album{}, err
		}
		update.CoverArt = sonar.Set(imageID)
	}
	return c.AlbumUpdate(ctx, id, update)
}

// TrackMetadataFetch asks one provider about a track and applies the
// result.
func (c *Context) TrackMetadataFetch(ctx context.Context, providerName string, id sonar.TrackID) (sonar.Track, error) {
	provider, err := c.provider(providerName)
	if err != nil {
		return sonar.Track{}, err
	}
	track, err := c.TrackGet(ctx, id)
	if err != nil {
		return sonar.Track{}, err
	}
	album, err := c.AlbumGet(ctx, track.Album)
	if err != nil {
		return sonar.Track{}, err
	}
	artist, err := c.ArtistGet(ctx, album.Artist)
	if err != nil {
		return sonar.Track{}, err
	}
	md, err := provider.TrackMetadata(ctx, sonar.TrackMetadataRequest{Artist: artist, Album: album, Track: track})
	if err != nil {
		return sonar.Track{}, sonar.WrapInternal("fetch track metadata", err)
	}

	update := sonar.TrackUpdate{
		Properties: newProperties(track.Properties, md.Properties),
	}
	return c.TrackUpdate(ctx, id, update)
}

// newProperties keeps only the provider properties the entity does
// not already carry.
func newProperties(existing, fetched sonar.Properties) []sonar.PropertyUpdate {
	var updates []sonar.PropertyUpdate
	for _, key := range fetched.Keys() {
		if _, have := existing[key]; have {
			continue
		}
		updates = append(updates, sonar.SetProperty(key, fetched[key]))
	}
	return updates
}
