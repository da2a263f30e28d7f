package external

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarhq/sonar/pkg/sonar"
)

type fakeService struct {
	id       string
	priority int
	kind     sonar.ExternalMediaType
	probes   int
}

func (f *fakeService) Identifier() string { return f.id }
func (f *fakeService) Priority() int      { return f.priority }

func (f *fakeService) Probe(context.Context, sonar.ExternalMediaID) (sonar.ExternalMediaType, error) {
	f.probes++
	return f.kind, nil
}

func (f *fakeService) FetchArtist(context.Context, sonar.ExternalMediaID) (sonar.ExternalArtist, error) {
	return sonar.ExternalArtist{}, nil
}
func (f *fakeService) FetchAlbum(context.Context, sonar.ExternalMediaID) (sonar.ExternalAlbum, error) {
	return sonar.ExternalAlbum{}, nil
}
func (f *fakeService) FetchTrack(context.Context, sonar.ExternalMediaID) (sonar.ExternalTrack, error) {
	return sonar.ExternalTrack{}, nil
}
func (f *fakeService) FetchPlaylist(context.Context, sonar.ExternalMediaID) (sonar.ExternalPlaylist, error) {
	return sonar.ExternalPlaylist{}, nil
}
func (f *fakeService) DownloadTrack(context.Context, sonar.ExternalMediaID) (io.ReadCloser, error) {
	return nil, nil
}

func TestRegistryPriorityOrder(t *testing.T) {
	low := &fakeService{id: "low", priority: 10, kind: sonar.ExternalTrackType}
	high := &fakeService{id: "high", priority: 1, kind: sonar.ExternalTrackType}
	registry := NewRegistry([]sonar.ExternalService{low, high})

	service, kind, err := registry.Resolve(context.Background(), "svc:track:1")
	require.NoError(t, err)
	assert.Equal(t, "high", service.Identifier())
	assert.Equal(t, sonar.ExternalTrackType, kind)
	// The lower-priority service was never consulted.
	assert.Zero(t, low.probes)
}

func TestRegistrySkipsUnsupported(t *testing.T) {
	unsupported := &fakeService{id: "nope", priority: 1, kind: sonar.ExternalUnsupported}
	handles := &fakeService{id: "yes", priority: 2, kind: sonar.ExternalAlbumType}
	registry := NewRegistry([]sonar.ExternalService{unsupported, handles})

	service, kind, err := registry.Resolve(context.Background(), "svc:album:1")
	require.NoError(t, err)
	assert.Equal(t, "yes", service.Identifier())
	assert.Equal(t, sonar.ExternalAlbumType, kind)
	assert.Equal(t, 1, unsupported.probes)
}

func TestRegistryNoHandler(t *testing.T) {
	registry := NewRegistry(nil)
	_, _, err := registry.Resolve(context.Background(), "svc:track:1")
	assert.True(t, sonar.IsInvalid(err))
}

func TestResourceIndex(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewResourceIndex(dir)
	require.NoError(t, err)

	// Missing file means empty list.
	ids, err := idx.List()
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, idx.Add("svc:album:1"))
	require.NoError(t, idx.Add("svc:album:2"))
	require.NoError(t, idx.Add("svc:album:1"))

	ids, err = idx.List()
	require.NoError(t, err)
	assert.Equal(t, []sonar.ExternalMediaID{"svc:album:1", "svc:album:2"}, ids)

	// Survives a fresh index over the same directory.
	idx2, err := NewResourceIndex(dir)
	require.NoError(t, err)
	ids, err = idx2.List()
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	require.NoError(t, idx2.Remove("svc:album:1"))
	ids, err = idx2.List()
	require.NoError(t, err)
	assert.Equal(t, []sonar.ExternalMediaID{"svc:album:2"}, ids)
}

func TestRateLimiterSpacing(t *testing.T) {
	limiter := NewRateLimiter(50) // 20ms interval
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestRateLimiterCancellation(t *testing.T) {
	limiter := NewRateLimiter(0.1) // 10s interval
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, limiter.Wait(ctx))
	cancel()
	assert.Error(t, limiter.Wait(ctx))
}

func TestRSSIDParsing(t *testing.T) {
	svc := NewRSSService(1)

	kind, err := svc.Probe(context.Background(), "rss:https://example.com/feed.xml")
	require.NoError(t, err)
	assert.Equal(t, sonar.ExternalAlbumType, kind)

	kind, err = svc.Probe(context.Background(), "rss:https://example.com/feed.xml#3")
	require.NoError(t, err)
	assert.Equal(t, sonar.ExternalTrackType, kind)

	kind, err = svc.Probe(context.Background(), "spotify:track:abc")
	require.NoError(t, err)
	assert.Equal(t, sonar.ExternalUnsupported, kind)
}
