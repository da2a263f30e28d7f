// Package extractor runs metadata extractors over audio files and
// merges their partial results into one view.
package extractor

import (
	"log/slog"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// Named pairs an extractor with the name it was registered under.
type Named struct {
	Name      string
	Extractor sonar.Extractor
}

// ExtractAll runs every registered extractor on path, in registration
// order. Extractor failures are logged and skipped; extraction only
// fails when no extractor succeeds at all and at least one was
// registered.
func ExtractAll(extractors []Named, path string) []Result {
	var results []Result
	for _, e := range extractors {
		md, err := e.Extractor.Extract(path)
		if err != nil {
			slog.Warn("metadata extraction failed", "extractor", e.Name, "path", path, "err", err)
			continue
		}
		results = append(results, Result{Metadata: md, CodecAware: e.Extractor.CodecAware()})
	}
	return results
}

// Result is one extractor's output tagged with whether the extractor
// decodes the audio stream itself.
type Result struct {
	Metadata   sonar.ExtractedMetadata
	CodecAware bool
}

// Merge unifies partial metadata field by field: the first non-zero
// value wins for scalars, genres are a set union, cover art prefers
// the first non-empty image, and duration prefers the value reported
// by a codec-aware extractor.
func Merge(results []Result) sonar.ExtractedMetadata {
	var out sonar.ExtractedMetadata
	for _, r := range results {
		md := r.Metadata
		if out.Title == "" {
			out.Title = md.Title
		}
		if out.Album == "" {
			out.Album = md.Album
		}
		if out.Artist == "" {
			out.Artist = md.Artist
		}
		if out.TrackNumber == 0 {
			out.TrackNumber = md.TrackNumber
		}
		if out.DiscNumber == 0 {
			out.DiscNumber = md.DiscNumber
		}
		if out.ReleaseDate == nil {
			out.ReleaseDate = md.ReleaseDate
		}
		if out.CoverArt == nil && md.CoverArt != nil && len(md.CoverArt.Data) > 0 {
			out.CoverArt = md.CoverArt
		}
		out.Genres = out.Genres.Union(md.Genres)
	}

	// Duration: a codec-aware extractor is authoritative; otherwise the
	// first non-zero value stands.
	for _, r := range results {
		if r.CodecAware && r.Metadata.Duration > 0 {
			out.Duration = r.Metadata.Duration
			break
		}
	}
	if out.Duration == 0 {
		for _, r := range results {
			if r.Metadata.Duration > 0 {
				out.Duration = r.Metadata.Duration
				break
			}
		}
	}
	return out
}

// ExtractMerged is the convenience path used by the import pipeline.
func ExtractMerged(extractors []Named, path string) sonar.ExtractedMetadata {
	return Merge(ExtractAll(extractors, path))
}
