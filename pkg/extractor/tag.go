package extractor

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// TagExtractor reads container tags (ID3, Vorbis comments, MP4 atoms)
// and, for FLAC, the STREAMINFO header for an authoritative duration.
type TagExtractor struct{}

func NewTagExtractor() *TagExtractor { return &TagExtractor{} }

func (*TagExtractor) CodecAware() bool { return true }

func (*TagExtractor) Extract(path string) (sonar.ExtractedMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return sonar.ExtractedMetadata{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	var md sonar.ExtractedMetadata

	m, err := tag.ReadFrom(f)
	if err == nil {
		md.Title = m.Title()
		md.Album = m.Album()
		md.Artist = firstNonEmpty(m.Artist(), m.AlbumArtist())
		if n, _ := m.Track(); n > 0 {
			md.TrackNumber = uint32(n)
		}
		if d, _ := m.Disc(); d > 0 {
			md.DiscNumber = uint32(d)
		}
		if y := m.Year(); y > 0 {
			t := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
			md.ReleaseDate = &t
		}
		if g, err := sonar.ParseGenre(m.Genre()); err == nil {
			md.Genres = md.Genres.With(g)
		}
		if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
			mime := pic.MIMEType
			if mime == "" {
				mime = "image/jpeg"
			}
			md.CoverArt = &sonar.ExtractedImage{MimeType: mime, Data: pic.Data}
		}
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "flac" {
		if d := flacDuration(f); d > 0 {
			md.Duration = d
		}
	}
	return md, nil
}

// flacDuration reads the FLAC STREAMINFO block for sample rate and
// total samples. Returns zero for unparseable headers.
func flacDuration(f *os.File) time.Duration {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0
	}
	// 4-byte "fLaC" marker + 4-byte block header + 34-byte STREAMINFO.
	buf := make([]byte, 42)
	if _, err := io.ReadFull(f, buf); err != nil {
		return 0
	}
	if string(buf[0:4]) != "fLaC" || buf[4]&0x7F != 0 {
		return 0
	}
	if binary.BigEndian.Uint32([]byte{0, buf[5], buf[6], buf[7]}) != 34 {
		return 0
	}
	si := buf[8:]
	// Bit layout (FLAC spec, big-endian):
	//   bits  80-99:  sample rate (20 bits)
	//   bits 108-143: total samples (36 bits)
	sampleRate := int64(uint32(si[10])<<12 | uint32(si[11])<<4 | uint32(si[12])>>4)
	totalSamples := int64(si[13]&0x0F)<<32 |
		int64(si[14])<<24 | int64(si[15])<<16 |
		int64(si[16])<<8 | int64(si[17])
	if sampleRate <= 0 || totalSamples <= 0 {
		return 0
	}
	return time.Duration(totalSamples * int64(time.Second) / sampleRate)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
