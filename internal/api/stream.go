package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// streamTrack serves a track's preferred audio rendition with HTTP
// range request support. Bytes are copied in fixed-size chunks so
// multi-GB audio never buffers.
func (s *Service) streamTrack(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseTrackID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	audio, probe, err := s.lib.AudioOpen(r.Context(), id, sonar.RangeAt(0, 0))
	if err != nil {
		writeError(w, err)
		return
	}
	probe.Close()
	size := audio.Size

	var offset, length int64
	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" {
		start, end, err := parseRange(rangeHeader, size)
		if err != nil {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			http.Error(w, "invalid range", http.StatusRequestedRangeNotSatisfiable)
			return
		}
		offset, length = start, end-start+1
	} else {
		offset, length = 0, size
	}

	_, rc, err := s.lib.AudioOpen(r.Context(), id, sonar.RangeAt(offset, length))
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", audio.MimeType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if rangeHeader != "" {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, size))
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}

	buf := make([]byte, 64*1024)
	_, _ = io.CopyBuffer(w, rc, buf)
}

// getImage serves stored image bytes.
func (s *Service) getImage(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseImageID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	img, rc, err := s.lib.ImageOpen(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = io.Copy(w, rc)
}

// parseRange parses an HTTP Range header. end is inclusive.
func parseRange(rangeHeader string, size int64) (start, end int64, err error) {
	if !strings.HasPrefix(rangeHeader, "bytes=") {
		return 0, 0, fmt.Errorf("unsupported range unit")
	}
	spec := strings.TrimPrefix(rangeHeader, "bytes=")
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid range")
	}

	if parts[0] == "" {
		// Suffix range: bytes=-N
		n, e := strconv.ParseInt(parts[1], 10, 64)
		if e != nil || n <= 0 {
			return 0, 0, fmt.Errorf("invalid range")
		}
		start = size - n
		end = size - 1
	} else {
		start, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return 0, 0, err
		}
		if parts[1] == "" {
			end = size - 1
		} else {
			end, err = strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return 0, 0, err
			}
		}
	}

	if start < 0 || end >= size || start > end {
		return 0, 0, fmt.Errorf("range out of bounds")
	}
	return start, end, nil
}
