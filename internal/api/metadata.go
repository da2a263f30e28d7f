package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sonarhq/sonar/pkg/sonar"
)

func providerParam(r *http.Request) string {
	if p := r.URL.Query().Get("provider"); p != "" {
		return p
	}
	return "musicbrainz"
}

func (s *Service) fetchArtistMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseArtistID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	artist, err := s.lib.ArtistMetadataFetch(r.Context(), providerParam(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArtistBody(artist))
}

func (s *Service) fetchAlbumMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseAlbumID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	album, err := s.lib.AlbumMetadataFetch(r.Context(), providerParam(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlbumBody(album))
}

func (s *Service) fetchTrackMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseTrackID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	track, err := s.lib.TrackMetadataFetch(r.Context(), providerParam(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackBody(track))
}
