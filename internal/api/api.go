// Package api is the HTTP facade over the library engine. It
// translates requests into in-process calls and engine errors onto
// HTTP status codes; it holds no logic of its own.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sonarhq/sonar/pkg/library"
	"github.com/sonarhq/sonar/pkg/sonar"
)

// Service handles the HTTP routes.
type Service struct {
	lib *library.Context
}

// New returns a Service over the given library.
func New(lib *library.Context) *Service {
	return &Service{lib: lib}
}

// Router builds the full route tree.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/auth/login", s.login)
	r.Post("/auth/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/artists", s.listArtists)
		r.Post("/artists", s.createArtist)
		r.Get("/artists/{id}", s.getArtist)
		r.Patch("/artists/{id}", s.updateArtist)
		r.Delete("/artists/{id}", s.deleteArtist)
		r.Get("/artists/{id}/albums", s.listArtistAlbums)
		r.Post("/artists/{id}/metadata", s.fetchArtistMetadata)
		r.Post("/albums/{id}/metadata", s.fetchAlbumMetadata)
		r.Post("/tracks/{id}/metadata", s.fetchTrackMetadata)

		r.Get("/albums", s.listAlbums)
		r.Get("/albums/{id}", s.getAlbum)
		r.Delete("/albums/{id}", s.deleteAlbum)
		r.Get("/albums/{id}/tracks", s.listAlbumTracks)

		r.Get("/tracks", s.listTracks)
		r.Get("/tracks/{id}", s.getTrack)
		r.Delete("/tracks/{id}", s.deleteTrack)
		r.Get("/tracks/{id}/stream", s.streamTrack)
		r.Get("/tracks/{id}/lyrics", s.trackLyrics)

		r.Get("/images/{id}", s.getImage)

		r.Post("/import", s.importTrack)

		r.Get("/playlists", s.listPlaylists)
		r.Post("/playlists", s.createPlaylist)
		r.Get("/playlists/{id}", s.getPlaylist)
		r.Delete("/playlists/{id}", s.deletePlaylist)
		r.Get("/playlists/{id}/tracks", s.listPlaylistTracks)
		r.Post("/playlists/{id}/tracks", s.addPlaylistTracks)
		r.Delete("/playlists/{id}/tracks", s.removePlaylistTracks)

		r.Get("/favorites", s.listFavorites)
		r.Put("/favorites/{id}", s.putFavorite)
		r.Delete("/favorites/{id}", s.removeFavorite)

		r.Get("/pins", s.listPins)
		r.Put("/pins/{id}", s.putPin)
		r.Delete("/pins/{id}", s.removePin)

		r.Get("/scrobbles", s.listScrobbles)
		r.Post("/scrobbles", s.createScrobble)

		r.Get("/subscriptions", s.listSubscriptions)
		r.Post("/subscriptions", s.createSubscription)
		r.Delete("/subscriptions", s.deleteSubscription)

		r.Get("/downloads", s.listDownloads)
		r.Post("/downloads", s.requestDownload)

		r.Get("/search", s.search)
	})
	return r
}

// --- auth ---

type ctxKey string

const ctxUserID ctxKey = "user_id"

func (s *Service) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			raw = r.URL.Query().Get("token")
		}
		userID, err := s.lib.UserValidateToken(r.Context(), sonar.UserToken(raw))
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromCtx(r *http.Request) sonar.UserID {
	id, _ := r.Context().Value(ctxUserID).(sonar.UserID)
	return id
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "invalid JSON"))
		return
	}
	username, err := sonar.ParseUsername(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, token, err := s.lib.UserLogin(r.Context(), username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": userID.String(),
		"token":   token.String(),
	})
}

func (s *Service) logout(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := s.lib.UserLogout(r.Context(), sonar.UserToken(raw)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func listParams(r *http.Request) sonar.ListParams {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return sonar.ListParams{Offset: offset, Limit: limit}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the engine error taxonomy onto HTTP status codes.
// The message is forwarded verbatim; stack traces never leave the
// process.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch sonar.KindOf(err) {
	case sonar.ErrNotFound:
		status = http.StatusNotFound
	case sonar.ErrInvalid:
		status = http.StatusBadRequest
	case sonar.ErrUnauthorized:
		status = http.StatusUnauthorized
	}
	message := err.Error()
	var se *sonar.Error
	if errors.As(err, &se) {
		message = se.Message
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func slogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}
