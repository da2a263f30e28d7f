package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sonarhq/sonar/pkg/library"
	"github.com/sonarhq/sonar/pkg/sonar"
)

// Wire representations. All ids serialize as "sonar:<kind>:<n>".

type artistBody struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	CoverArt    string            `json:"cover_art,omitempty"`
	AlbumCount  uint32            `json:"album_count"`
	ListenCount uint32            `json:"listen_count"`
	Genres      []string          `json:"genres"`
	Properties  map[string]string `json:"properties"`
}

func toArtistBody(a sonar.Artist) artistBody {
	b := artistBody{
		ID:          a.ID.String(),
		Name:        a.Name,
		AlbumCount:  a.AlbumCount,
		ListenCount: a.ListenCount,
		Genres:      genreStrings(a.Genres),
		Properties:  propertyStrings(a.Properties),
	}
	if a.CoverArt != nil {
		b.CoverArt = a.CoverArt.String()
	}
	return b
}

type albumBody struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Artist      string            `json:"artist"`
	CoverArt    string            `json:"cover_art,omitempty"`
	ReleaseDate string            `json:"release_date,omitempty"`
	TrackCount  uint32            `json:"track_count"`
	ListenCount uint32            `json:"listen_count"`
	Genres      []string          `json:"genres"`
	Properties  map[string]string `json:"properties"`
}

func toAlbumBody(a sonar.Album) albumBody {
	b := albumBody{
		ID:          a.ID.String(),
		Name:        a.Name,
		Artist:      a.Artist.String(),
		TrackCount:  a.TrackCount,
		ListenCount: a.ListenCount,
		Genres:      genreStrings(a.Genres),
		Properties:  propertyStrings(a.Properties),
	}
	if a.CoverArt != nil {
		b.CoverArt = a.CoverArt.String()
	}
	if a.ReleaseDate != nil {
		b.ReleaseDate = a.ReleaseDate.Format(time.RFC3339)
	}
	return b
}

type trackBody struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Album       string            `json:"album"`
	Artist      string            `json:"artist"`
	DurationMs  int64             `json:"duration_ms"`
	CoverArt    string            `json:"cover_art,omitempty"`
	ListenCount uint32            `json:"listen_count"`
	Properties  map[string]string `json:"properties"`
}

func toTrackBody(t sonar.Track) trackBody {
	b := trackBody{
		ID:          t.ID.String(),
		Name:        t.Name,
		Album:       t.Album.String(),
		Artist:      t.Artist.String(),
		DurationMs:  t.Duration.Milliseconds(),
		ListenCount: t.ListenCount,
		Properties:  propertyStrings(t.Properties),
	}
	if t.CoverArt != nil {
		b.CoverArt = t.CoverArt.String()
	}
	return b
}

type playlistBody struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	CoverArt   string `json:"cover_art,omitempty"`
	TrackCount uint32 `json:"track_count"`
}

func toPlaylistBody(p sonar.Playlist) playlistBody {
	b := playlistBody{
		ID:         p.ID.String(),
		Name:       p.Name,
		Owner:      p.Owner.String(),
		TrackCount: p.TrackCount,
	}
	if p.CoverArt != nil {
		b.CoverArt = p.CoverArt.String()
	}
	return b
}

func genreStrings(genres sonar.Genres) []string {
	out := make([]string, 0, len(genres))
	for _, g := range genres.Sorted() {
		out = append(out, g.String())
	}
	return out
}

func propertyStrings(props sonar.Properties) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k.String()] = v.String()
	}
	return out
}

func parseGenresAndProperties(rawGenres []string, rawProps map[string]string) (sonar.Genres, sonar.Properties, error) {
	genres, err := sonar.ParseGenres(rawGenres)
	if err != nil {
		return nil, nil, err
	}
	props := sonar.Properties{}
	for k, v := range rawProps {
		key, err := sonar.ParsePropertyKey(k)
		if err != nil {
			return nil, nil, err
		}
		value, err := sonar.ParsePropertyValue(v)
		if err != nil {
			return nil, nil, err
		}
		props[key] = value
	}
	return genres, props, nil
}

// --- artists ---

func (s *Service) listArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := s.lib.ArtistList(r.Context(), listParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]artistBody, 0, len(artists))
	for _, a := range artists {
		out = append(out, toArtistBody(a))
	}
	writeJSON(w, http.StatusOK, out)
}

type createArtistRequest struct {
	Name       string            `json:"name"`
	Genres     []string          `json:"genres"`
	Properties map[string]string `json:"properties"`
}

func (s *Service) createArtist(w http.ResponseWriter, r *http.Request) {
	var req createArtistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "invalid JSON"))
		return
	}
	genres, props, err := parseGenresAndProperties(req.Genres, req.Properties)
	if err != nil {
		writeError(w, err)
		return
	}
	artist, err := s.lib.ArtistCreate(r.Context(), sonar.ArtistCreate{
		Name:       req.Name,
		Genres:     genres,
		Properties: props,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toArtistBody(artist))
}

func (s *Service) getArtist(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseArtistID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	artist, err := s.lib.ArtistGet(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArtistBody(artist))
}

type updateArtistRequest struct {
	Name         *string           `json:"name"`
	AddGenres    []string          `json:"add_genres"`
	RemoveGenres []string          `json:"remove_genres"`
	SetProps     map[string]string `json:"set_properties"`
	RemoveProps  []string          `json:"remove_properties"`
}

func (s *Service) updateArtist(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseArtistID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateArtistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "invalid JSON"))
		return
	}
	var update sonar.ArtistUpdate
	if req.Name != nil {
		update.Name = sonar.Set(*req.Name)
	}
	for _, raw := range req.AddGenres {
		g, err := sonar.ParseGenre(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		update.Genres = append(update.Genres, sonar.SetGenre(g))
	}
	for _, raw := range req.RemoveGenres {
		g, err := sonar.ParseGenre(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		update.Genres = append(update.Genres, sonar.UnsetGenre(g))
	}
	for k, v := range req.SetProps {
		key, err := sonar.ParsePropertyKey(k)
		if err != nil {
			writeError(w, err)
			return
		}
		value, err := sonar.ParsePropertyValue(v)
		if err != nil {
			writeError(w, err)
			return
		}
		update.Properties = append(update.Properties, sonar.SetProperty(key, value))
	}
	for _, k := range req.RemoveProps {
		key, err := sonar.ParsePropertyKey(k)
		if err != nil {
			writeError(w, err)
			return
		}
		update.Properties = append(update.Properties, sonar.RemoveProperty(key))
	}
	artist, err := s.lib.ArtistUpdate(r.Context(), id, update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArtistBody(artist))
}

func (s *Service) deleteArtist(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseArtistID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.lib.ArtistDelete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) listArtistAlbums(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseArtistID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	albums, err := s.lib.AlbumListByArtist(r.Context(), id, listParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]albumBody, 0, len(albums))
	for _, a := range albums {
		out = append(out, toAlbumBody(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// --- albums ---

func (s *Service) listAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := s.lib.AlbumList(r.Context(), listParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]albumBody, 0, len(albums))
	for _, a := range albums {
		out = append(out, toAlbumBody(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) getAlbum(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseAlbumID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	album, err := s.lib.AlbumGet(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlbumBody(album))
}

func (s *Service) deleteAlbum(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseAlbumID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.lib.AlbumDelete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) listAlbumTracks(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseAlbumID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	tracks, err := s.lib.TrackListByAlbum(r.Context(), id, listParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]trackBody, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, toTrackBody(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// --- tracks ---

func (s *Service) listTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.lib.TrackList(r.Context(), listParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]trackBody, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, toTrackBody(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) getTrack(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseTrackID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	track, err := s.lib.TrackGet(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackBody(track))
}

func (s *Service) deleteTrack(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseTrackID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.lib.TrackDelete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) trackLyrics(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseTrackID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	lyrics, err := s.lib.TrackGetLyrics(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	kind := "plain"
	if lyrics.Kind == sonar.LyricsSynced {
		kind = "synced"
	}
	writeJSON(w, http.StatusOK, map[string]string{"kind": kind, "text": lyrics.Text})
}

// --- import ---

func (s *Service) importTrack(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "missing file field"))
		return
	}
	defer file.Close()

	track, err := s.lib.ImportTrack(r.Context(), library.Import{
		Artist:   r.FormValue("artist"),
		Album:    r.FormValue("album"),
		Filepath: header.Filename,
		Stream:   file,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTrackBody(track))
}

// --- playlists ---

func (s *Service) listPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.lib.PlaylistListByUser(r.Context(), userFromCtx(r), listParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]playlistBody, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, toPlaylistBody(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type createPlaylistRequest struct {
	Name   string   `json:"name"`
	Tracks []string `json:"tracks"`
}

func (s *Service) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "invalid JSON"))
		return
	}
	tracks, err := parseTrackIDs(req.Tracks)
	if err != nil {
		writeError(w, err)
		return
	}
	playlist, err := s.lib.PlaylistCreate(r.Context(), sonar.PlaylistCreate{
		Name:   req.Name,
		Owner:  userFromCtx(r),
		Tracks: tracks,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlaylistBody(playlist))
}

func (s *Service) getPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParsePlaylistID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	playlist, err := s.lib.PlaylistGet(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaylistBody(playlist))
}

func (s *Service) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParsePlaylistID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.lib.PlaylistDelete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) listPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParsePlaylistID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	tracks, err := s.lib.PlaylistListTracks(r.Context(), id, listParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]trackBody, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, toTrackBody(t))
	}
	writeJSON(w, http.StatusOK, out)
}

type playlistTracksRequest struct {
	Tracks []string `json:"tracks"`
}

func (s *Service) addPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParsePlaylistID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req playlistTracksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "invalid JSON"))
		return
	}
	tracks, err := parseTrackIDs(req.Tracks)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.lib.PlaylistInsertTracks(r.Context(), id, tracks); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) removePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParsePlaylistID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req playlistTracksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "invalid JSON"))
		return
	}
	tracks, err := parseTrackIDs(req.Tracks)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.lib.PlaylistRemoveTracks(r.Context(), id, tracks); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseTrackIDs(raw []string) ([]sonar.TrackID, error) {
	out := make([]sonar.TrackID, 0, len(raw))
	for _, s := range raw {
		id, err := sonar.ParseTrackID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// --- favorites & pins ---

func (s *Service) listFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := s.lib.FavoriteList(r.Context(), userFromCtx(r))
	if err != nil {
		writeError(w, err)
		return
	}
	type favoriteBody struct {
		ID         string `json:"id"`
		FavoriteAt int64  `json:"favorite_at"`
	}
	out := make([]favoriteBody, 0, len(favorites))
	for _, f := range favorites {
		out = append(out, favoriteBody{ID: f.ID.String(), FavoriteAt: int64(f.FavoriteAt.Seconds)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) putFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.lib.FavoritePut(r.Context(), userFromCtx(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) removeFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.lib.FavoriteRemove(r.Context(), userFromCtx(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) listPins(w http.ResponseWriter, r *http.Request) {
	pins, err := s.lib.PinList(r.Context(), userFromCtx(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]string, 0, len(pins))
	for _, id := range pins {
		out = append(out, id.String())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) putPin(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.lib.PinSet(r.Context(), userFromCtx(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) removePin(w http.ResponseWriter, r *http.Request) {
	id, err := sonar.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.lib.PinUnset(r.Context(), userFromCtx(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- scrobbles ---

func (s *Service) listScrobbles(w http.ResponseWriter, r *http.Request) {
	scrobbles, err := s.lib.ScrobbleList(r.Context(), listParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	type scrobbleBody struct {
		ID          string   `json:"id"`
		User        string   `json:"user"`
		Track       string   `json:"track"`
		ListenAt    int64    `json:"listen_at"`
		ListenMs    int64    `json:"listen_ms"`
		Device      string   `json:"listen_device,omitempty"`
		Submissions []string `json:"submissions,omitempty"`
	}
	out := make([]scrobbleBody, 0, len(scrobbles))
	for _, sc := range scrobbles {
		out = append(out, scrobbleBody{
			ID:          sc.ID.String(),
			User:        sc.User.String(),
			Track:       sc.Track.String(),
			ListenAt:    int64(sc.ListenAt.Seconds),
			ListenMs:    sc.ListenDuration.Milliseconds(),
			Device:      sc.ListenDevice,
			Submissions: sc.Submissions,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type createScrobbleRequest struct {
	Track    string `json:"track"`
	ListenAt int64  `json:"listen_at"`
	ListenMs int64  `json:"listen_ms"`
	Device   string `json:"listen_device"`
}

func (s *Service) createScrobble(w http.ResponseWriter, r *http.Request) {
	var req createScrobbleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "invalid JSON"))
		return
	}
	track, err := sonar.ParseTrackID(req.Track)
	if err != nil {
		writeError(w, err)
		return
	}
	listenAt := sonar.Now()
	if req.ListenAt > 0 {
		listenAt = sonar.TimestampFromSeconds(uint64(req.ListenAt))
	}
	scrobble, err := s.lib.ScrobbleCreate(r.Context(), sonar.ScrobbleCreate{
		User:           userFromCtx(r),
		Track:          track,
		ListenAt:       listenAt,
		ListenDuration: time.Duration(req.ListenMs) * time.Millisecond,
		ListenDevice:   req.Device,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": scrobble.ID.String()})
}

// --- subscriptions & downloads ---

func (s *Service) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.lib.SubscriptionList(r.Context(), userFromCtx(r))
	if err != nil {
		writeError(w, err)
		return
	}
	type subscriptionBody struct {
		ExternalID   string `json:"external_id"`
		Description  string `json:"description,omitempty"`
		IntervalSecs int64  `json:"interval_secs,omitempty"`
	}
	out := make([]subscriptionBody, 0, len(subs))
	for _, sub := range subs {
		b := subscriptionBody{ExternalID: sub.ExternalID.String(), Description: sub.Description}
		if sub.Interval != nil {
			b.IntervalSecs = int64(sub.Interval.Seconds())
		}
		out = append(out, b)
	}
	writeJSON(w, http.StatusOK, out)
}

type subscriptionRequest struct {
	ExternalID   string `json:"external_id"`
	Description  string `json:"description"`
	IntervalSecs int64  `json:"interval_secs"`
}

func (s *Service) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "invalid JSON"))
		return
	}
	create := sonar.SubscriptionCreate{
		User:        userFromCtx(r),
		ExternalID:  sonar.ExternalMediaID(req.ExternalID),
		Description: req.Description,
	}
	if req.IntervalSecs > 0 {
		interval := time.Duration(req.IntervalSecs) * time.Second
		create.Interval = &interval
	}
	if err := s.lib.SubscriptionCreate(r.Context(), create); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Service) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	externalID := r.URL.Query().Get("external_id")
	if externalID == "" {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "external_id is required"))
		return
	}
	if err := s.lib.SubscriptionDelete(r.Context(), userFromCtx(r), sonar.ExternalMediaID(externalID)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) listDownloads(w http.ResponseWriter, r *http.Request) {
	downloads, err := s.lib.DownloadList(r.Context(), userFromCtx(r))
	if err != nil {
		writeError(w, err)
		return
	}
	type downloadBody struct {
		ID         string `json:"id"`
		ExternalID string `json:"external_id"`
		Status     string `json:"status"`
		Attempts   int    `json:"attempts"`
		Error      string `json:"error,omitempty"`
	}
	out := make([]downloadBody, 0, len(downloads))
	for _, d := range downloads {
		out = append(out, downloadBody{
			ID:         d.ID.String(),
			ExternalID: d.ExternalID.String(),
			Status:     d.Status.String(),
			Attempts:   d.Attempts,
			Error:      d.Error,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type downloadRequestBody struct {
	ExternalID string `json:"external_id"`
}

func (s *Service) requestDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, sonar.NewError(sonar.ErrInvalid, "invalid JSON"))
		return
	}
	download, err := s.lib.DownloadRequest(r.Context(), userFromCtx(r), sonar.ExternalMediaID(req.ExternalID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     download.ID.String(),
		"status": download.Status.String(),
	})
}

// --- search ---

func (s *Service) search(w http.ResponseWriter, r *http.Request) {
	flags := sonar.SearchFlagAll
	if raw := r.URL.Query().Get("kinds"); raw != "" {
		flags = 0
		for _, kind := range splitComma(raw) {
			switch kind {
			case "artist":
				flags |= sonar.SearchFlagArtist
			case "album":
				flags |= sonar.SearchFlagAlbum
			case "track":
				flags |= sonar.SearchFlagTrack
			case "playlist":
				flags |= sonar.SearchFlagPlaylist
			default:
				writeError(w, sonar.Errorf(sonar.ErrInvalid, "unknown search kind %q", kind))
				return
			}
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := s.lib.Search(r.Context(), userFromCtx(r), sonar.SearchQuery{
		Query: r.URL.Query().Get("q"),
		Limit: limit,
		Flags: flags,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	type searchResponse struct {
		Artists   []artistBody   `json:"artists"`
		Albums    []albumBody    `json:"albums"`
		Tracks    []trackBody    `json:"tracks"`
		Playlists []playlistBody `json:"playlists"`
	}
	resp := searchResponse{
		Artists:   []artistBody{},
		Albums:    []albumBody{},
		Tracks:    []trackBody{},
		Playlists: []playlistBody{},
	}
	for _, a := range results.Artists() {
		resp.Artists = append(resp.Artists, toArtistBody(a))
	}
	for _, a := range results.Albums() {
		resp.Albums = append(resp.Albums, toAlbumBody(a))
	}
	for _, t := range results.Tracks() {
		resp.Tracks = append(resp.Tracks, toTrackBody(t))
	}
	for _, p := range results.Playlists() {
		resp.Playlists = append(resp.Playlists, toPlaylistBody(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
