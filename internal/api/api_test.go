package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarhq/sonar/internal/api"
	"github.com/sonarhq/sonar/pkg/library"
	"github.com/sonarhq/sonar/pkg/sonar"
)

func newTestServer(t *testing.T) (*httptest.Server, *library.Context) {
	t.Helper()
	lib, err := library.New(context.Background(), library.Config{
		DatabasePath:   ":memory:",
		DisableWorkers: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	server := httptest.NewServer(api.New(lib).Router())
	t.Cleanup(server.Close)
	return server, lib
}

func login(t *testing.T, server *httptest.Server, lib *library.Context) string {
	t.Helper()
	_, err := lib.UserCreate(context.Background(), sonar.UserCreate{
		Username: "admin",
		Password: "admin1234",
	})
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "admin1234"})
	resp, err := http.Post(server.URL+"/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out["token"])
	return out["token"]
}

func doJSON(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestLoginAndListArtists(t *testing.T) {
	server, lib := newTestServer(t)
	token := login(t, server, lib)

	resp := doJSON(t, http.MethodGet, server.URL+"/artists", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var artists []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&artists))
	assert.Empty(t, artists)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/artists")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestArtistCRUDOverHTTP(t *testing.T) {
	server, lib := newTestServer(t)
	token := login(t, server, lib)

	resp := doJSON(t, http.MethodPost, server.URL+"/artists", token, map[string]any{
		"name":       "Artist",
		"genres":     []string{"heavy metal"},
		"properties": map[string]string{"key1": "value1"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	id := created["id"].(string)
	assert.Contains(t, id, "sonar:artist:")

	resp = doJSON(t, http.MethodGet, server.URL+"/artists/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, "Artist", got["name"])

	resp = doJSON(t, http.MethodDelete, server.URL+"/artists/"+id, token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/artists/"+id, token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	server, lib := newTestServer(t)
	token := login(t, server, lib)

	// Malformed id → 400.
	resp := doJSON(t, http.MethodGet, server.URL+"/artists/banana", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Missing entity → 404.
	resp = doJSON(t, http.MethodGet, server.URL+"/artists/sonar:artist:999", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Bad credentials → 401.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong1234"})
	loginResp, err := http.Post(server.URL+"/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	loginResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, loginResp.StatusCode)
}

func TestImportAndStream(t *testing.T) {
	server, lib := newTestServer(t)
	token := login(t, server, lib)

	audio := []byte("pretend this is an mp3 payload")
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", "Band - Song.mp3")
	require.NoError(t, err)
	_, err = part.Write(audio)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, server.URL+"/import", &form)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var track map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&track))
	resp.Body.Close()
	trackID := track["id"].(string)

	// Full stream round-trips the bytes.
	resp = doJSON(t, http.MethodGet, server.URL+"/tracks/"+trackID+"/stream", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	streamed, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, audio, streamed)

	// Range requests return the selected window.
	req, err = http.NewRequest(http.MethodGet, server.URL+"/tracks/"+trackID+"/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Range", "bytes=0-6")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("bytes 0-6/%d", len(audio)), resp.Header.Get("Content-Range"))
	window, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, audio[:7], window)
}
