package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL+"/", 5*time.Second, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com", time.Second, time.Second)
	require.Error(t, err)

	_, err = NewHTTPClient("://", time.Second, time.Second)
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusOK, syncproto.HealthResponse{Status: "UP", Service: "sync", Timestamp: 1})
	})

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, []string{backendHealthPath, healthPath}, paths)
}

func TestPing_BackendDown(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == backendHealthPath {
			writeJSON(w, http.StatusServiceUnavailable, syncproto.ErrorResponse{Error: "db down"})
			return
		}
		writeJSON(w, http.StatusOK, syncproto.HealthResponse{Status: "UP"})
	})

	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
	assert.Equal(t, []string{backendHealthPath}, paths)
}

func TestHealth_AsksSyncEndpoint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, healthPath, r.URL.Path)
		writeJSON(w, http.StatusOK, syncproto.HealthResponse{Status: "UP", Service: "sync", Timestamp: 1})
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sync", h.Service)
}

func TestPing_NotUp(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, syncproto.HealthResponse{Status: "DOWN"})
	})

	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestPing_ServerGone(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, time.Second, 200*time.Millisecond)
	require.NoError(t, err)

	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestSync_SendsBatchAndBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, syncPath, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req syncproto.SyncRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Entities, 1)

		writeJSON(w, http.StatusOK, syncproto.SyncResponse{
			Results: []syncproto.SyncResult{syncproto.Accept(req.Entities[0].LocalID, 7)},
		})
	})
	c.SetAccessToken("tok")

	resp, err := c.Sync(context.Background(), syncproto.SyncRequest{Entities: []syncproto.SyncEntity{{
		LocalID: "a", Type: syncproto.TypeRecipe, Data: map[string]any{"name": "x"}, Version: 1, Timestamp: 1, Checksum: "c",
	}}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].Accepted)
	assert.Equal(t, int64(7), *resp.Results[0].ServerID)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
		{"unavailable", http.StatusServiceUnavailable, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, syncproto.ErrorResponse{Error: "nope"})
			})

			_, err := c.Sync(context.Background(), syncproto.SyncRequest{})
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestStatusMapping_BadRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, syncproto.ErrorResponse{Error: "malformed request"})
	})

	_, err := c.Token(context.Background(), syncproto.TokenRequest{DeviceID: "d", EnrollmentKey: "k"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "malformed request")
}

func TestToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tokenPath, r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, syncproto.TokenResponse{AccessToken: "jwt", ExpiresAt: 99})
	})

	resp, err := c.Token(context.Background(), syncproto.TokenRequest{DeviceID: "d", EnrollmentKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.AccessToken)
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Ping(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
