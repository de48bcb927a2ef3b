package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/logging"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

type BatchProcessor interface {
	ProcessBatch(ctx context.Context, deviceID string, req syncproto.SyncRequest) (*syncproto.SyncResponse, error)
}

type Authenticator interface {
	Enabled() bool
	IssueToken(ctx context.Context, req syncproto.TokenRequest) (*syncproto.TokenResponse, error)
	Authenticate(token string) (string, error)
}

type handlers struct {
	sync   BatchProcessor
	auth   Authenticator
	logger logging.Logger
	now    func() time.Time
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, syncproto.HealthResponse{Status: "UP"})
}

func (h *handlers) syncHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, syncproto.HealthResponse{
		Status:    "UP",
		Service:   "sync",
		Timestamp: h.now().UnixMilli(),
	})
}

func (h *handlers) token(w http.ResponseWriter, r *http.Request) {
	var req syncproto.TokenRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.auth.IssueToken(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, common.ErrAuthDisabled):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid enrollment key")
	default:
		h.logger.Error(r.Context(), "token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *handlers) syncBatch(w http.ResponseWriter, r *http.Request) {
	var req syncproto.SyncRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.sync.ProcessBatch(r.Context(), DeviceID(r.Context()), req)
	if err != nil {
		h.logger.Error(r.Context(), "sync batch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
