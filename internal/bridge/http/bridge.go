package http

import (
	"io"
	"net/http"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/rpc"
	"github.com/ArcheWizard/Password-Manager/pkg/httpx"
)

// maxBodyBytes caps HTTP request bodies, mirroring the socket frame limit.
const maxBodyBytes = 10 << 20

// BridgeHandler translates HTTP requests into dispatcher calls.
type BridgeHandler struct {
	Dispatcher *rpc.Dispatcher
}

func (h *BridgeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxBodyBytes {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	header := make(map[string]string, 2)
	if v := r.Header.Get("Authorization"); v != "" {
		header["Authorization"] = v
	}
	if v := r.Header.Get(rpc.PayloadEncryptionHeader); v != "" {
		header[rpc.PayloadEncryptionHeader] = v
	}

	resp := h.Dispatcher.Dispatch(r.Context(), rpc.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: header,
		Body:   body,
	})

	httpx.NoCache(w)
	httpx.WriteJSON(w, resp.StatusCode, resp.Body)
}
