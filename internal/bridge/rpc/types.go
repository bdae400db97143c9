// Package rpc defines the bridge's logical request surface, shared by the
// HTTP and domain-socket transports. A transport converts its wire format to
// a Request, dispatches it, and writes back the Response.
package rpc

import (
	"encoding/json"
	"strings"
)

// Request is a transport-neutral bridge request.
type Request struct {
	Method string            `json:"method"`
	Path   string            `json:"path"`
	Header map[string]string `json:"headers,omitempty"`
	Body   json.RawMessage   `json:"body,omitempty"`
}

// header looks up a header field case-insensitively.
func (r Request) header(name string) string {
	for k, v := range r.Header {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// BearerToken extracts the token from an Authorization header, or "".
func (r Request) BearerToken() string {
	auth := r.header("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// Response is a transport-neutral bridge response. Body is JSON-encodable.
type Response struct {
	StatusCode int `json:"status_code"`
	Body       any `json:"body"`
}

type pairRequest struct {
	Code        string `json:"code"`
	Fingerprint string `json:"fingerprint"`
	ClientLabel string `json:"browser"`
}

type queryRequest struct {
	Origin        string `json:"origin"`
	AllowAutofill bool   `json:"allow_autofill"`
}

type checkRequest struct {
	Origin   string `json:"origin"`
	Username string `json:"username"`
}

type storeRequest struct {
	Origin   string        `json:"origin"`
	Title    string        `json:"title"`
	Username string        `json:"username"`
	Password string        `json:"password"`
	Metadata storeMetadata `json:"metadata"`
}

type storeMetadata struct {
	URL     string `json:"url,omitempty"`
	SavedAt string `json:"saved_at,omitempty"`
}

type auditRequest struct {
	Summary string `json:"summary"`
}

type revokeRequest struct {
	Token string `json:"token,omitempty"`
}
