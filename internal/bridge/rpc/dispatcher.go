package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/domain"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/service"
	"github.com/ArcheWizard/Password-Manager/internal/vault"
	"github.com/ArcheWizard/Password-Manager/pkg/cryptox"
)

// PayloadEncryptionHeader opts a client into envelope-encrypted response
// bodies. The only recognized value is "v1".
const PayloadEncryptionHeader = "X-Payload-Encryption"

// Vault is the slice of the credential vault the bridge consumes.
type Vault interface {
	ListCredentials(ctx context.Context) ([]vault.Credential, error)
	Decrypt(encrypted []byte) (string, error)
	Encrypt(plaintext string) ([]byte, error)
	StoreCredential(ctx context.Context, c vault.Credential) (int64, error)
}

// Dispatcher routes bridge requests to the underlying services. Both
// transports call Dispatch concurrently; all shared state lives behind the
// services' own locks.
type Dispatcher struct {
	Tokens    *service.TokenService
	Pairing   *service.PairingService
	Approvals *service.ApprovalService
	Vault     Vault
	Logger    *slog.Logger

	Host            string
	Port            int
	TLSEnabled      bool
	CertFingerprint string

	// Running reports listener liveness for the status endpoint.
	Running func() bool
}

// Dispatch handles one request. Errors never escape as Go errors; every
// outcome is a structured status code and body.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	switch {
	case req.Path == "/v1/status" && req.Method == http.MethodGet:
		return d.status()
	case req.Path == "/v1/pair" && req.Method == http.MethodPost:
		return d.pair(ctx, req)
	case req.Path == "/v1/credentials/query" && req.Method == http.MethodPost:
		return d.authenticated(ctx, req, d.credentialsQuery)
	case req.Path == "/v1/credentials/check" && req.Method == http.MethodPost:
		return d.authenticated(ctx, req, d.credentialsCheck)
	case req.Path == "/v1/credentials/store" && req.Method == http.MethodPost:
		return d.authenticated(ctx, req, d.credentialsStore)
	case req.Path == "/v1/audit/report" && req.Method == http.MethodPost:
		return d.authenticated(ctx, req, d.auditReport)
	case req.Path == "/v1/clipboard/clear" && req.Method == http.MethodPost:
		return d.authenticated(ctx, req, d.clipboardClear)
	case req.Path == "/v1/tokens/revoke" && req.Method == http.MethodPost:
		return d.authenticated(ctx, req, d.tokensRevoke)
	}

	switch req.Path {
	case "/v1/status", "/v1/pair", "/v1/credentials/query", "/v1/credentials/check",
		"/v1/credentials/store", "/v1/audit/report", "/v1/clipboard/clear", "/v1/tokens/revoke":
		return errorResponse(http.StatusMethodNotAllowed, "method not allowed")
	}
	return errorResponse(http.StatusNotFound, "not found")
}

func errorResponse(code int, msg string) Response {
	return Response{StatusCode: code, Body: map[string]string{"error": msg}}
}

func (d *Dispatcher) status() Response {
	running := false
	if d.Running != nil {
		running = d.Running()
	}

	body := map[string]any{
		"status":         "ok",
		"host":           d.Host,
		"port":           d.Port,
		"running":        running,
		"pairing_active": d.Pairing.Active(),
		"tls_enabled":    d.TLSEnabled,
	}
	if d.TLSEnabled && d.CertFingerprint != "" {
		body["cert_fingerprint"] = d.CertFingerprint
	}
	return Response{StatusCode: http.StatusOK, Body: body}
}

func (d *Dispatcher) pair(ctx context.Context, req Request) Response {
	var payload pairRequest
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid request body")
	}

	record, err := d.Pairing.Complete(ctx, payload.Code, payload.Fingerprint, payload.ClientLabel)
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		return errorResponse(http.StatusGone, "no active pairing session")
	case errors.Is(err, service.ErrInvalidCode):
		return errorResponse(http.StatusUnauthorized, "invalid pairing code")
	case err != nil:
		d.Logger.Error("pairing failed", "error", err)
		return errorResponse(http.StatusInternalServerError, "pairing failed")
	}

	d.Logger.Info("issued bridge token",
		"fingerprint", payload.Fingerprint, "browser", payload.ClientLabel)

	return Response{StatusCode: http.StatusOK, Body: map[string]any{
		"token":      record.Token,
		"expires_at": record.ExpiresAt,
	}}
}

type handlerFunc func(ctx context.Context, req Request, token domain.TokenRecord) Response

// authenticated validates the bearer token before running h. Missing and
// invalid tokens are rejected identically.
func (d *Dispatcher) authenticated(ctx context.Context, req Request, h handlerFunc) Response {
	token := req.BearerToken()
	if token == "" {
		return errorResponse(http.StatusUnauthorized, "missing authorization")
	}

	record, err := d.Tokens.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			return errorResponse(http.StatusUnauthorized, "invalid or expired token")
		}
		d.Logger.Error("token validation failed", "error", err)
		return errorResponse(http.StatusInternalServerError, "token validation failed")
	}

	resp := h(ctx, req, record)
	return d.maybeEncrypt(req, resp)
}

// maybeEncrypt wraps a successful response body in an encryption envelope
// when the client asked for it. The envelope key is derived from the
// caller's own bearer token, so only that client can open it.
func (d *Dispatcher) maybeEncrypt(req Request, resp Response) Response {
	if req.header(PayloadEncryptionHeader) != "v1" || resp.StatusCode != http.StatusOK {
		return resp
	}

	enc, err := cryptox.NewPayloadEncryptorFromToken(req.BearerToken())
	if err != nil {
		d.Logger.Error("failed to derive payload encryption key", "error", err)
		return errorResponse(http.StatusInternalServerError, "payload encryption failed")
	}
	envelope, err := enc.Encrypt(resp.Body)
	if err != nil {
		d.Logger.Error("failed to encrypt response payload", "error", err)
		return errorResponse(http.StatusInternalServerError, "payload encryption failed")
	}
	return Response{StatusCode: resp.StatusCode, Body: envelope}
}

// originTerms lowers the origin and derives the bare domain and its first
// label: "https://github.com/login" yields ("https://github.com/login",
// "github.com", "github").
func originTerms(origin string) (full, bareDomain, firstLabel string) {
	full = strings.ToLower(origin)
	bareDomain = strings.TrimPrefix(strings.TrimPrefix(full, "https://"), "http://")
	bareDomain, _, _ = strings.Cut(bareDomain, "/")
	firstLabel = bareDomain
	if i := strings.Index(bareDomain, "."); i >= 0 {
		firstLabel = bareDomain[:i]
	}
	return full, bareDomain, firstLabel
}

// matchesOrigin applies the site/notes substring rule: the full origin, its
// bare domain, or the domain's first label against the site, and the full
// origin or bare domain against the notes.
func matchesOrigin(c vault.Credential, full, bareDomain, firstLabel string) bool {
	site := strings.ToLower(c.Website)
	notes := strings.ToLower(c.Notes)
	return strings.Contains(site, full) ||
		strings.Contains(site, bareDomain) ||
		strings.Contains(site, firstLabel) ||
		strings.Contains(notes, full) ||
		strings.Contains(notes, bareDomain)
}

func (d *Dispatcher) credentialsQuery(ctx context.Context, req Request, token domain.TokenRecord) Response {
	var payload queryRequest
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid request body")
	}
	if payload.Origin == "" {
		return errorResponse(http.StatusBadRequest, "missing origin")
	}

	full, bareDomain, firstLabel := originTerms(payload.Origin)

	credentials, err := d.Vault.ListCredentials(ctx)
	if err != nil {
		d.Logger.Error("failed to list vault credentials", "error", err)
		return errorResponse(http.StatusInternalServerError, "vault unavailable")
	}

	var entries []domain.CredentialEntry
	var usernamePreview string
	for _, c := range credentials {
		if !matchesOrigin(c, full, bareDomain, firstLabel) {
			continue
		}
		password, err := d.Vault.Decrypt(c.EncryptedPassword)
		if err != nil {
			d.Logger.Warn("failed to decrypt vault entry",
				"website", c.Website, "error", err)
			continue
		}
		entries = append(entries, domain.CredentialEntry{
			EntryID:  c.ID,
			Label:    c.Website,
			Website:  c.Website,
			Username: c.Username,
			Password: password,
		})
		if usernamePreview == "" {
			usernamePreview = c.Username
		}
	}

	// Nothing matched; no approval needed for an empty answer.
	if len(entries) == 0 {
		return Response{StatusCode: http.StatusOK, Body: map[string]any{
			"entries": []domain.CredentialEntry{},
		}}
	}

	decision, err := d.Approvals.RequestApproval(ctx, full,
		token.ClientLabel, token.ClientFingerprint, len(entries), usernamePreview)
	if err != nil {
		d.Logger.Warn("approval request failed", "origin", full, "error", err)
		return Response{StatusCode: http.StatusOK, Body: map[string]any{
			"entries": []domain.CredentialEntry{},
			"error":   "Approval request failed",
		}}
	}

	d.Logger.Info("credential access decision",
		"origin", full,
		"decision", decision.Decision,
		"remember", decision.Remember,
		"browser", token.ClientLabel)

	switch decision.Decision {
	case domain.DecisionApproved:
		return Response{StatusCode: http.StatusOK, Body: map[string]any{
			"entries": entries,
		}}
	case domain.DecisionDenied:
		return Response{StatusCode: http.StatusOK, Body: map[string]any{
			"entries": []domain.CredentialEntry{},
			"error":   "Access denied",
		}}
	default:
		return Response{StatusCode: http.StatusOK, Body: map[string]any{
			"entries": []domain.CredentialEntry{},
			"error":   "Request timed out",
		}}
	}
}

func (d *Dispatcher) credentialsCheck(ctx context.Context, req Request, _ domain.TokenRecord) Response {
	var payload checkRequest
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid request body")
	}
	if payload.Origin == "" || payload.Username == "" {
		return errorResponse(http.StatusBadRequest, "missing origin or username")
	}

	full, bareDomain, firstLabel := originTerms(payload.Origin)

	credentials, err := d.Vault.ListCredentials(ctx)
	if err != nil {
		d.Logger.Error("failed to list vault credentials", "error", err)
		return errorResponse(http.StatusInternalServerError, "vault unavailable")
	}

	for _, c := range credentials {
		if !matchesOrigin(c, full, bareDomain, firstLabel) {
			continue
		}
		if c.Username == payload.Username {
			return Response{StatusCode: http.StatusOK, Body: map[string]bool{"exists": true}}
		}
	}
	return Response{StatusCode: http.StatusOK, Body: map[string]bool{"exists": false}}
}

func (d *Dispatcher) credentialsStore(ctx context.Context, req Request, token domain.TokenRecord) Response {
	var payload storeRequest
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid request body")
	}
	if payload.Origin == "" || payload.Username == "" || payload.Password == "" {
		return errorResponse(http.StatusBadRequest, "missing required fields: origin, username, password")
	}

	website := payload.Title
	if website == "" {
		website = payload.Origin
	}

	encrypted, err := d.Vault.Encrypt(payload.Password)
	if err != nil {
		d.Logger.Error("failed to encrypt credential", "error", err)
		return errorResponse(http.StatusInternalServerError, "failed to store credentials")
	}

	label := token.ClientLabel
	if label == "" {
		label = "unknown"
	}
	var notesParts []string
	if payload.Metadata.URL != "" {
		notesParts = append(notesParts, fmt.Sprintf("URL: %s", payload.Metadata.URL))
	}
	if payload.Metadata.SavedAt != "" {
		notesParts = append(notesParts, fmt.Sprintf("Saved: %s", payload.Metadata.SavedAt))
	}
	notesParts = append(notesParts, fmt.Sprintf("Source: Browser Extension (%s)", label))

	_, err = d.Vault.StoreCredential(ctx, vault.Credential{
		Website:           website,
		Username:          payload.Username,
		EncryptedPassword: encrypted,
		Category:          "Web",
		Notes:             strings.Join(notesParts, "\n"),
	})
	if err != nil {
		d.Logger.Error("failed to store credential", "error", err)
		return errorResponse(http.StatusInternalServerError, "failed to store credentials")
	}

	d.Logger.Info("stored credentials from browser",
		"website", website,
		"username", payload.Username,
		"fingerprint", token.ClientFingerprint)

	return Response{StatusCode: http.StatusOK, Body: map[string]string{
		"status":   "saved",
		"website":  website,
		"username": payload.Username,
	}}
}

func (d *Dispatcher) auditReport(_ context.Context, req Request, token domain.TokenRecord) Response {
	var payload auditRequest
	_ = json.Unmarshal(req.Body, &payload)

	summary := payload.Summary
	if summary == "" {
		summary = "n/a"
	}
	d.Logger.Info("received audit report",
		"fingerprint", token.ClientFingerprint, "summary", summary)

	return Response{StatusCode: http.StatusOK, Body: map[string]string{"status": "recorded"}}
}

func (d *Dispatcher) clipboardClear(_ context.Context, _ Request, token domain.TokenRecord) Response {
	d.Logger.Info("clipboard clear requested", "fingerprint", token.ClientFingerprint)
	return Response{StatusCode: http.StatusOK, Body: map[string]string{"status": "cleared"}}
}

// tokensRevoke revokes the caller's own token, or an explicit one from the
// body. Always returns 200 so a retry after success looks identical.
func (d *Dispatcher) tokensRevoke(ctx context.Context, req Request, token domain.TokenRecord) Response {
	var payload revokeRequest
	_ = json.Unmarshal(req.Body, &payload)

	target := payload.Token
	if target == "" {
		target = token.Token
	}

	revoked, err := d.Tokens.Revoke(ctx, target)
	if err != nil {
		d.Logger.Error("failed to revoke token", "error", err)
		return errorResponse(http.StatusInternalServerError, "failed to revoke token")
	}

	d.Logger.Info("revoked bridge token",
		"fingerprint", token.ClientFingerprint, "found", revoked)
	return Response{StatusCode: http.StatusOK, Body: map[string]string{"status": "revoked"}}
}
