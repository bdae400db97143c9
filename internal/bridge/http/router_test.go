package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/domain"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/rpc"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/service"
	"github.com/ArcheWizard/Password-Manager/internal/bridge/store/drivers/jsonfile"
	"github.com/ArcheWizard/Password-Manager/internal/vault"

	"github.com/stretchr/testify/require"
)

type stubVault struct {
	credentials []vault.Credential
}

func (s *stubVault) ListCredentials(context.Context) ([]vault.Credential, error) {
	return s.credentials, nil
}
func (s *stubVault) Decrypt(encrypted []byte) (string, error) { return string(encrypted), nil }
func (s *stubVault) Encrypt(plaintext string) ([]byte, error) { return []byte(plaintext), nil }
func (s *stubVault) StoreCredential(context.Context, vault.Credential) (int64, error) {
	return 1, nil
}

type harness struct {
	server    *httptest.Server
	pairing   *service.PairingService
	approvals *service.ApprovalService
	vault     *stubVault
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	st, err := jsonfile.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tokens := &service.TokenService{Store: st, TTL: time.Hour}
	pairing := &service.PairingService{Tokens: tokens, Window: 2 * time.Minute}
	approvals := service.NewApprovalService(st, logger)
	sv := &stubVault{}

	router := NewRouter(&rpc.Dispatcher{
		Tokens:    tokens,
		Pairing:   pairing,
		Approvals: approvals,
		Vault:     sv,
		Logger:    logger,
		Host:      "127.0.0.1",
		Port:      43110,
		Running:   func() bool { return true },
	}, logger)
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &harness{server: server, pairing: pairing, approvals: approvals, vault: sv}
}

func (h *harness) post(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, h.server.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	resp, err := http.Get(h.server.URL + "/v1/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, false, body["pairing_active"])
}

func TestPairAndQueryOverHTTP(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.vault.credentials = []vault.Credential{
		{ID: 1, Website: "github.com", Username: "alice", EncryptedPassword: []byte("hunter2")},
	}
	h.approvals.SetPromptHandler(func(req domain.ApprovalRequest) (domain.ApprovalResponse, error) {
		return domain.ApprovalResponse{Decision: domain.DecisionApproved}, nil
	})

	session, err := h.pairing.StartPairing()
	require.NoError(t, err)

	resp := h.post(t, "/v1/pair", "", map[string]string{
		"code":        session.Code,
		"fingerprint": "fp-http",
		"browser":     "Firefox",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pairBody struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &pairBody)
	require.NotEmpty(t, pairBody.Token)

	resp = h.post(t, "/v1/credentials/query", pairBody.Token,
		map[string]any{"origin": "https://github.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var queryBody struct {
		Entries []domain.CredentialEntry `json:"entries"`
	}
	decodeBody(t, resp, &queryBody)
	require.Len(t, queryBody.Entries, 1)
	require.Equal(t, "hunter2", queryBody.Entries[0].Password)
}

func TestPairGoneWithoutSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	resp := h.post(t, "/v1/pair", "", map[string]string{"code": "123456", "fingerprint": "fp"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestQueryRequiresAuth(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	resp := h.post(t, "/v1/credentials/query", "", map[string]string{"origin": "https://github.com"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCORSReflectsExtensionOrigin(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	req, err := http.NewRequest(http.MethodGet, h.server.URL+"/v1/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "chrome-extension://abcdef")

	resp, err := h.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "chrome-extension://abcdef", resp.Header.Get("Access-Control-Allow-Origin"))

	// Web origins get nothing back.
	req, err = http.NewRequest(http.MethodGet, h.server.URL+"/v1/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")

	resp, err = h.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUnknownPathIs404(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	resp, err := http.Get(h.server.URL + "/v1/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
