package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complaintbot/complaint"
	"complaintbot/core/config"
	"complaintbot/core/logger"
	"complaintbot/flow"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.Options{Level: "error", Format: "kv"})
	os.Exit(m.Run())
}

type stubMessenger struct{ sent []string }

func (m *stubMessenger) SendText(_ context.Context, _, body string) error {
	m.sent = append(m.sent, body)
	return nil
}
func (m *stubMessenger) SendButtons(_ context.Context, _, body string, _ []flow.Button) error {
	m.sent = append(m.sent, body)
	return nil
}
func (m *stubMessenger) SendDocument(_ context.Context, _, _, _, _ string) error { return nil }

type stubMedia struct{}

func (stubMedia) Resolve(_ context.Context, ref string) (string, error) {
	return "http://files.local/uploads/" + ref, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(_ map[string]string, id string) (string, error) {
	return "http://files.local/uploads/" + id + ".pdf", nil
}

// The engine's store contract is exercised in the flow package; the server
// tests only need turns to complete.
type memoryStore struct {
	states  map[string]*complaint.State
	records map[string]*complaint.Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		states:  make(map[string]*complaint.State),
		records: make(map[string]*complaint.Record),
	}
}

func (s *memoryStore) LoadState(_ context.Context, userID string) (*complaint.State, error) {
	return s.states[userID], nil
}

func (s *memoryStore) SaveState(_ context.Context, st *complaint.State) error {
	s.states[st.UserID] = st
	return nil
}

func (s *memoryStore) LoadComplaint(_ context.Context, id string) (*complaint.Record, error) {
	return s.records[id], nil
}

func (s *memoryStore) SaveComplaint(_ context.Context, rec *complaint.Record) error {
	s.records[rec.ComplaintID] = rec
	return nil
}

func newTestServer(t *testing.T, messenger *stubMessenger) *Server {
	t.Helper()
	engine, err := flow.New(flow.Options{
		Store:     newMemoryStore(),
		Messenger: messenger,
		Media:     stubMedia{},
		Renderer:  stubRenderer{},
		Entry:     flow.EntryCategory,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c-1.pdf"), []byte("%PDF-1.4"), 0o644))

	return New(
		config.HTTPConfig{Listen: "127.0.0.1", Port: 0},
		config.WhatsAppConfig{VerifyToken: "verify-secret"},
		dir,
		engine,
	)
}

func TestWebhookVerification(t *testing.T) {
	srv := newTestServer(t, &stubMessenger{})

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=verify-secret&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookRunsTurn(t *testing.T) {
	messenger := &stubMessenger{}
	srv := newTestServer(t, messenger)

	payload := `{
		"entry": [{"changes": [{"value": {"messages": [
			{"from": "919876543210", "id": "wamid.X", "type": "text",
			 "text": {"body": "Cyber Fraud"}}
		]}}]}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"received"`)
	assert.NotEmpty(t, messenger.sent)
}

func TestWebhookIgnoresMalformedPayload(t *testing.T) {
	srv := newTestServer(t, &stubMessenger{})
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"entry":`))
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ignored"`)
}

func TestServeUpload(t *testing.T) {
	srv := newTestServer(t, &stubMessenger{})

	req := httptest.NewRequest(http.MethodGet, "/uploads/c-1.pdf", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/uploads/missing.pdf", nil)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeUploadRejectsTraversal(t *testing.T) {
	srv := newTestServer(t, &stubMessenger{})
	for _, path := range []string{
		"/uploads/..%2F..%2Fetc%2Fpasswd",
		"/uploads/.hidden",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "path %s", path)
	}
}
