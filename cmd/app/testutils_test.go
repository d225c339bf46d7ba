package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/config"
	"github.com/sushihentaime/bloglist/internal/metrics"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		Port:           3003,
		Environment:    "development",
		Version:        "1.0.0",
		TrustedOrigins: []string{"http://example.com"},
		JWTSecret:      testSecret,
		JWTTTL:         time.Hour,
		OwnerlessBlogs: "open",
		CacheTTL:       time.Minute,
	}
}

func testTokenService(t *testing.T) *userservice.TokenService {
	t.Helper()

	tokens, err := userservice.NewTokenService([]byte(testSecret), time.Hour)
	require.NoError(t, err)

	return tokens
}

// newUnitApplication has no store behind it; it is enough for middleware
// that only verifies tokens.
func newUnitApplication(t *testing.T) *application {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()

	return &application{
		config:      testConfig(),
		logger:      logger,
		userService: userservice.NewUserService(nil, testTokenService(t), common.NoopProducer{}, logger),
		recorder:    metrics.NewCollector(registry),
		registry:    registry,
	}
}

func newTestApplication(t *testing.T, policy blogservice.OwnershipPolicy) (*application, *sql.DB) {
	t.Helper()

	db := common.TestDB("file://../../migrations", t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mb := new(common.MockMessageProducer)
	mb.On("Publish", mock.Anything, mock.Anything, common.EventExchange).Return(nil)

	cfg := testConfig()
	cfg.OwnerlessBlogs = policy.String()

	registry := prometheus.NewRegistry()

	app := &application{
		config:      cfg,
		logger:      logger,
		userService: userservice.NewUserService(db, testTokenService(t), mb, logger),
		blogService: blogservice.NewBlogService(db, common.NewCache(cfg.CacheTTL, 2*cfg.CacheTTL), mb, logger, policy),
		recorder:    metrics.NoopRecorder{},
		registry:    registry,
	}

	return app, db
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

func (ts *testServer) do(t *testing.T, method, path string, token *string, payload any) (int, http.Header, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		jsonPayload, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(jsonPayload)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != nil {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", *token))
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, res.Header, responseBody
}

func (ts *testServer) get(t *testing.T, path string, token *string) (int, http.Header, []byte) {
	return ts.do(t, http.MethodGet, path, token, nil)
}

func (ts *testServer) post(t *testing.T, path string, token *string, payload any) (int, http.Header, []byte) {
	return ts.do(t, http.MethodPost, path, token, payload)
}

func (ts *testServer) put(t *testing.T, path string, token *string, payload any) (int, http.Header, []byte) {
	return ts.do(t, http.MethodPut, path, token, payload)
}

func (ts *testServer) delete(t *testing.T, path string, token *string) (int, http.Header, []byte) {
	return ts.do(t, http.MethodDelete, path, token, nil)
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))

	return v
}

func strptr(s string) *string {
	return &s
}

func intptr(i int) *int {
	return &i
}
