package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/crcbd/pkg/blockdev"
	"github.com/ssargent/crcbd/pkg/ecc"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestDevice: 4 blocks of 8 payload bytes in 8 byte codewords
func newTestDevice(t *testing.T, strength int, metrics *Metrics) *blockdev.Device {
	t.Helper()
	dev, err := NewDeviceFactory().CreateDevice(
		blockdev.Geometry{ReadSize: 4, ProgSize: 4, BlockSize: 8, BlockCount: 4},
		blockdev.ECCConfig{CodeSize: 8, EraseSize: 16, EraseCount: 4, CorrectionStrength: strength},
		0, metrics, discard,
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })
	return dev
}

// setupTestServer creates a router over a fresh device with its own registry
func setupTestServer(t *testing.T, strength int, apiKey string) (http.Handler, *Metrics) {
	t.Helper()
	metrics := NewMetrics(nil)
	dev := newTestDevice(t, strength, metrics)
	server := NewServerFactory().CreateServer(dev, ServerConfig{APIKey: apiKey}, metrics, discard)
	return server.Routes(), metrics
}

func do(t *testing.T, h http.Handler, method, target string, body []byte, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestRoutes_ProgThenRead(t *testing.T) {
	h, _ := setupTestServer(t, 1, "")

	w := do(t, h, "PUT", "/api/v1/blocks/1?offset=0", []byte("abcdefgh"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode(t, w).Success)

	w = do(t, h, "GET", "/api/v1/blocks/1?offset=0&size=8", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "abcdefgh", w.Body.String())

	// size defaults to one read unit
	w = do(t, h, "GET", "/api/v1/blocks/1?offset=4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "efgh", w.Body.String())
}

func TestRoutes_FaultIsCorrected(t *testing.T) {
	h, metrics := setupTestServer(t, 1, "")

	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/api/v1/blocks/1", []byte("abcdefgh")).Code)

	// block 1 starts at the third codeword, byte 16
	w := do(t, h, "POST", "/api/v1/faults", []byte(`{"addr":16,"bit":0}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, "GET", "/api/v1/blocks/1?size=8", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abcdefgh", w.Body.String())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.correctionsTotal.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.faultsInjected))
	assert.Zero(t, testutil.ToFloat64(metrics.uncorrectableTotal))
}

func TestRoutes_FaultWithoutCorrection(t *testing.T) {
	h, metrics := setupTestServer(t, ecc.StrengthDisabled, "")

	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/api/v1/blocks/0", []byte("abcdefgh")).Code)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/faults", []byte(`{"addr":1,"bit":7}`)).Code)

	w := do(t, h, "GET", "/api/v1/blocks/0?size=8", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "corrupt data")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.uncorrectableTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.deviceOperationsTotal.WithLabelValues("read", statusError)))
}

func TestRoutes_BadRequests(t *testing.T) {
	h, _ := setupTestServer(t, 1, "")

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"misaligned offset", "GET", "/api/v1/blocks/0?offset=2", ""},
		{"misaligned size", "GET", "/api/v1/blocks/0?size=6", ""},
		{"size past block", "GET", "/api/v1/blocks/0?size=12", ""},
		{"block out of range", "GET", "/api/v1/blocks/9", ""},
		{"block not a number", "GET", "/api/v1/blocks/abc", ""},
		{"offset not a number", "GET", "/api/v1/blocks/0?offset=-4", ""},
		{"prog misaligned body", "PUT", "/api/v1/blocks/0", "abc"},
		{"prog body too large", "PUT", "/api/v1/blocks/0", "abcdefghijkl"},
		{"erase out of range", "POST", "/api/v1/blocks/4/erase", ""},
		{"fault past end", "POST", "/api/v1/faults", `{"addr":64,"bit":0}`},
		{"fault bad bit", "POST", "/api/v1/faults", `{"addr":0,"bit":8}`},
		{"fault bad json", "POST", "/api/v1/faults", `{"addr":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.target, []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.False(t, decode(t, w).Success)
		})
	}
}

func TestRoutes_EraseAndSync(t *testing.T) {
	h, _ := setupTestServer(t, 0, "")

	assert.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/blocks/3/erase", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, "POST", "/api/v1/sync", nil).Code)

	w := do(t, h, "GET", "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data blockdev.Stats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, uint64(1), resp.Data.Erases)
	assert.Equal(t, uint64(1), resp.Data.Syncs)
}

func TestRoutes_Device(t *testing.T) {
	h, _ := setupTestServer(t, 0, "")

	w := do(t, h, "GET", "/api/v1/device", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data DeviceInfo `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Data.ID)
	assert.Equal(t, uint32(4), resp.Data.PayloadSize)
	assert.Equal(t, uint64(64), resp.Data.Size)
	assert.Equal(t, "owned", resp.Data.Ownership)
	assert.Equal(t, 3, resp.Data.MaxCorrectable)
	assert.Equal(t, uint32(8), resp.Data.Geometry.BlockSize)
}

func TestRoutes_Auth(t *testing.T) {
	h, metrics := setupTestServer(t, 0, "test-key")

	assert.Equal(t, http.StatusUnauthorized, do(t, h, "GET", "/api/v1/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, "GET", "/api/v1/health", nil, "X-API-Key", "wrong").Code)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/health", nil, "X-API-Key", "test-key").Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.authRequestsTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.authRequestsTotal.WithLabelValues(statusError)))

	// metrics stay open
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/metrics", nil).Code)
}

func TestRoutes_Metrics(t *testing.T) {
	h, _ := setupTestServer(t, 0, "")

	require.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/health", nil).Code)

	w := do(t, h, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "crcbd_http_requests_total"))
	assert.True(t, strings.Contains(body, "crcbd_health_checks_total"))
}

func TestServer_Run(t *testing.T) {
	dev := newTestDevice(t, 0, nil)
	server := NewServer(dev, ServerConfig{Bind: "127.0.0.1", Port: 0}, nil, discard)
	assert.Equal(t, "127.0.0.1:0", server.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_RunListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	dev := newTestDevice(t, 0, nil)
	server := NewServer(dev, ServerConfig{Bind: "127.0.0.1", Port: port}, nil, discard)

	err = server.Run(context.Background())
	assert.Error(t, err)
}
