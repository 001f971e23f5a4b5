package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollsterHook/internal/chainhook"
	"pollsterHook/internal/model"
	"pollsterHook/internal/pollster"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const samplePayload = `{
  "chainhook": {"uuid": "9a4d7b0e-1f7c-4e8a-9d3a-0d1f2e3c4b5a"},
  "event": {
    "chain": "stacks",
    "network": "mainnet",
    "apply": [{
      "block_identifier": {"index": 100, "hash": "0xblock100"},
      "transactions": [{
        "transaction_identifier": {"hash": "0xtx1"},
        "metadata": {"status": "success"},
        "operations": [{
          "type": "contract_log",
          "metadata": {
            "contract_identifier": "SP237HRZEM03XCG4TJMYMBT0J0FPY90MS1HB48YTM.pollster",
            "topic": "print",
            "value": {"event": {"hex": "0x0d0000000c706f6c6c2d63726561746564", "repr": "\"poll-created\""}, "poll-id": {"hex": "0x0100000000000000000000000000000001", "repr": "u1"}, "title": "Lunch", "creator": "SP1", "option-count": 2, "block-height": {"hex": "0x0100000000000000000000000000000064", "repr": "u100"}}
          }
        }]
      }]
    }]
  }
}`

type fakeProcessor struct {
	summary pollster.Summary
	err     error
	calls   int
	ctxErr  error
}

func (f *fakeProcessor) Process(ctx context.Context, payload *chainhook.Payload) (pollster.Summary, error) {
	f.calls++
	f.ctxErr = ctx.Err()
	return f.summary, f.err
}

type fakeCursor struct {
	heights map[string]uint64
	err     error
}

func (f fakeCursor) LastBlock(ctx context.Context, chainhookUUID string) (uint64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	h, ok := f.heights[chainhookUUID]
	return h, ok, nil
}

func testConfig() Config {
	return Config{
		Environment:     "development",
		Network:         "mainnet",
		ContractAddress: "SP237HRZEM03XCG4TJMYMBT0J0FPY90MS1HB48YTM",
		ContractName:    "pollster",
	}
}

func do(t *testing.T, handler http.Handler, method, path, body string, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	srv := New(testConfig(), &fakeProcessor{}, nil, nil)
	srv.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	rec, body := do(t, srv.Router(), http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "pollster-backend", body["service"])
	assert.Equal(t, "mainnet", body["network"])
	assert.Equal(t, "SP237HRZEM03XCG4TJMYMBT0J0FPY90MS1HB48YTM.pollster", body["contract"])
	assert.Equal(t, "2024-05-01T12:00:00Z", body["timestamp"])
}

func TestRootDescribesEndpoints(t *testing.T) {
	srv := New(testConfig(), &fakeProcessor{}, nil, nil)

	rec, body := do(t, srv.Router(), http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	endpoints, ok := body["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/webhook (POST)", endpoints["webhook"])
}

func TestWebhookSuccess(t *testing.T) {
	proc := &fakeProcessor{summary: pollster.Summary{DeliveryID: "d-1", EventsProcessed: 2}}
	srv := New(testConfig(), proc, nil, nil)

	rec, body := do(t, srv.Router(), http.MethodPost, "/webhook", samplePayload, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["eventsProcessed"])
	assert.Equal(t, 1, proc.calls)
	assert.NoError(t, proc.ctxErr)
}

func TestWebhookEndToEnd(t *testing.T) {
	var created int
	handlers := pollster.Handlers{
		PollCreated: func(ctx context.Context, ev model.PollCreated) error {
			created++
			return nil
		},
	}
	proc := pollster.NewProcessor(
		pollster.NewExtractor(nil),
		pollster.NewDispatcher(pollster.DispatchConfig{}, handlers, nil),
		nil,
		nil,
	)
	srv := New(testConfig(), proc, nil, nil)

	rec, body := do(t, srv.Router(), http.MethodPost, "/webhook", samplePayload, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), body["eventsProcessed"])
	assert.Equal(t, 1, created)
}

func TestWebhookMalformedBody(t *testing.T) {
	proc := &fakeProcessor{}
	srv := New(testConfig(), proc, nil, nil)

	rec, body := do(t, srv.Router(), http.MethodPost, "/webhook", "{not json", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, 0, proc.calls)
}

func TestWebhookProcessorError(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("dispatch: handler exploded")}
	srv := New(testConfig(), proc, nil, nil)

	rec, body := do(t, srv.Router(), http.MethodPost, "/webhook", samplePayload, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "dispatch: handler exploded", body["error"])
}

func TestWebhookBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.BodyLimit = 16
	proc := &fakeProcessor{}
	srv := New(cfg, proc, nil, nil)

	rec, _ := do(t, srv.Router(), http.MethodPost, "/webhook", samplePayload, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, proc.calls)
}

func TestWebhookToken(t *testing.T) {
	cfg := testConfig()
	cfg.WebhookToken = "s3cret"
	proc := &fakeProcessor{}
	router := New(cfg, proc, nil, nil).Router()

	rec, _ := do(t, router, http.MethodPost, "/webhook", samplePayload, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/webhook", samplePayload, http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/webhook", samplePayload, http.Header{"Authorization": {"Bearer s3cret"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, proc.calls)
}

func TestCustomWebhookPath(t *testing.T) {
	cfg := testConfig()
	cfg.WebhookPath = "/hooks/pollster"
	router := New(cfg, &fakeProcessor{}, nil, nil).Router()

	rec, _ := do(t, router, http.MethodPost, "/hooks/pollster", samplePayload, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/webhook", samplePayload, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCursor(t *testing.T) {
	cursor := fakeCursor{heights: map[string]uint64{"abc": 120}}
	router := New(testConfig(), &fakeProcessor{}, cursor, nil).Router()

	rec, body := do(t, router, http.MethodGet, "/cursor/abc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(120), body["last_block_height"])

	rec, _ = do(t, router, http.MethodGet, "/cursor/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	failing := New(testConfig(), &fakeProcessor{}, fakeCursor{err: errors.New("db down")}, nil).Router()
	rec, _ = do(t, failing, http.MethodGet, "/cursor/abc", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCursorDisabled(t *testing.T) {
	router := New(testConfig(), &fakeProcessor{}, nil, nil).Router()
	rec, _ := do(t, router, http.MethodGet, "/cursor/abc", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := New(testConfig(), &fakeProcessor{}, nil, nil).Router()
	req := httptest.NewRequest(http.MethodOptions, "/webhook", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

type panicProcessor struct{}

func (panicProcessor) Process(ctx context.Context, payload *chainhook.Payload) (pollster.Summary, error) {
	panic("boom")
}

func TestRecoveryHidesMessageOutsideDevelopment(t *testing.T) {
	dev := New(testConfig(), panicProcessor{}, nil, nil).Router()
	rec, body := do(t, dev, http.MethodPost, "/webhook", samplePayload, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, "boom", body["message"])

	cfg := testConfig()
	cfg.Environment = "production"
	prod := New(cfg, panicProcessor{}, nil, nil).Router()
	rec, body = do(t, prod, http.MethodPost, "/webhook", samplePayload, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body["error"])
	_, hasMessage := body["message"]
	assert.False(t, hasMessage)
}

func TestWebhookSkipsMalformedOperation(t *testing.T) {
	var created int
	handlers := pollster.Handlers{
		PollCreated: func(ctx context.Context, ev model.PollCreated) error {
			created++
			return nil
		},
	}
	proc := pollster.NewProcessor(
		pollster.NewExtractor(nil),
		pollster.NewDispatcher(pollster.DispatchConfig{}, handlers, nil),
		nil,
		nil,
	)
	router := New(testConfig(), proc, nil, nil).Router()

	body := strings.Replace(samplePayload,
		`"operations": [{`,
		`"operations": [{"type": "contract_log", "metadata": "oops"}, {"type": "stx_transfer", "operation_identifier": {"index": 0.5}}, {`,
		1)
	require.NotEqual(t, samplePayload, body)

	rec, resp := do(t, router, http.MethodPost, "/webhook", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(1), resp["eventsProcessed"])
	assert.Equal(t, 1, created)
}
