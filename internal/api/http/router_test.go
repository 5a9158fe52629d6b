package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/api/http/handlers"
	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/observability"
	"github.com/spec-kit/ticket-triage/internal/service"
	"github.com/spec-kit/ticket-triage/internal/upload"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util/errorutil"
)

type fakeTickets struct {
	mu      sync.Mutex
	id      int64
	err     error
	inputs  []service.TicketCreateInput
	records []domain.TicketRecord
	listErr error
}

func (f *fakeTickets) CreateTicket(_ context.Context, input service.TicketCreateInput) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	return f.id, f.err
}

func (f *fakeTickets) ListTickets(context.Context) ([]domain.TicketRecord, error) {
	return f.records, f.listErr
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app      *fiber.App
	tickets  *fakeTickets
	imageDir string
}

func newTestServer(t *testing.T, tickets *fakeTickets, rateMax int, pg error) *testServer {
	t.Helper()
	uploadCfg := config.UploadConfig{
		Dir:          filepath.Join(t.TempDir(), "images"),
		PublicPrefix: "/static/ticket_images",
		MaxBytes:     1 << 20,
	}
	images, err := upload.NewImageStore(uploadCfg)
	require.NoError(t, err)

	logger := zap.NewNop()
	metrics := observability.NewMetrics("test")
	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:    handlers.NewHealthHandler("ticket-triage", "test",
			handlers.Dependency{Name: "postgres", Required: true, Pinger: stubPinger{err: pg}},
			handlers.Dependency{Name: "redis", Pinger: stubPinger{err: errors.New("redis down")}},
		),
		Tickets:   handlers.NewTicketsHandler(tickets, images, logger),
		Metrics:   handlers.MetricsHandler(metrics),
		CORS:      config.CORSConfig{AllowOrigins: []string{"http://localhost:3000"}},
		RateLimit: config.RateLimitConfig{Max: rateMax, WindowSeconds: 60},
		Upload:    uploadCfg,
	})
	return &testServer{app: app, tickets: tickets, imageDir: uploadCfg.Dir}
}

func multipartBody(t *testing.T, data, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if data != "" {
		require.NoError(t, w.WriteField("data", data))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func errorCode(t *testing.T, body []byte) (string, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env.Error.Code, env.Error.Message
}

func TestCreateTicketFromJSONBody(t *testing.T) {
	srv := newTestServer(t, &fakeTickets{id: 17}, 0, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tickets",
		strings.NewReader(`{"region_name":"North Sector","title":"Broken Server Rack Power Unit","amount_of_reports":2,"timestamp":"ignored"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body := do(t, srv.app, req)

	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"message":"Ticket and details created successfully","ticket_id":17,"image_url":null}`, string(body))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	require.Len(t, srv.tickets.inputs, 1)
	in := srv.tickets.inputs[0]
	assert.Equal(t, "North Sector", in.RegionName)
	assert.Equal(t, 2, *in.AmountOfReports)
	assert.Nil(t, in.ImageURL)
}

func TestCreateTicketMultipartWithImage(t *testing.T) {
	srv := newTestServer(t, &fakeTickets{id: 3}, 0, nil)

	body, contentType := multipartBody(t, `{"region_name":"Depot","title":"Cracked window"}`, "window.JPG", []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", body)
	req.Header.Set("Content-Type", contentType)
	resp, raw := do(t, srv.app, req)

	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var out struct {
		TicketID int64  `json:"ticket_id"`
		ImageURL string `json:"image_url"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, int64(3), out.TicketID)
	assert.True(t, strings.HasPrefix(out.ImageURL, "/static/ticket_images/"), out.ImageURL)
	assert.True(t, strings.HasSuffix(out.ImageURL, ".jpg"), out.ImageURL)
	assert.Equal(t, out.ImageURL, *srv.tickets.inputs[0].ImageURL)

	staticResp, content := do(t, srv.app, httptest.NewRequest(http.MethodGet, out.ImageURL, nil))
	assert.Equal(t, http.StatusOK, staticResp.StatusCode)
	assert.Equal(t, "jpeg-bytes", string(content))
}

func TestCreateTicketIgnoresDisallowedFile(t *testing.T) {
	srv := newTestServer(t, &fakeTickets{id: 4}, 0, nil)

	body, contentType := multipartBody(t, `{"region_name":"Depot","title":"Report"}`, "report.pdf", []byte("%PDF"))
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", body)
	req.Header.Set("Content-Type", contentType)
	resp, raw := do(t, srv.app, req)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, string(raw), `"image_url":null`)
	entries, err := os.ReadDir(srv.imageDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateTicketRejectsMissingOrInvalidData(t *testing.T) {
	srv := newTestServer(t, &fakeTickets{}, 0, nil)

	missing, ct := multipartBody(t, "", "a.png", []byte("png"))
	cases := map[string]*http.Request{
		"multipart without data": httptest.NewRequest(http.MethodPost, "/api/tickets", missing),
		"malformed json":         httptest.NewRequest(http.MethodPost, "/api/tickets", strings.NewReader(`{"title":`)),
		"empty body":             httptest.NewRequest(http.MethodPost, "/api/tickets", nil),
	}
	cases["multipart without data"].Header.Set("Content-Type", ct)
	cases["malformed json"].Header.Set("Content-Type", "application/json")

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			resp, body := do(t, srv.app, req)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			code, msg := errorCode(t, body)
			assert.Equal(t, apperrors.CodeValidation, code)
			assert.Equal(t, "Invalid or missing JSON data ('data' field) in request.", msg)
		})
	}
	assert.Empty(t, srv.tickets.inputs)
}

func TestCreateTicketFailureRemovesImage(t *testing.T) {
	cause := apperrors.NewClassifierUnavailable(errors.New("deadline exceeded"))
	srv := newTestServer(t, &fakeTickets{err: apperrors.NewTicketCreationFailed(cause)}, 0, nil)

	body, contentType := multipartBody(t, `{"region_name":"Depot","title":"Leak"}`, "leak.png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", body)
	req.Header.Set("Content-Type", contentType)
	resp, raw := do(t, srv.app, req)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	code, _ := errorCode(t, raw)
	assert.Equal(t, apperrors.CodeTicketCreationFailed, code)
	assert.Contains(t, string(raw), apperrors.CodeClassifierUnavailable)

	entries, err := os.ReadDir(srv.imageDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListTicketsReturnsBareArray(t *testing.T) {
	notes := "check breaker"
	srv := newTestServer(t, &fakeTickets{records: []domain.TicketRecord{{
		TicketID:        1,
		Title:           "Broken Server Rack Power Unit",
		Status:          "New",
		Priority:        "Medium",
		ReportedAt:      "2026-03-14 09:30:00",
		Category:        "Hardware Failure",
		RegionID:        9,
		RegionName:      "North Sector",
		RegionManager:   "N/A",
		AssignmentNotes: &notes,
		AmountOfReports: 1,
	}}}, 0, nil)

	resp, body := do(t, srv.app, httptest.NewRequest(http.MethodGet, "/api/tickets", nil))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(body, &items), string(body))
	require.Len(t, items, 1)
	item := items[0]
	assert.EqualValues(t, 1, item["ticket_id"])
	assert.Equal(t, "North Sector", item["region_name"])
	assert.Equal(t, "N/A", item["region_manager"])
	assert.EqualValues(t, 1, item["amount_of_reports"])
	assert.Equal(t, "check breaker", item["assignment_notes"])
	assert.Contains(t, item, "internal_notes")
	assert.Nil(t, item["internal_notes"])
	assert.Nil(t, item["image_url"])
}

func TestListTicketsEmptyAndFailure(t *testing.T) {
	srv := newTestServer(t, &fakeTickets{}, 0, nil)
	resp, body := do(t, srv.app, httptest.NewRequest(http.MethodGet, "/api/tickets", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(body))

	failing := newTestServer(t, &fakeTickets{listErr: apperrors.NewStorageUnavailable("list tickets", errors.New("refused"))}, 0, nil)
	resp, body = do(t, failing.app, httptest.NewRequest(http.MethodGet, "/api/tickets", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	code, _ := errorCode(t, body)
	assert.Equal(t, apperrors.CodeStorageUnavailable, code)
}

func TestCreateTicketRateLimited(t *testing.T) {
	srv := newTestServer(t, &fakeTickets{id: 1}, 1, nil)

	post := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/tickets", strings.NewReader(`{"region_name":"A","title":"B"}`))
		req.Header.Set("Content-Type", "application/json")
		return req
	}
	first, _ := do(t, srv.app, post())
	second, body := do(t, srv.app, post())

	assert.Equal(t, http.StatusCreated, first.StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	code, _ := errorCode(t, body)
	assert.Equal(t, apperrors.CodeRateLimited, code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeTickets{}, 0, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/tickets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, _ := do(t, srv.app, req)

	assert.Equal(t, "http://localhost:3000", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t, &fakeTickets{}, 0, nil)

	resp, body := do(t, srv.app, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	code, _ := errorCode(t, body)
	assert.Equal(t, apperrors.CodeNotFound, code)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeTickets{}, 0, nil)

	resp, body := do(t, srv.app, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"alive"`)

	resp, body = do(t, srv.app, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"redis":"redis down"`)

	down := newTestServer(t, &fakeTickets{}, 0, errors.New("pool closed"))
	resp, body = do(t, down.app, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	code, _ := errorCode(t, body)
	assert.Equal(t, apperrors.CodeDependencyUnavailable, code)
	assert.Contains(t, string(body), `"postgres":"pool closed"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeTickets{}, 0, nil)
	do(t, srv.app, httptest.NewRequest(http.MethodGet, "/api/tickets", nil))

	resp, body := do(t, srv.app, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_http_requests_total")
}

func TestMetricsUnknownRoutesShareOneSeries(t *testing.T) {
	srv := newTestServer(t, &fakeTickets{}, 0, nil)
	for _, path := range []string{"/wp-admin/setup.php", "/.env", "/admin/login"} {
		resp, _ := do(t, srv.app, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	_, body := do(t, srv.app, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	text := string(body)
	assert.Contains(t, text, `test_http_errors_total{code="NOT_FOUND",method="GET",path="unmatched"} 3`)
	assert.NotContains(t, text, "wp-admin")
	assert.NotContains(t, text, `path="/.env"`)
}
