package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/seenimoa/stockqa/internal/config"
	"github.com/seenimoa/stockqa/internal/metrics"
	"github.com/seenimoa/stockqa/internal/qa"
	"github.com/seenimoa/stockqa/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

type fakeService struct {
	submit  func(models.QueryRequest) (models.Response, error)
	company func(string) (models.CompanySummary, error)
	health  models.HealthReport
	calls   int
}

func (f *fakeService) Submit(ctx context.Context, req models.QueryRequest) (models.Response, error) {
	f.calls++
	return f.submit(req)
}

func (f *fakeService) CompanySummary(ctx context.Context, symbol string) (models.CompanySummary, error) {
	return f.company(symbol)
}

func (f *fakeService) Health() models.HealthReport { return f.health }

func testServer(t *testing.T, svc *fakeService, opts ...Option) *Server {
	t.Helper()
	return NewServer(&config.Config{}, svc, opts...)
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

// ════════════════════════════════════════════════════════════════════
// POST /api/query
// ════════════════════════════════════════════════════════════════════

func TestHandleQuery(t *testing.T) {
	svc := &fakeService{submit: func(req models.QueryRequest) (models.Response, error) {
		return models.Response{
			QueryResult:    models.QueryResult{Answer: "fine", Sentiment: models.NeutralSentiment()},
			Symbol:         strings.ToUpper(req.Symbol),
			CompanyName:    req.CompanyName,
			TotalDocuments: 4,
		}, nil
	}}
	rec := do(t, testServer(t, svc), http.MethodPost, "/api/query",
		`{"question":"outlook?","symbol":"aapl","company_name":"Apple"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	got := decode[map[string]any](t, rec)
	if got["answer"] != "fine" || got["symbol"] != "AAPL" || got["company_name"] != "Apple" {
		t.Errorf("unexpected body: %v", got)
	}
	if got["total_documents"] != float64(4) {
		t.Errorf("total_documents: got %v", got["total_documents"])
	}
	if _, ok := got["error"]; ok {
		t.Error("error field must be omitted on success")
	}
}

func TestHandleQueryValidation(t *testing.T) {
	svc := &fakeService{submit: func(models.QueryRequest) (models.Response, error) {
		return models.Response{}, &qa.ValidationError{Field: "question", Message: "question is required"}
	}}
	rec := do(t, testServer(t, svc), http.MethodPost, "/api/query", `{"symbol":"AAPL"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Error != "question is required" {
		t.Errorf("error: got %q", got.Error)
	}
}

func TestHandleQueryBadBody(t *testing.T) {
	svc := &fakeService{}
	for _, body := range []string{"", "{not json", "[1,2"} {
		rec := do(t, testServer(t, svc), http.MethodPost, "/api/query", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: got %d, want 400", body, rec.Code)
		}
		if got := decode[ErrorResponse](t, rec); got.Error != "No data provided" {
			t.Errorf("body %q: error %q", body, got.Error)
		}
	}
	if svc.calls != 0 {
		t.Errorf("service called %d times for malformed bodies", svc.calls)
	}
}

func TestHandleQueryEngineUnavailable(t *testing.T) {
	svc := &fakeService{submit: func(req models.QueryRequest) (models.Response, error) {
		return models.Response{
			QueryResult: models.QueryResult{
				Answer:    "The AI system is not available.",
				Sentiment: models.NeutralSentiment(),
				Sources:   []string{},
				Metrics:   map[string]any{},
				Error:     qa.ErrEngineUnavailable.Error(),
			},
			Symbol: "AAPL",
		}, qa.ErrEngineUnavailable
	}}
	rec := do(t, testServer(t, svc), http.MethodPost, "/api/query", `{"question":"q","symbol":"AAPL"}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rec.Code)
	}
	got := decode[models.Response](t, rec)
	if got.Error != "AI system not initialized" || got.Symbol != "AAPL" {
		t.Errorf("degraded response not passed through: %+v", got)
	}
}

func TestHandleQueryUnexpectedError(t *testing.T) {
	svc := &fakeService{submit: func(models.QueryRequest) (models.Response, error) {
		return models.Response{}, errors.New("boom")
	}}
	rec := do(t, testServer(t, svc), http.MethodPost, "/api/query", `{"question":"q","symbol":"AAPL"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Error != "Server error: boom" {
		t.Errorf("error: got %q", got.Error)
	}
}

func TestHandleQueryPanicRecovered(t *testing.T) {
	svc := &fakeService{submit: func(models.QueryRequest) (models.Response, error) {
		panic("nil map write")
	}}
	srv := testServer(t, svc)
	rec := do(t, srv, http.MethodPost, "/api/query", `{"question":"q","symbol":"AAPL"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Error != "Server error: nil map write" {
		t.Errorf("error: got %q", got.Error)
	}

	// The server keeps serving after a panic.
	svc.health = models.HealthReport{Status: models.HealthHealthy}
	if rec := do(t, srv, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health after panic: got %d", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// GET /api/health, /api/company/{symbol}
// ════════════════════════════════════════════════════════════════════

func TestHandleHealth(t *testing.T) {
	svc := &fakeService{health: models.HealthReport{
		Status:     models.HealthError,
		Components: map[string]string{"news_fetcher": "ok", "ai_system": "error"},
		Timestamp:  "2026-03-10T15:04:05Z",
	}}
	rec := do(t, testServer(t, svc), http.MethodGet, "/api/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	got := decode[models.HealthReport](t, rec)
	if got.Status != "error" || got.Components["ai_system"] != "error" || got.Timestamp == "" {
		t.Errorf("unexpected health: %+v", got)
	}
}

func TestHandleCompany(t *testing.T) {
	sector := "Technology"
	svc := &fakeService{company: func(symbol string) (models.CompanySummary, error) {
		return models.CompanySummary{Symbol: strings.ToUpper(symbol), Name: "Apple Inc.", Sector: &sector}, nil
	}}
	rec := do(t, testServer(t, svc), http.MethodGet, "/api/company/aapl", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	got := decode[map[string]any](t, rec)
	if got["symbol"] != "AAPL" || got["sector"] != "Technology" {
		t.Errorf("unexpected body: %v", got)
	}
	// Unreported fields are present as null.
	if v, ok := got["industry"]; !ok || v != nil {
		t.Errorf("industry: got %v (present=%v), want null", v, ok)
	}
}

func TestHandleCompanyError(t *testing.T) {
	svc := &fakeService{company: func(string) (models.CompanySummary, error) {
		return models.CompanySummary{}, errors.New("yahoo quoteSummary: upstream 502")
	}}
	rec := do(t, testServer(t, svc), http.MethodGet, "/api/company/AAPL", "")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Error != "yahoo quoteSummary: upstream 502" {
		t.Errorf("error: got %q", got.Error)
	}
}

// ════════════════════════════════════════════════════════════════════
// Misc routes
// ════════════════════════════════════════════════════════════════════

func TestConfigKeysMasked(t *testing.T) {
	srv := NewServer(&config.Config{LLM: config.LLMConfig{OpenAIKey: "sk-test-1234567890abcdef"}}, &fakeService{})
	rec := do(t, srv, http.MethodGet, "/api/config/keys", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "1234567890abcdef") {
		t.Error("key leaked in response")
	}
	keys := decode[[]config.KeyStatus](t, rec)
	if len(keys) == 0 || !keys[0].IsSet {
		t.Errorf("unexpected key status: %+v", keys)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	svc := &fakeService{health: models.HealthReport{Status: models.HealthHealthy}}
	srv := testServer(t, svc, WithMetrics(metrics.New()))

	do(t, srv, http.MethodGet, "/api/health", "")
	rec := do(t, srv, http.MethodGet, "/metrics", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	want := `stockqa_http_requests_total{method="GET",route="/api/health",status="200"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics output missing %q", want)
	}
}

func TestIndexPage(t *testing.T) {
	ui := fstest.MapFS{"index.html": {Data: []byte("<html>stockqa</html>")}}
	rec := do(t, testServer(t, &fakeService{}, WithUI(ui)), http.MethodGet, "/", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type: got %q", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "<html>stockqa</html>" {
		t.Errorf("body: got %q", rec.Body.String())
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	srv := testServer(t, &fakeService{})
	if rec := do(t, srv, http.MethodGet, "/api/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route: got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/query", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/query: got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/", ""); rec.Code != http.StatusNotFound {
		t.Errorf("/ without UI: got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	testServer(t, &fakeService{}).Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin: got %q, want *", got)
	}
}
