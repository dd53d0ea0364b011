package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"oficina/internal/domain"
	"oficina/internal/reconcile"
	"oficina/internal/repository"
	"oficina/internal/service"

	"github.com/sirupsen/logrus"
)

// newTestRouter serves requests that never reach the service.
func newTestRouter() http.Handler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRouter(NewHandler(nil, logger))
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, payload
}

func TestHealth(t *testing.T) {
	rec, payload := do(t, newTestRouter(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["status"] != "ok" {
		t.Errorf("unexpected payload: %v", payload)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}

func TestPreflight(t *testing.T) {
	rec, _ := do(t, newTestRouter(), http.MethodOptions, "/api/v1/work-orders", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestInvalidID(t *testing.T) {
	paths := []string{
		"/api/v1/work-orders/abc",
		"/api/v1/inventory/0",
		"/api/v1/clients/-3",
		"/api/v1/finance/transactions/x",
	}
	for _, path := range paths {
		rec, payload := do(t, newTestRouter(), http.MethodGet, path, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
			continue
		}
		if payload["error"] != "invalid id" {
			t.Errorf("%s: error = %v", path, payload["error"])
		}
	}
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		fields map[string]string
	}{
		{
			name:   "client without name",
			method: http.MethodPost,
			path:   "/api/v1/clients",
			body:   `{"phone":"11 99999-0000"}`,
			fields: map[string]string{"name": "required"},
		},
		{
			name:   "work order with negative qty",
			method: http.MethodPost,
			path:   "/api/v1/work-orders",
			body:   `{"client_id":1,"items":[{"description":"Filtro","qty":-2,"unit_price":10}]}`,
			fields: map[string]string{"items[0].qty": "gte"},
		},
		{
			name:   "appointment with bad time",
			method: http.MethodPost,
			path:   "/api/v1/appointments",
			body:   `{"client_id":1,"date":"2024-05-10","time":"9h"}`,
			fields: map[string]string{"time": "datetime"},
		},
		{
			name:   "purchase without lines",
			method: http.MethodPost,
			path:   "/api/v1/purchases",
			body:   `{"supplier":"Auto Peças","items":[]}`,
			fields: map[string]string{"items": "min"},
		},
		{
			name:   "transaction with unknown direction",
			method: http.MethodPost,
			path:   "/api/v1/finance/transactions",
			body:   `{"description":"Aluguel","direction":"sideways","amount":10}`,
			fields: map[string]string{"direction": "oneof"},
		},
		{
			name:   "vehicle without plate and model",
			method: http.MethodPost,
			path:   "/api/v1/clients/1/vehicles",
			body:   `{"year":2010}`,
			fields: map[string]string{"plate": "required_without"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, payload := do(t, newTestRouter(), tc.method, tc.path, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
			fields, ok := payload["fields"].(map[string]any)
			if !ok {
				t.Fatalf("missing fields in %v", payload)
			}
			for field, tag := range tc.fields {
				if fields[field] != tag {
					t.Errorf("fields[%q] = %v, want %q (all: %v)", field, fields[field], tag, fields)
				}
			}
		})
	}
}

func TestWorkOrderUpdateWithoutClient(t *testing.T) {
	req := workOrderRequest{Labor: 30, Items: []orderItemRequest{{Description: "Troca de óleo", Qty: 1, UnitPrice: 40}}}
	if err := newValidator().Struct(req); err != nil {
		t.Fatalf("update body without client_id should validate: %v", err)
	}

	rec, payload := do(t, newTestRouter(), http.MethodPut, "/api/v1/work-orders/5", `{"labor":-1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	fields, _ := payload["fields"].(map[string]any)
	if fields["labor"] != "gte" {
		t.Errorf("fields = %v, want labor gte", fields)
	}
	if _, ok := fields["client_id"]; ok {
		t.Errorf("client_id should not be required on update: %v", fields)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	rec, payload := do(t, newTestRouter(), http.MethodPost, "/api/v1/mechanics", `{"name":"Ana","age":30}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if payload["error"] != "invalid JSON body" {
		t.Errorf("error = %v", payload["error"])
	}
}

func TestBadQueryParameters(t *testing.T) {
	cases := []string{
		"/api/v1/inventory?low_stock=maybe",
		"/api/v1/inventory?limit=-1",
		"/api/v1/work-orders?mechanic_id=abc",
		"/api/v1/mechanics/report?repasse=lots",
		"/api/v1/finance/stock-statement?inventory_id=0",
	}
	for _, path := range cases {
		rec, _ := do(t, newTestRouter(), http.MethodGet, path, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("get client 3: %w", repository.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: name is required", service.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: vehicle", repository.ErrInvalidReference), http.StatusBadRequest},
		{fmt.Errorf("%w: mechanic has orders", repository.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: payment method", reconcile.ErrLookup), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestFailWritesShortfalls(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := NewHandler(nil, logger)

	err := fmt.Errorf("update work order: %w", &domain.InsufficientStockError{
		Shortfalls: []domain.Shortfall{{ItemID: 4, Name: "Filtro", Available: 1, Needed: 3}},
	})
	rec := httptest.NewRecorder()
	h.fail(rec, httptest.NewRequest(http.MethodPut, "/api/v1/work-orders/1", nil), "UpdateWorkOrder", err)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var payload struct {
		Error      string             `json:"error"`
		Shortfalls []domain.Shortfall `json:"shortfalls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Shortfalls) != 1 || payload.Shortfalls[0].Name != "Filtro" || payload.Shortfalls[0].Needed != 3 {
		t.Errorf("unexpected shortfalls: %+v", payload.Shortfalls)
	}
}

func TestRecovererLogsPanic(t *testing.T) {
	logger := logrus.New()
	var buf strings.Builder
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	h := Recoverer(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "kaboom") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	logger := logrus.New()
	var buf strings.Builder
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tea", nil))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("decode log entry %q: %v", buf.String(), err)
	}
	if entry["status"] != float64(http.StatusTeapot) || entry["path"] != "/tea" {
		t.Errorf("unexpected entry: %v", entry)
	}
}
