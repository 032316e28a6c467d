package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "zerobudget/internal/log"
)

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "text", Component: applog.ComponentTrace, Output: &buf})

	var seen string
	handler := NewMiddleware(logger, func(*http.Request) string { return "10.0.0.7" }).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
			w.WriteHeader(http.StatusCreated)
			w.WriteHeader(http.StatusInternalServerError)
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/items", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header %q != context id %q", rec.Header().Get(HeaderRequestID), seen)
	}

	out := buf.String()
	if !strings.Contains(out, "HTTP request started") || !strings.Contains(out, "status_code=201") {
		t.Errorf("unexpected log output %q", out)
	}
	if !strings.Contains(out, "client_ip=10.0.0.7") {
		t.Errorf("client ip missing from %q", out)
	}
}

func TestMiddleware_RequestIDHeader(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"valid inbound id", "abc-123", true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", 65), false},
		{"injection", "a\nb", false},
	}

	logger := applog.New(applog.Config{Output: &bytes.Buffer{}})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := NewMiddleware(logger, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromRequest(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set(HeaderRequestID, tt.inbound)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if (seen == tt.inbound) != tt.keep {
				t.Errorf("request id = %q, inbound %q, keep %v", seen, tt.inbound, tt.keep)
			}
		})
	}
}
