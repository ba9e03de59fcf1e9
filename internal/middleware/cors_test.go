package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func doCORSRequest(t *testing.T, allowedOrigins []string, method, origin string) *httptest.ResponseRecorder {
	t.Helper()

	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = allowedOrigins

	handler := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestCORS(t *testing.T) {
	staff := "https://staff.shelfwise.example"

	tests := []struct {
		name           string
		allowedOrigins []string
		requestOrigin  string
		method         string
		wantStatus     int
		wantOrigin     string
	}{
		{
			name:           "empty allow list denies all origins",
			allowedOrigins: []string{},
			requestOrigin:  staff,
			method:         http.MethodGet,
			wantStatus:     http.StatusOK,
			wantOrigin:     "",
		},
		{
			name:           "allowed origin is echoed back",
			allowedOrigins: []string{staff},
			requestOrigin:  staff,
			method:         http.MethodGet,
			wantStatus:     http.StatusOK,
			wantOrigin:     staff,
		},
		{
			name:           "preflight from unknown origin is rejected",
			allowedOrigins: []string{staff},
			requestOrigin:  "https://evil.example",
			method:         http.MethodOptions,
			wantStatus:     http.StatusForbidden,
			wantOrigin:     "",
		},
		{
			name:           "preflight from allowed origin returns no content",
			allowedOrigins: []string{staff},
			requestOrigin:  staff,
			method:         http.MethodOptions,
			wantStatus:     http.StatusNoContent,
			wantOrigin:     staff,
		},
		{
			name:           "origin match is case insensitive",
			allowedOrigins: []string{"HTTPS://STAFF.SHELFWISE.EXAMPLE"},
			requestOrigin:  staff,
			method:         http.MethodGet,
			wantStatus:     http.StatusOK,
			wantOrigin:     staff,
		},
		{
			name:           "wildcard matches subdomain",
			allowedOrigins: []string{"*.shelfwise.example"},
			requestOrigin:  "https://branch-12.shelfwise.example",
			method:         http.MethodGet,
			wantStatus:     http.StatusOK,
			wantOrigin:     "https://branch-12.shelfwise.example",
		},
		{
			name:           "wildcard does not match partial domain",
			allowedOrigins: []string{"*.shelfwise.example"},
			requestOrigin:  "https://notshelfwise.example",
			method:         http.MethodGet,
			wantStatus:     http.StatusOK,
			wantOrigin:     "",
		},
		{
			name:           "request without origin header passes through",
			allowedOrigins: []string{staff},
			requestOrigin:  "",
			method:         http.MethodGet,
			wantStatus:     http.StatusOK,
			wantOrigin:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doCORSRequest(t, tt.allowedOrigins, tt.method, tt.requestOrigin)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestCORSPreflightHeaders(t *testing.T) {
	origin := "https://staff.shelfwise.example"
	rec := doCORSRequest(t, []string{origin}, http.MethodOptions, origin)

	for _, header := range []string{
		"Access-Control-Allow-Methods",
		"Access-Control-Allow-Headers",
		"Access-Control-Max-Age",
	} {
		if rec.Header().Get(header) == "" {
			t.Errorf("%s not set on preflight", header)
		}
	}

	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, want %q", got, "Origin")
	}
}
