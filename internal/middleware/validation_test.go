package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{
			name:    "empty",
			id:      "",
			wantErr: ErrIDMissing,
		},
		{
			name:    "valid ULID",
			id:      "01HQZX3V8N2M4P6R8T0W2Y4A6C",
			wantErr: nil,
		},
		{
			name:    "generated ULID",
			id:      ulid.Make().String(),
			wantErr: nil,
		},
		{
			name:    "too short",
			id:      "01HQZX3V8N",
			wantErr: ErrIDInvalid,
		},
		{
			name:    "too long",
			id:      "01HQZX3V8N2M4P6R8T0W2Y4A6C0",
			wantErr: ErrIDInvalid,
		},
		{
			name:    "lowercase rejected",
			id:      "01hqzx3v8n2m4p6r8t0w2y4a6c",
			wantErr: ErrIDInvalid,
		},
		{
			name:    "ambiguous characters rejected",
			id:      "01HQZX3V8N2M4P6R8T0W2Y4ILO",
			wantErr: ErrIDInvalid,
		},
		{
			name:    "sql injection attempt",
			id:      "1';DROP TABLE books;--xxxx",
			wantErr: ErrIDInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if err != tt.wantErr {
				t.Errorf("ValidateID(%q) = %v, want %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateIDParam(t *testing.T) {
	r := chi.NewRouter()
	r.With(ValidateIDParam("id")).Get("/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid ID passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books/"+ulid.Make().String(), nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("malformed ID rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books/not-a-ulid", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
	})
}
