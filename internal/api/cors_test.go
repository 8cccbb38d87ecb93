package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name    string
		origins []string
		origin  string
		allowed string
	}{
		{"wildcard", []string{"*"}, "http://any.test", "*"},
		{"empty means wildcard", nil, "http://any.test", "*"},
		{"listed origin", []string{"http://app.test"}, "http://app.test", "http://app.test"},
		{"unlisted origin", []string{"http://app.test"}, "http://evil.test", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()

			CORS(tt.origins)(ok).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.allowed, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
