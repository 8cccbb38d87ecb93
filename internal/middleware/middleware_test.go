package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToken(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{
			name:  "bearer header",
			setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
			want:  "abc",
		},
		{
			name: "query parameter",
			setup: func(r *http.Request) {
				r.URL.RawQuery = "token=fromquery"
			},
			want: "fromquery",
		},
		{
			name:  "session cookie",
			setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie"}) },
			want:  "cookie",
		},
		{
			name: "header wins over cookie",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer header")
				r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie"})
			},
			want: "header",
		},
		{
			name:  "non-bearer header ignored",
			setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic xyz") },
			want:  "",
		},
		{
			name:  "nothing",
			setup: func(*http.Request) {},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tt.setup(r)
			assert.Equal(t, tt.want, Token(r))
		})
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pot", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/pot"`)
}

func TestHijackUnsupported(t *testing.T) {
	rw := &ResponseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rw.Hijack()
	assert.Error(t, err)
}

func TestRecoveryHandlesPanic(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	handler := Recovery(logger, DefaultPanicHandler)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoveryRepanicsAbortHandler(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	handler := Recovery(logger, DefaultPanicHandler)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRecoverySkipsResponseAfterUpgrade(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	handler := Recovery(logger, func(http.ResponseWriter, *http.Request, any) {
		t.Fatal("panic handler must not run on an upgraded connection")
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
		panic("boom")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Contains(t, logs.String(), `"upgraded":true`)
}
