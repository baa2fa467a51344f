package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"researchhub/internal/app"
	"researchhub/internal/model"
	"researchhub/internal/pkg/jwtutil"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint(ContextUserIDKey)})
	})
	return r
}

func TestRequestIDPropagatesIncomingHeader(t *testing.T) {
	const incoming = "req-incoming-123"
	r := newEngine(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != incoming {
		t.Fatalf("request id = %q, want %q", got, incoming)
	}
}

func TestRequestLoggerRecordsRequestID(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := newEngine(RequestID(), RequestLogger(logger))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Level != logrus.InfoLevel || entry.Data["status"] != http.StatusOK || entry.Data["path"] != "/ping" {
		t.Fatalf("unexpected entry %v %+v", entry.Level, entry.Data)
	}
	if entry.Data["request_id"] != rec.Header().Get(RequestIDHeader) || entry.Data["request_id"] == "" {
		t.Fatalf("request_id = %v, header = %q", entry.Data["request_id"], rec.Header().Get(RequestIDHeader))
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newEngine(CORS([]string{"http://localhost:5173"}))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin allowed: %q", got)
	}
}

type stubResolver struct {
	user *model.User
	err  error
}

func (s stubResolver) Authenticate(context.Context, string) (*model.User, error) {
	return s.user, s.err
}

func TestAuthJWT(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		resolver stubResolver
		want     int
	}{
		{"valid", "Bearer tok", stubResolver{user: &model.User{ID: 7, IsActive: true}}, http.StatusOK},
		{"lowercase scheme", "bearer tok", stubResolver{user: &model.User{ID: 7, IsActive: true}}, http.StatusOK},
		{"missing", "", stubResolver{}, http.StatusUnauthorized},
		{"basic scheme", "Basic abc", stubResolver{}, http.StatusUnauthorized},
		{"invalid token", "Bearer tok", stubResolver{err: jwtutil.ErrInvalidToken}, http.StatusUnauthorized},
		{"unknown user", "Bearer tok", stubResolver{err: app.ErrUserNotFound}, http.StatusUnauthorized},
		{"inactive user", "Bearer tok", stubResolver{err: app.ErrInactiveUser}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(AuthJWT(tt.resolver))
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK && rec.Body.String() != `{"user_id":7}` {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
}
