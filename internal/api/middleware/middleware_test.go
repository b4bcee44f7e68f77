// Package middleware_test provides behavior tests for the API middleware package.
package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-zoned/internal/api/middleware"
	"github.com/haukened/rr-zoned/internal/dns/gateways/directory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticChecker map[string]string

func (s staticChecker) CheckCredentials(user, password string) bool {
	want, ok := s[user]
	return ok && want == password
}

type captureLogger struct {
	mu     sync.Mutex
	fields []map[string]any
	msgs   []string
}

func (l *captureLogger) Info(f map[string]any, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fields = append(l.fields, f)
	l.msgs = append(l.msgs, msg)
}
func (l *captureLogger) Error(map[string]any, string) {}
func (l *captureLogger) Debug(map[string]any, string) {}
func (l *captureLogger) Warn(map[string]any, string)  {}
func (l *captureLogger) Panic(map[string]any, string) {}
func (l *captureLogger) Fatal(map[string]any, string) {}

func newAuthRouter(checker directory.CredentialChecker) *gin.Engine {
	router := gin.New()
	router.Use(middleware.BasicAuth(checker, "zones"))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(middleware.UserKey)})
	})
	return router
}

func TestBasicAuth(t *testing.T) {
	checker := staticChecker{"alice": "s3cret"}
	tests := []struct {
		name     string
		user     string
		password string
		noHeader bool
		wantCode int
	}{
		{name: "valid", user: "alice", password: "s3cret", wantCode: http.StatusOK},
		{name: "wrong password", user: "alice", password: "nope", wantCode: http.StatusUnauthorized},
		{name: "unknown user", user: "mallory", password: "s3cret", wantCode: http.StatusUnauthorized},
		{name: "empty user", user: "", password: "s3cret", wantCode: http.StatusUnauthorized},
		{name: "missing header", noHeader: true, wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if !tt.noHeader {
				req.SetBasicAuth(tt.user, tt.password)
			}
			w := httptest.NewRecorder()
			newAuthRouter(checker).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="zones", charset="UTF-8"`, w.Header().Get("WWW-Authenticate"))
				assert.Contains(t, w.Body.String(), `"severity":"warning"`)
			} else {
				assert.JSONEq(t, `{"user":"alice"}`, w.Body.String())
			}
		})
	}
}

func TestBasicAuth_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetBasicAuth("whoever", "")
	w := httptest.NewRecorder()
	newAuthRouter(directory.Anonymous{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"whoever"}`, w.Body.String())
}

func TestRequestLogger(t *testing.T) {
	logger := &captureLogger{}
	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.GET("/test", func(c *gin.Context) {
		c.Set(middleware.UserKey, "alice")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Len(t, logger.msgs, 1)
	assert.Equal(t, "api request", logger.msgs[0])
	f := logger.fields[0]
	assert.Equal(t, http.MethodGet, f["method"])
	assert.Equal(t, "/test", f["path"])
	assert.Equal(t, http.StatusNoContent, f["status"])
	assert.Equal(t, "alice", f["user"])
}

func TestRequestLogger_NilLogger(t *testing.T) {
	router := gin.New()
	router.Use(middleware.RequestLogger(nil))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
