package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	t.Run("sets headers and passes through", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/cars", nil)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		CORS(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("answers preflight without calling handler", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/spawn-car", nil)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		CORS(handler).ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestLogging(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})

	RequestLogging(handler).ServeHTTP(w, req)
	// The response must pass through unchanged.
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	t.Run("under the limit", func(t *testing.T) {
		limiter := NewRateLimiter()
		req := httptest.NewRequest("POST", "/api/spawn-car", nil)
		req.RemoteAddr = "192.168.1.1:12345"

		handlerCalled := false
		handler := limiter.Limit(5, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("over the limit", func(t *testing.T) {
		limiter := NewRateLimiter()
		req := httptest.NewRequest("POST", "/api/spawn-car", nil)
		req.RemoteAddr = "192.168.1.2:12345"

		handlerCalled := false
		handler := limiter.Limit(1, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.True(t, handlerCalled)

		w = httptest.NewRecorder()
		handlerCalled = false
		handler.ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("separate clients tracked separately", func(t *testing.T) {
		limiter := NewRateLimiter()
		handler := limiter.Limit(1, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		first := httptest.NewRequest("POST", "/api/spawn-car", nil)
		first.RemoteAddr = "10.0.0.1:1000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, first)
		assert.Equal(t, http.StatusOK, w.Code)

		second := httptest.NewRequest("POST", "/api/spawn-car", nil)
		second.RemoteAddr = "10.0.0.2:1000"
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, second)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("forwarded header identifies client", func(t *testing.T) {
		limiter := NewRateLimiter()
		handler := limiter.Limit(1, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest("POST", "/api/spawn-car", nil)
		req.RemoteAddr = "10.0.0.3:1000"
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.3")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		// Same forwarded client from a different socket still counts.
		req = httptest.NewRequest("POST", "/api/spawn-car", nil)
		req.RemoteAddr = "10.0.0.4:1000"
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}
