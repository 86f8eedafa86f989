package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClientLimiter(t *testing.T) {
	l := NewClientLimiter(60, 2)

	t.Run("same client shares a bucket", func(t *testing.T) {
		assert.Same(t, l.Limiter("192.168.1.1"), l.Limiter("192.168.1.1"))
		assert.NotSame(t, l.Limiter("192.168.1.1"), l.Limiter("10.0.0.1"))
	})

	t.Run("burst then reject", func(t *testing.T) {
		assert.True(t, l.Allow("172.16.0.1"))
		assert.True(t, l.Allow("172.16.0.1"))
		assert.False(t, l.Allow("172.16.0.1"))
		assert.True(t, l.Allow("172.16.0.2"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		var wg sync.WaitGroup
		ips := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "4.4.4.4", "5.5.5.5"}
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				assert.NotNil(t, l.Limiter(ips[idx%len(ips)]))
			}(i)
		}
		wg.Wait()
	})
}

func TestClientLimiter_SweepsIdleBuckets(t *testing.T) {
	now := time.Now()
	l := NewClientLimiter(60, 5)
	l.now = func() time.Time { return now }

	l.Limiter("old")
	now = now.Add(2 * time.Hour)
	l.Limiter("new")

	assert.Equal(t, 1, l.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		requestCount  int
		expectBlocked bool
	}{
		{name: "single request passes", requestCount: 1},
		{name: "burst requests pass", requestCount: 5},
		{name: "exceeding burst gets blocked", requestCount: 10, expectBlocked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitRateLimiter(60, 5)

			router := gin.New()
			router.Use(RequestID(), RateLimit())
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			var last *httptest.ResponseRecorder
			blocked := false
			for i := 0; i < tt.requestCount; i++ {
				last = httptest.NewRecorder()
				req, _ := http.NewRequest(http.MethodGet, "/test", nil)
				router.ServeHTTP(last, req)
				if last.Code == http.StatusTooManyRequests {
					blocked = true
					break
				}
			}

			assert.Equal(t, tt.expectBlocked, blocked)
			if tt.expectBlocked {
				var body ErrorResponse
				require.NoError(t, json.Unmarshal(last.Body.Bytes(), &body))
				assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Code)
				assert.Equal(t, "60 requests per minute", body.Details["limit"])
				assert.NotEmpty(t, body.RequestID)
			}
		})
	}
}

func TestVerifyRateLimit(t *testing.T) {
	InitVerifyRateLimiter()

	router := gin.New()
	router.POST("/verify", VerifyRateLimit(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/verify", nil)
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{200, 200, 200, 200, 200, 429}, codes)
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString("request_id")})
	})

	t.Run("generates request ID when not provided", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("uses provided request ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Request-ID", "custom-request-id-123")
		router.ServeHTTP(w, req)

		assert.Equal(t, "custom-request-id-123", w.Header().Get("X-Request-ID"))
		assert.Contains(t, w.Body.String(), "custom-request-id-123")
	})
}

func TestCORSMiddleware(t *testing.T) {
	allowedOrigins := []string{"http://localhost:3000", "https://builder.example.com"}

	router := gin.New()
	router.Use(CORS(allowedOrigins))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("allows configured origins", func(t *testing.T) {
		for _, origin := range allowedOrigins {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Origin", origin)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		}
	})

	t.Run("ignores unconfigured origins", func(t *testing.T) {
		for _, origin := range []string{"http://malicious.com", "http://localhost:4000"} {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Origin", origin)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("handles preflight OPTIONS requests", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
	})

	t.Run("wildcard allows any origin without credentials", func(t *testing.T) {
		open := gin.New()
		open.Use(CORS([]string{"*"}))
		open.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://anything.test")
		open.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestSecurityAndPreviewCSP(t *testing.T) {
	router := gin.New()
	router.Use(Security())
	router.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/preview", PreviewCSP(), func(c *gin.Context) {
		c.String(http.StatusOK, "<html></html>")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotContains(t, w.Header().Get("Content-Security-Policy"), "unsafe-eval")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/preview", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
	csp := w.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "https://unpkg.com")
	assert.Contains(t, csp, "https://cdn.tailwindcss.com")
	assert.Contains(t, csp, "'unsafe-eval'")
	assert.NotEmpty(t, w.Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("recovers from panic", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
		req.Header.Set("X-Request-ID", "req-1")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Code)
		assert.Equal(t, "req-1", body.RequestID)
	})

	t.Run("does not affect normal requests", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/ok", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestLoggerPassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(Logger("/api/health"))
	router.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for path, want := range map[string]int{"/api/health": 200, "/missing": 404} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, path)
	}
}

func TestGenerateRequestID(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateRequestID()
		assert.Len(t, id, 36)
		assert.False(t, ids[id], "Duplicate ID generated: %s", id)
		ids[id] = true
	}
}

func BenchmarkClientLimiter(b *testing.B) {
	limiter := NewClientLimiter(60000, 50)
	ips := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "4.4.4.4", "5.5.5.5"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Allow(ips[i%len(ips)])
	}
}
