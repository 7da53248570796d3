package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/repository/memory"
)

type failingCounter struct{}

func (failingCounter) IncrWindow(string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis is down")
}

func limitedRouter(counter WindowCounter, max int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	limiter := NewRateLimiter(counter)
	r.GET("/api/leaderboard/export", limiter.Limit(RateLimitConfig{MaxRequests: max, Window: time.Minute, KeyPrefix: "rl:test"}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimiter_Limit(t *testing.T) {
	r := limitedRouter(memory.NewCacheRepo(), 2)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leaderboard/export", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leaderboard/export", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_FailOpen(t *testing.T) {
	r := limitedRouter(failingCounter{}, 1)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leaderboard/export", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
