package mw

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestCacheServesRepeatedGets(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := cache.New(time.Minute, time.Minute)
	hits := 0

	r := gin.New()
	r.GET("/data", Cache(store, time.Minute), func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"hits": hits})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/data", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"hits":1`)
	}
	assert.Equal(t, 1, hits)

	// Different URIs are different cache entries.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/data?x=1", nil))
	assert.Equal(t, 2, hits)
}

func TestCacheSkipsErrorsAndWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := cache.New(time.Minute, time.Minute)
	hits := 0

	r := gin.New()
	r.GET("/fail", Cache(store, time.Minute), func(c *gin.Context) {
		hits++
		c.JSON(http.StatusBadGateway, gin.H{"message": "upstream down"})
	})
	r.POST("/fail", Cache(store, time.Minute), func(c *gin.Context) {
		hits++
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
	}
	assert.Equal(t, 2, hits)

	// POSTs are never cached.
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/fail", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 4, hits)
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/limited", RateLimiter(rate.Limit(1), 2), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes[w.Code]++
	}
	assert.Equal(t, 2, codes[http.StatusOK])
	assert.Equal(t, 3, codes[http.StatusTooManyRequests])

	// A different client IP gets its own bucket.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = fmt.Sprintf("10.0.0.2:%d", 1234)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
