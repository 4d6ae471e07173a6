package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompressionRouter(cm *CompressionMiddleware, body string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/api/vectors/7", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(body))
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func TestCompressesAPIResponses(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	body := strings.Repeat(`{"memberVectors":{"1":[0.5,-0.25]}}`, 100)
	r := newCompressionRouter(cm, body)

	req := httptest.NewRequest(http.MethodGet, "/api/vectors/7", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	decompressed, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, body, string(decompressed))

	stats := cm.GetStats()
	assert.EqualValues(t, 1, stats["compressed_requests"])
	assert.Less(t, stats["compressed_bytes"].(int64), stats["total_bytes"].(int64))
}

func TestSkipsWithoutAcceptEncoding(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	r := newCompressionRouter(cm, `{"memberVectors":{}}`)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/vectors/7", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.JSONEq(t, `{"memberVectors":{}}`, w.Body.String())
}

func TestSkipsNonAPIPaths(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	r := newCompressionRouter(cm, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}
