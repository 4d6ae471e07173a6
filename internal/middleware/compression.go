// Package middleware holds HTTP middleware that is not tied to a
// single service, currently gzip response compression.
package middleware

import (
	"compress/gzip"
	"io"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	CompressionLevel int      // Gzip compression level (1-9, 9 is best compression)
	PathPrefixes     []string // Request paths eligible for compression
}

// DefaultCompressionConfig returns the default compression configuration.
// Vector documents carry one float matrix per member and per bill, so
// the API responses dominate bandwidth and compress well.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		CompressionLevel: 6,
		PathPrefixes:     []string{"/api/"},
	}
}

// CompressionMiddleware provides gzip compression for HTTP responses
type CompressionMiddleware struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	cm := &CompressionMiddleware{
		config: config,
		stats:  NewCompressionStats(),
	}
	cm.pool.New = func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, config.CompressionLevel)
		return gz
	}
	return cm
}

// Handler returns a Gin middleware that gzips eligible responses.
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cm.clientAcceptsGzip(c) || !cm.eligiblePath(c.Request.URL.Path) {
			c.Next()
			return
		}

		counter := &countingWriter{w: c.Writer}
		gz := cm.pool.Get().(*gzip.Writer)
		gz.Reset(counter)

		wrapped := &gzipResponseWriter{ResponseWriter: c.Writer, gzipWriter: gz}

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")
		c.Writer = wrapped

		c.Next()

		gz.Close()
		cm.pool.Put(gz)

		cm.stats.RecordRequest(wrapped.written, counter.written, true)
	}
}

func (cm *CompressionMiddleware) clientAcceptsGzip(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept-Encoding"), "gzip")
}

func (cm *CompressionMiddleware) eligiblePath(path string) bool {
	for _, prefix := range cm.config.PathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// GetStats returns compression statistics
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	return cm.stats.GetStats()
}

// gzipResponseWriter routes the response body through the gzip writer
// while headers and status go to the underlying writer.
type gzipResponseWriter struct {
	gin.ResponseWriter
	gzipWriter *gzip.Writer
	written    int64
}

func (gzw *gzipResponseWriter) Write(data []byte) (int, error) {
	gzw.written += int64(len(data))
	return gzw.gzipWriter.Write(data)
}

func (gzw *gzipResponseWriter) WriteString(s string) (int, error) {
	gzw.written += int64(len(s))
	return gzw.gzipWriter.Write([]byte(s))
}

// countingWriter tracks the compressed byte count on its way to the
// client.
type countingWriter struct {
	w       io.Writer
	written int64
}

func (cw *countingWriter) Write(data []byte) (int, error) {
	n, err := cw.w.Write(data)
	cw.written += int64(n)
	return n, err
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	CompressedBytes    int64
	mutex              sync.RWMutex
}

// NewCompressionStats creates new compression statistics
func NewCompressionStats() *CompressionStats {
	return &CompressionStats{}
}

// RecordRequest records a request's compression stats
func (cs *CompressionStats) RecordRequest(originalSize, compressedSize int64, compressed bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.TotalRequests++
	cs.TotalBytes += originalSize

	if compressed {
		cs.CompressedRequests++
		cs.CompressedBytes += compressedSize
	}
}

// GetStats returns current compression statistics
func (cs *CompressionStats) GetStats() map[string]interface{} {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	compressionRatio := float64(0)
	if cs.TotalBytes > 0 {
		compressionRatio = float64(cs.CompressedBytes) / float64(cs.TotalBytes)
	}

	return map[string]interface{}{
		"total_requests":      cs.TotalRequests,
		"compressed_requests": cs.CompressedRequests,
		"total_bytes":         cs.TotalBytes,
		"compressed_bytes":    cs.CompressedBytes,
		"compression_ratio":   compressionRatio,
	}
}
