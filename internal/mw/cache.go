package mw

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// CacheHeader reports whether a response was served from the cache.
const CacheHeader = "X-Cache"

type storedResponse struct {
	status   int
	header   http.Header
	body     []byte
	storedAt time.Time
}

// recordingWriter copies the body while it is written to the client.
type recordingWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w recordingWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w recordingWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves repeated GET requests from store for ttl. Only 2xx responses are
// kept. A request sent with "Cache-Control: no-cache" skips the lookup and
// refreshes the entry.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.Method + " " + c.Request.RequestURI
		if !bypass(c.Request) {
			if v, ok := store.Get(key); ok {
				replay(c, v.(storedResponse))
				return
			}
		}

		rec := &recordingWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = rec
		c.Header(CacheHeader, "MISS")

		c.Next()

		if status := rec.Status(); status >= 200 && status < 300 {
			store.Set(key, storedResponse{
				status:   status,
				header:   rec.Header().Clone(),
				body:     rec.buf.Bytes(),
				storedAt: time.Now(),
			}, ttl)
		}
	}
}

func bypass(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Cache-Control")), "no-cache")
}

func replay(c *gin.Context, resp storedResponse) {
	h := c.Writer.Header()
	for k, v := range resp.header {
		h[k] = v
	}
	h.Set(CacheHeader, "HIT")
	h.Set("Age", strconv.Itoa(int(time.Since(resp.storedAt).Seconds())))
	c.Writer.WriteHeader(resp.status)
	_, _ = c.Writer.Write(resp.body)
	c.Abort()
}
