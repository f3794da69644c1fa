package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/library-reservation/internal/config"
)

// bodyRecorder tees the response into a bounded buffer.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflow = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    // Encode sorts the query keys so equivalent URLs share an entry
    sum := sha1.Sum([]byte(c.Request().Method + " " + c.Request().URL.Path + "?" + c.QueryParams().Encode()))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// cached entry layout: [4 status][4 content-type length][content-type][body]
func encodeEntry(status int, contentType string, body []byte) []byte {
    out := make([]byte, 8, 8+len(contentType)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(contentType)))
    out = append(out, contentType...)
    return append(out, body...)
}

func decodeEntry(bs []byte) (status int, contentType string, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, "", nil, false
    }
    n := int(binary.BigEndian.Uint32(bs[4:8]))
    if 8+n > len(bs) {
        return 0, "", nil, false
    }
    return int(binary.BigEndian.Uint32(bs[0:4])), string(bs[8 : 8+n]), bs[8+n:], true
}

// NewRedisCache caches successful anonymous catalog reads.  Requests that
// carry an Authorization header are never cached or served from cache.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cfg.Methods[strings.ToUpper(req.Method)] || req.Header.Get("Authorization") != "" {
                return next(c)
            }
            key := cacheKey(cfg, c)

            if bs, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
                if status, ct, body, ok := decodeEntry(bs); ok {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(status, ct, body)
                }
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }
            entry := encodeEntry(rec.status, c.Response().Header().Get(echo.HeaderContentType), rec.buf.Bytes())
            if err := rdb.Set(context.WithoutCancel(req.Context()), key, entry, cfg.TTL).Err(); err != nil {
                c.Logger().Warnf("cache: store %s: %v", key, err)
            }
            return nil
        }
    }
}
