package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/rmtpark-api/internal/config"
)

// ResponseStore holds encoded responses.  Keys are namespaced per tenant
// so a tenant's entries can be dropped together after a write.
type ResponseStore interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type redisStore struct{ rdb *redis.Client }

func (s redisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	bs, err := s.rdb.Get(ctx, key).Bytes()
	return bs, err == nil
}

func (s redisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return s.rdb.SetEx(ctx, key, payload, ttl).Err()
}

func (s redisStore) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

type memoryStore struct{ c *cache.Cache }

func (s memoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false
	}
	bs, ok := v.([]byte)
	return bs, ok
}

func (s memoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.c.Set(key, payload, ttl)
	return nil
}

func (s memoryStore) DeletePrefix(_ context.Context, prefix string) error {
	for k := range s.c.Items() {
		if strings.HasPrefix(k, prefix) {
			s.c.Delete(k)
		}
	}
	return nil
}

// NewResponseStore returns a Redis-backed store, or an in-process one when
// rdb is nil.
func NewResponseStore(rdb *redis.Client) ResponseStore {
	if rdb != nil {
		return redisStore{rdb: rdb}
	}
	return memoryStore{c: cache.New(5*time.Minute, 10*time.Minute)}
}

// captureWriter copies the response body while forwarding it to the
// client.  Bodies larger than limit are marked overflowed and never cached.
type captureWriter struct {
	http.ResponseWriter
	status     int
	buf        bytes.Buffer
	limit      int
	overflowed bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.overflowed {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.overflowed = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// perRequestHeaders are never replayed from the cache.
var perRequestHeaders = []string{
	"X-Cache",
	echo.HeaderXRequestID,
	echo.HeaderContentLength,
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
}

func tenantPrefix(cfg config.CacheConfig, tenantID uint64) string {
	return fmt.Sprintf("%s:t%d:", cfg.Prefix, tenantID)
}

func cacheKeyFrom(cfg config.CacheConfig, tenantID uint64, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s%x", tenantPrefix(cfg, tenantID), sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// NewResponseCache serves repeated tenant GETs from store.  Only 200
// responses are kept; anonymous and admin requests pass through.
func NewResponseCache(cfg config.CacheConfig, store ResponseStore, log *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || store == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID, ok := tenantOf(c)
			if !ok || c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, tenantID, c)

			if bs, hit := store.Get(ctx, key); hit {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(status, hdr.Get(echo.HeaderContentType), body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.overflowed {
				return nil
			}
			hdr := c.Response().Header().Clone()
			for _, k := range perRequestHeaders {
				hdr.Del(k)
			}
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err == nil {
				err = store.Set(context.WithoutCancel(ctx), key, payload, cfg.TTL)
			}
			if err != nil {
				log.Warn("response cache write failed", "key", key, "err", err)
			}
			return nil
		}
	}
}

// InvalidateOnWrite drops the caller's cached responses after every
// successful non-GET request, so reads never outlive a checkout, report
// deletion or tariff change.
func InvalidateOnWrite(cfg config.CacheConfig, store ResponseStore, log *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || store == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return err
			}
			tenantID, ok := tenantOf(c)
			if err != nil || !ok || c.Response().Status >= http.StatusBadRequest {
				return err
			}
			prefix := tenantPrefix(cfg, tenantID)
			if derr := store.DeletePrefix(context.WithoutCancel(c.Request().Context()), prefix); derr != nil {
				log.Warn("response cache invalidation failed", "prefix", prefix, "err", derr)
			}
			return nil
		}
	}
}
