package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
)

// cachedReply stores a completed response for replay to retried requests.
type cachedReply struct {
	StatusCode  int             `json:"status_code"`
	Body        json.RawMessage `json:"body"`
	ContentType string          `json:"content_type"`
}

// replyCache persists responses keyed by client idempotency key.
type replyCache struct {
	client *redis.Client
}

func (rc *replyCache) get(ctx context.Context, key string) (*cachedReply, error) {
	data, err := rc.client.Get(ctx, "idempotency:"+key).Bytes()
	if err != nil {
		return nil, err
	}

	var reply cachedReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (rc *replyCache) set(ctx context.Context, key string, reply *cachedReply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, "idempotency:"+key, data, idempotencyTTL).Err()
}

// captureWriter wraps gin.ResponseWriter to keep a copy of the body.
type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the original response to any retried
// mutating request that carries the same Idempotency-Key header. A client
// resubmitting a booking after a network timeout gets the first outcome back
// instead of a second reservation attempt.
func IdempotencyMiddleware(redisClient *redis.Client) gin.HandlerFunc {
	cache := &replyCache{client: redisClient}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		reply, err := cache.get(ctx, key)
		if err != nil && err != redis.Nil {
			// Cache unavailable: degrade to normal processing.
			c.Next()
			return
		}

		if reply != nil {
			if reply.ContentType != "" {
				c.Header("Content-Type", reply.ContentType)
			}
			c.Data(reply.StatusCode, reply.ContentType, reply.Body)
			c.Abort()
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		// 5xx responses are not cached so the client's retry gets a fresh
		// attempt.
		status := c.Writer.Status()
		if status >= 200 && status < 500 {
			_ = cache.set(ctx, key, &cachedReply{
				StatusCode:  status,
				Body:        w.body.Bytes(),
				ContentType: c.Writer.Header().Get("Content-Type"),
			})
		}
	}
}
