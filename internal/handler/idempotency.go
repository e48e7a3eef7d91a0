package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pr-tracker/pkg/redis"
)

// IdempotencyKeyHeader lets clients retry create requests safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyStore keeps the first response of each idempotent request.
// *redis.Client satisfies it.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

func idempotencyKey(c *gin.Context) string {
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if key == "" {
		return ""
	}
	return "idem:" + c.Request.Method + ":" + c.FullPath() + ":" + c.Param("id") + ":" + key
}

// replay writes the cached response for the request's idempotency key, if any.
func (h *TrackerHandler) replay(c *gin.Context) (key string, replayed bool) {
	if h.idem == nil {
		return "", false
	}
	key = idempotencyKey(c)
	if key == "" {
		return "", false
	}

	raw, err := h.idem.Get(c.Request.Context(), key)
	if errors.Is(err, redis.ErrKeyNotFound) {
		return key, false
	}
	if err != nil {
		h.logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return key, false
	}

	var cached cachedResponse
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		h.logger.Warn("discarding corrupt idempotency entry", zap.String("key", key), zap.Error(err))
		return key, false
	}

	c.Header("Idempotent-Replayed", "true")
	c.Data(cached.Status, "application/json; charset=utf-8", cached.Body)
	return key, true
}

// respond writes body and remembers it under key.
func (h *TrackerHandler) respond(c *gin.Context, key string, status int, body interface{}) {
	if key != "" && h.idem != nil {
		if err := h.remember(c.Request.Context(), key, status, body); err != nil {
			h.logger.Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
	c.JSON(status, body)
}

func (h *TrackerHandler) remember(ctx context.Context, key string, status int, body interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	entry, err := json.Marshal(cachedResponse{Status: status, Body: raw})
	if err != nil {
		return fmt.Errorf("failed to encode idempotency entry: %w", err)
	}
	return h.idem.Set(ctx, key, string(entry), h.idemTTL)
}

var _ IdempotencyStore = (*redis.Client)(nil)
