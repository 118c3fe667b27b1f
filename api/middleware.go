package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActorHeader carries the authenticated user id, set by the upstream gateway.
const ActorHeader = "X-User-ID"

const actorKey = "actor_id"

// RequireActor rejects requests without a valid caller identity.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(ActorHeader), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Code: "unauthorized", Error: "missing or invalid " + ActorHeader})
			return
		}
		c.Set(actorKey, id)
		c.Next()
	}
}

func actorID(c *gin.Context) int64 {
	return c.GetInt64(actorKey)
}

type IdempotencyStore interface {
	AcquireIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	CompleteIdempotencyKey(ctx context.Context, key string, ttl time.Duration) error
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// Idempotency rejects a repeated Idempotency-Key on state-changing requests. A request that
// failed releases its key so the client can retry. Store errors let the request through.
func Idempotency(store IdempotencyStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		header := c.GetHeader("Idempotency-Key")
		if header == "" {
			c.Next()
			return
		}

		key := c.GetHeader(ActorHeader) + ":" + header
		ctx := c.Request.Context()

		acquired, err := store.AcquireIdempotencyKey(ctx, key, ttl)
		if err != nil {
			logger.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			c.Header("X-Idempotency-Hit", "true")
			c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Code: "duplicate_request", Error: "request already processed"})
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.ReleaseIdempotencyKey(ctx, key); err != nil {
				logger.Warn("release idempotency key", zap.Error(err))
			}
			return
		}
		if err := store.CompleteIdempotencyKey(ctx, key, ttl); err != nil {
			logger.Warn("complete idempotency key", zap.Error(err))
		}
	}
}

func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
			logger.Error("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}
