package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	appctx "stockflow/internal/core/context"
	"stockflow/internal/infrastructure/cache"
	"stockflow/pkg/logger"
)

const (
	HeaderIdempotencyKey    = "X-Idempotency-Key"
	HeaderIdempotentReplay  = "X-Idempotent-Replay"
	maxIdempotencyBodyBytes = 1 << 20
)

// IdempotencyStore is the key store used by Idempotency.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key string, actorID int64, operation, requestHash string) (*cache.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key string, actorID int64, statusCode int, contentType string, body []byte) error
	FailKey(ctx context.Context, key string, actorID int64, statusCode int, contentType string, body []byte) error
}

// bodyRecorder copies everything written to the client.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated X-Idempotency-Key on
// POST, PUT and DELETE. Requests without the header pass through. Must run after Auth.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		actorID := appctx.GetActorID(ctx)

		var body []byte
		if c.Request.Body != nil {
			limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
			body, _ = io.ReadAll(limited)
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewInvalidInput("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		operation := c.Request.Method + " " + c.Request.URL.Path

		replay, err := store.AcquireKey(ctx, key, actorID, operation, hex.EncodeToString(hash[:]))
		if err != nil {
			if _, ok := apperror.AsAppError(err); !ok {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			_ = c.Error(err)
			c.Abort()
			return
		}
		if replay != nil {
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		c.Next()

		status := c.Writer.Status()
		stored := recorder.body.Bytes()
		if len(c.Errors) > 0 && !recorder.Written() {
			// The error body is written later by ErrorHandler; store the same body.
			var errBody gin.H
			status, errBody = ErrorResponse(c, c.Errors.Last().Err)
			stored, _ = json.Marshal(errBody)
		}

		const contentType = "application/json; charset=utf-8"
		if status < http.StatusBadRequest {
			err = store.CompleteKey(ctx, key, actorID, status, contentType, stored)
		} else {
			err = store.FailKey(ctx, key, actorID, status, contentType, stored)
		}
		if err != nil {
			logger.Warn(ctx, "store idempotent response", "idempotency_key", key, "error", err)
		}
	}
}
