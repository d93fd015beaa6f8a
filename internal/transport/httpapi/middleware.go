package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customers/internal/metrics"
	"github.com/vladislavdragonenkov/customers/internal/service/idempotency"
)

const (
	// HeaderRequestID - сквозной идентификатор запроса.
	HeaderRequestID = "X-Request-ID"
	// HeaderIdempotencyKey - ключ идемпотентности клиента.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotentReplay выставляется, когда ответ взят из кэша идемпотентности.
	HeaderIdempotentReplay = "Idempotent-Replayed"

	requestIDKey = "request_id"
)

// requestID проставляет X-Request-ID, генерируя его при отсутствии.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// accessLog пишет одну строку на запрос.
func accessLog(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(started).Milliseconds(),
			"request_id":  requestIDFrom(c),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("http request")
			return
		}
		entry.Debug("http request")
	}
}

// observeHTTP пишет метрики по шаблону маршрута, а не по сырому пути.
func observeHTTP(m *metrics.ServiceMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(started))
	}
}

// bodyRecorder дублирует тело ответа для сохранения в кэше идемпотентности.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// idempotent оборачивает создающий обработчик ключом Idempotency-Key.
// Без заголовка запрос выполняется как обычно.
func idempotent(guard *idempotency.Guard, m *metrics.ServiceMetrics, logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if guard == nil || key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			writeError(c, logger, bindError(err))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		hash := idempotency.RequestHash(c.Request.Method+" "+c.FullPath(), body)
		replay, err := guard.Acquire(c.Request.Context(), key, hash)
		switch {
		case errors.Is(err, idempotency.ErrInProgress), errors.Is(err, idempotency.ErrKeyReused):
			c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Message: err.Error(), RequestID: requestIDFrom(c)})
			return
		case err != nil:
			writeError(c, logger, err)
			return
		case replay != nil:
			m.RecordIdempotentReplay()
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(replay.Status, "application/json; charset=utf-8", replay.Body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		// Ответ сохраняется вне контекста запроса: клиент мог уже отключиться.
		storeCtx := context.WithoutCancel(c.Request.Context())
		defer func() {
			if r := recover(); r != nil {
				// Ключ не остаётся в processing: паника фиксируется как 500 и уходит дальше в gin.Recovery.
				payload, _ := json.Marshal(errorResponse{
					Message:   http.StatusText(http.StatusInternalServerError),
					RequestID: requestIDFrom(c),
				})
				guard.Complete(storeCtx, key, http.StatusInternalServerError, payload)
				panic(r)
			}
		}()
		c.Next()

		guard.Complete(storeCtx, key, rec.Status(), rec.body.Bytes())
	}
}
