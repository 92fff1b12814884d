package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"careTracker/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const RequestIdKey contextKey = "request_id"

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get("X-Request-ID")
		if requestId == "" {
			requestId = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestId)

		ctx := context.WithValue(r.Context(), RequestIdKey, requestId)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIdKey).(string); ok {
		return id
	}
	return ""
}

type loggingWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (lw *loggingWriter) WriteHeader(code int) {
	if !lw.wroteHeader {
		lw.status = code
		lw.wroteHeader = true
		lw.ResponseWriter.WriteHeader(code)
	}
}

func (lw *loggingWriter) Write(b []byte) (int, error) {
	if !lw.wroteHeader {
		lw.WriteHeader(http.StatusOK)
	}

	n, err := lw.ResponseWriter.Write(b)
	lw.size += n
	return n, err
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestId := GetRequestID(r.Context())

		logger.Info(
			"HTTP_IN: Начало запроса",
			logger.RequestID(requestId),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.String("client_ip", r.RemoteAddr),
		)

		lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r)

		logLevel := zap.InfoLevel
		if lw.status >= 400 && lw.status < 500 {
			logLevel = zap.WarnLevel
		} else if lw.status >= 500 {
			logLevel = zap.ErrorLevel
		}
		logger.Log(
			logLevel,
			"HTTP_OUT: Завершение запроса",
			logger.RequestID(requestId),
			zap.Int("status", lw.status),
			zap.Int("bytes_written", lw.size),
			zap.Duration("ms", time.Since(start)),
		)
	})
}

func writeError(w http.ResponseWriter, r *http.Request, code int, errCode, message string, extra map[string]any) {
	body := map[string]any{
		"error":      errCode,
		"message":    message,
		"request_id": GetRequestID(r.Context()),
	}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// timeoutWriter не пропускает запись после того, как клиенту уже ушёл ответ о таймауте.
// Заголовки обработчика копятся в своей карте и переносятся в ответ при первой записи:
// после таймаута настоящие заголовки пишет только основная горутина.
type timeoutWriter struct {
	w        http.ResponseWriter
	h        http.Header
	mtx      sync.Mutex
	timedOut bool
	wrote    bool
}

func newTimeoutWriter(w http.ResponseWriter) *timeoutWriter {
	h := w.Header().Clone()
	if h == nil {
		h = make(http.Header)
	}
	return &timeoutWriter{w: w, h: h}
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.h
}

// copyHeaderLocked и writeHeaderLocked вызываются под tw.mtx
func (tw *timeoutWriter) copyHeaderLocked() {
	dst := tw.w.Header()
	for k, v := range tw.h {
		dst[k] = append([]string(nil), v...)
	}
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	tw.wrote = true
	tw.copyHeaderLocked()
	tw.w.WriteHeader(code)
}

// finish переносит заголовки обработчика, который ничего не записал
func (tw *timeoutWriter) finish() {
	tw.mtx.Lock()
	defer tw.mtx.Unlock()
	if !tw.wrote && !tw.timedOut {
		tw.copyHeaderLocked()
	}
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mtx.Lock()
	defer tw.mtx.Unlock()
	if tw.timedOut || tw.wrote {
		return
	}
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mtx.Lock()
	defer tw.mtx.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wrote {
		tw.writeHeaderLocked(http.StatusOK)
	}
	return tw.w.Write(b)
}

// Timeout ограничивает время обработки запроса; по истечении отвечает 504,
// если обработчик ещё ничего не записал
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			r = r.WithContext(ctx)

			tw := newTimeoutWriter(w)
			done := make(chan struct{})
			panicChan := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicChan <- p
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case <-done:
				tw.finish()
				return
			case p := <-panicChan:
				panic(p)
			case <-ctx.Done():
				tw.mtx.Lock()
				if tw.wrote {
					// ответ уже пишется, дожидаемся обработчика
					tw.mtx.Unlock()
					select {
					case <-done:
					case p := <-panicChan:
						panic(p)
					}
					return
				}
				defer tw.mtx.Unlock()
				tw.timedOut = true

				logger.Warn(
					"HTTP: таймаут запроса",
					logger.RequestID(GetRequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("client_ip", r.RemoteAddr),
					zap.Duration("ms", timeout),
				)
				writeError(w, r, http.StatusGatewayTimeout, "REQUEST_TIMEOUT",
					"Запрос обрабатывался слишком долго", nil)
			}
		})
	}
}

type clientInfo struct {
	count   int
	resetAt time.Time
}

// rateLimiter - счётчик запросов по IP с фиксированным окном.
// Раз в окно из карты удаляются клиенты с истёкшим окном.
type rateLimiter struct {
	mtx       sync.Mutex
	rpm       int
	window    time.Duration
	clients   map[string]*clientInfo
	nextSweep time.Time
}

func newRateLimiter(rpm int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		rpm:     rpm,
		window:  window,
		clients: make(map[string]*clientInfo),
	}
}

// allow учитывает запрос и возвращает остаток, время сброса окна и разрешение
func (l *rateLimiter) allow(ip string, now time.Time) (int, time.Time, bool) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.sweepLocked(now)

	info, exists := l.clients[ip]
	switch {
	case !exists:
		info = &clientInfo{count: 1, resetAt: now.Add(l.window)}
		l.clients[ip] = info
	case now.After(info.resetAt):
		info.count = 1
		info.resetAt = now.Add(l.window)
	case info.count >= l.rpm:
		return 0, info.resetAt, false
	default:
		info.count++
	}

	remaining := l.rpm - info.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, info.resetAt, true
}

func (l *rateLimiter) sweepLocked(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for ip, info := range l.clients {
		if now.After(info.resetAt) {
			delete(l.clients, ip)
		}
	}
	l.nextSweep = now.Add(l.window)
}

func (l *rateLimiter) size() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.clients)
}

// RateLimit ограничивает число запросов с одного IP в минуту; rpm <= 0 отключает лимит
func RateLimit(rpm int) func(http.Handler) http.Handler {
	limiter := newRateLimiter(rpm, time.Minute)

	return func(next http.Handler) http.Handler {
		if rpm <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			remaining, resetAt, ok := limiter.allow(getIp(r), now)
			if !ok {
				retryAfter := int(resetAt.Sub(now).Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, r, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
					"Слишком много запросов. Попробуйте позже.",
					map[string]any{"retry_after": retryAfter})
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rpm))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			next.ServeHTTP(w, r)
		})
	}
}

func getIp(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
