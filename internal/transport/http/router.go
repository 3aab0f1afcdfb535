package http

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"

	"beer-quiz-service/internal/app"
	"beer-quiz-service/pkg/logger"
	"beer-quiz-service/pkg/metrics"
)

// NewRouter mounts health, metrics, the JSON API and the WebSocket endpoint.
func NewRouter(service *app.QuizService, log logger.Logger) http.Handler {
	api := NewAPIHandler(service, log)
	ws := NewWSHandler(service, log)

	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, h))
	}
	handle("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	handle("GET /api/quiz", api.getContent)
	handle("POST /api/sessions", api.createSession)
	handle("GET /api/sessions/{id}", api.getSession)
	handle("POST /api/sessions/{id}/email", api.submitEmail)
	handle("POST /api/sessions/{id}/answers", api.submitAnswer)
	handle("POST /api/sessions/{id}/reset", api.resetSession)
	handle("DELETE /api/sessions/{id}", api.endSession)
	handle("GET /ws", ws.ServeWS)
	return mux
}

// instrument counts requests per route pattern and status code.
func instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.RecordHTTPRequest(route, r.Method, strconv.Itoa(rec.status))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
