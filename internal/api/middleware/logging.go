package middleware

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/training-dashboard/backend/internal/observability"
)

// statusRecorder captures the status and body size of a response. It keeps
// http.Hijacker and http.Flusher so the WebSocket upgrade still works.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.size += n
	return n, err
}

func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return h.Hijack()
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// quietPaths are polled by probes and the overlay and are only logged on errors.
var quietPaths = map[string]bool{
	"/api/health":      true,
	"/api/sync/status": true,
	"/metrics":         true,
}

// routeLabel names the matched mux route so metrics stay bounded by the
// route table rather than by request paths.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// Logging logs each request and records its latency by route.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := routeLabel(r)
		observability.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), elapsed)

		if quietPaths[r.URL.Path] && rec.status < http.StatusBadRequest {
			return
		}
		log.Printf("%s %s (%s) %d %dB %s", r.Method, r.URL.Path, route, rec.status, rec.size, elapsed.Round(time.Microsecond))
	})
}
