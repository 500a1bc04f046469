package security

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
)

// Detector flags requests that look like scanner or traversal probes. It
// only observes and logs; blocking is left to the caller.
type Detector struct {
	suspiciousRequests int64
}

func NewDetector() *Detector {
	return &Detector{}
}

var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	".git", ".ssh", "etc/passwd", "cmd.exe",
	"union select", "<script", "javascript:",
}

// IsSuspicious analyzes request patterns for potential probes.
func (d *Detector) IsSuspicious(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			atomic.AddInt64(&d.suspiciousRequests, 1)
			return true
		}
	}

	switch r.Method {
	case "TRACE", "TRACK", "DEBUG":
		atomic.AddInt64(&d.suspiciousRequests, 1)
		return true
	}
	return false
}

// SuspiciousCount returns the number of flagged requests so far.
func (d *Detector) SuspiciousCount() int64 {
	return atomic.LoadInt64(&d.suspiciousRequests)
}

// Middleware logs flagged requests and lets them through; handlers decide
// how requests fail.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.IsSuspicious(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr)
		}
		next.ServeHTTP(w, r)
	})
}
