package main

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// ipAllowlist restricts access to the given comma-separated CIDR list. Bare
// IPs are accepted. An empty list allows every request. X-Forwarded-For is
// checked first, then the remote address.
func ipAllowlist(allowedCIDRs string, next http.Handler) http.Handler {
	cidrs := parseCIDRs(allowedCIDRs)
	if len(cidrs) == 0 {
		return next
	}

	logger := slog.Default().With("component", "allowlist")
	logger.Info("IP allowlist enabled", "cidrs", allowedCIDRs)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := clientIP(r)
		ip := net.ParseIP(clientIP)
		if ip != nil {
			for _, cidr := range cidrs {
				if cidr.Contains(ip) {
					next.ServeHTTP(w, r)
					return
				}
			}
		}

		logger.Warn("access denied", "ip", clientIP, "path", r.URL.Path)
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

func parseCIDRs(raw string) []*net.IPNet {
	if raw == "" {
		return nil
	}
	var nets []*net.IPNet
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.Contains(s, "/") {
			if strings.Contains(s, ":") {
				s += "/128"
			} else {
				s += "/32"
			}
		}
		_, cidr, err := net.ParseCIDR(s)
		if err != nil {
			slog.Warn("ignoring invalid CIDR", "cidr", s, "error", err)
			continue
		}
		nets = append(nets, cidr)
	}
	return nets
}

func clientIP(r *http.Request) string {
	// First X-Forwarded-For entry is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests logs every request except health checks at debug level.
func logRequests(next http.Handler) http.Handler {
	logger := slog.Default().With("component", "http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
