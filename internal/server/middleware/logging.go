// Package middleware provides the HTTP filters and kratos middleware that wrap every route.
package middleware

import (
	"context"
	"strings"
	"time"

	pkglog "HealthPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// Logging returns a middleware that logs each request and injects the request context.
//
// Example output:
//
//	🟢 POST /metrics - 201 (42ms) | request_id: 6f1c...
//	🐌 [6f1c...] Slow request POST /metrics 1350ms (threshold 1000ms)
func Logging(logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			startTime := time.Now()

			var (
				method    string
				path      string
				ip        string
				userAgent string
				requestID string
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				method = tr.Operation()
				path = tr.Operation()

				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()
					method = httpReq.Method
					path = httpReq.URL.Path
					if httpReq.URL.RawQuery != "" {
						path = path + "?" + httpReq.URL.RawQuery
					}
					ip = extractClientIP(httpReq)
					userAgent = httpReq.Header.Get("User-Agent")
					requestID = httpReq.Header.Get(pkglog.RequestIDHeader)
				}
			}
			if requestID == "" {
				requestID = pkglog.GenerateRequestID()
			}

			ctx = pkglog.WithRequestContext(ctx, requestID, method, path, ip)

			reply, err := handler(ctx, req)

			duration := time.Since(startTime).Milliseconds()
			logger.RequestWithContext(ctx, method, path, statusOf(reply, err), duration,
				"user_agent", userAgent,
			)

			return reply, err
		}
	}
}

// extractClientIP prefers X-Real-IP, then the first X-Forwarded-For entry, then RemoteAddr.
func extractClientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	return req.RemoteAddr
}

// statusOf returns the HTTP status the request will be answered with.
func statusOf(reply interface{}, err error) int {
	if err != nil {
		return int(errors.FromError(err).Code)
	}
	if sc, ok := reply.(interface{ StatusCode() int }); ok {
		return sc.StatusCode()
	}
	return 200
}
