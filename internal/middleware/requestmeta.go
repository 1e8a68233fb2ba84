package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ewang0/redis-demo/internal/handlers"
)

// RequestIDGenerator produces opaque request identifiers.
type RequestIDGenerator func() string

// RequestMeta is a middleware that derives the client identity and request
// metadata and puts them on the request context. The identity is a hash of
// IP and User-Agent; downstream code treats it as an opaque string.
func RequestMeta(_ huma.API, newRequestID RequestIDGenerator) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		ip := clientIP(ctx)
		ua := ctx.Header("User-Agent")

		meta := handlers.RequestMeta{
			Identity:  identityKey(ip, ua),
			ClientIP:  ip,
			UserAgent: ua,
			RequestID: newRequestID(),
		}

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

// identityKey hashes IP and User-Agent into a stable, opaque client
// identity for rate limiting.
func identityKey(ip, ua string) string {
	hash := sha256.Sum256([]byte(ip + "|" + ua))

	return hex.EncodeToString(hash[:])
}

// clientIP extracts the client IP from the request, considering proxies.
func clientIP(ctx huma.Context) string {
	// Check X-Forwarded-For header (may contain multiple IPs)
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		// Take the first IP (original client)
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header
	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to Host (which contains remote addr in Huma context)
	host := ctx.Host()

	ip, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}

	return ip
}
