package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sangkips/tillpoint/internal/config"
)

// Headers every till front end sends; they are allowed whatever CORS_ALLOWED_HEADERS says.
var tillRequestHeaders = []string{
	"Authorization",
	"Content-Type",
	"X-Request-ID",
	IdempotencyKeyHeader,
}

// Response headers a till reads: request correlation, bill replays and rate limiting.
var tillResponseHeaders = []string{
	"X-Request-ID",
	"X-Idempotency-Replayed",
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
	"Retry-After",
}

// CORSMiddleware lets browser tills served from another origin call the API. Tills
// authenticate with bearer tokens, never cookies, so credentials stay off and "*" in
// CORS_ALLOWED_ORIGINS opens the API to every origin on the shop network.
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:  cfg.AllowedMethods,
		AllowHeaders:  withRequired(cfg.AllowedHeaders, tillRequestHeaders),
		ExposeHeaders: tillResponseHeaders,
		MaxAge:        12 * time.Hour,
	}

	switch {
	case containsFold(cfg.AllowedOrigins, "*"):
		corsConfig.AllowAllOrigins = true
	case len(cfg.AllowedOrigins) > 0:
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	default:
		// a till running on the shop machine itself
		corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}

	if len(corsConfig.AllowMethods) == 0 {
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}

	return cors.New(corsConfig)
}

// withRequired appends the required headers missing from configured.
func withRequired(configured, required []string) []string {
	out := append([]string(nil), configured...)
	for _, h := range required {
		if !containsFold(out, h) {
			out = append(out, h)
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}
