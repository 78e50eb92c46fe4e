package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// TrustedKey is set to true for requests arriving over TLS or from the local machine.
const TrustedKey = "trusted_origin"

// TrustedOrigin marks secure requests. Direct device printing is offered to them only.
func TrustedOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(TrustedKey, isTrusted(c))
		c.Next()
	}
}

// IsTrusted reports whether TrustedOrigin marked the request
func IsTrusted(c *gin.Context) bool {
	return c.GetBool(TrustedKey)
}

func isTrusted(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	if strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		return true
	}
	host := c.Request.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
