// Package middleware holds the Gin middleware of the translation API:
// caller identity, request IDs and redacted access logs, panic recovery,
// idempotency keys, per-caller rate limiting, Prometheus metrics and
// security headers.
package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderUserID carries the caller's identity. Authentication happens
// upstream; the API trusts this header.
const HeaderUserID = "X-User-ID"

// AnonymousUser is used when no identity is supplied.
const AnonymousUser = "anonymous"

const ctxKeyUserID = "userID"

var userIDRE = regexp.MustCompile(`^[A-Za-z0-9._@:\-]{1,64}$`)

// UserIdentity stores the X-User-ID header in the context. A malformed
// header is rejected with 400; a missing one maps to AnonymousUser.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if uid == "" {
			uid = AnonymousUser
		} else if !userIDRE.MatchString(uid) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_request",
				"message":    "invalid X-User-ID",
			})
			return
		}
		c.Set(ctxKeyUserID, uid)
		c.Next()
	}
}

// UserID returns the identity stored by UserIdentity, or AnonymousUser.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return AnonymousUser
}
