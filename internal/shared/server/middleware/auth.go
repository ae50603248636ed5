package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"papershare-backend/internal/shared/auth"
	"papershare-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	sessionIDKey = "sessionId"
)

// SessionChecker resolves a session id to the user holding it. A logged out
// or expired session must return an error.
type SessionChecker interface {
	SessionUserID(ctx context.Context, sessionID string) (string, error)
}

// Auth verifies bearer tokens and stores identity in context. Requests
// without an Authorization header pass through anonymously; routes that need
// a user add RequireAuth.
func Auth(tokens *auth.Tokens, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" || tokens == nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		if sessions != nil {
			uid, err := sessions.SessionUserID(c.Request.Context(), claims.SessionID)
			if err != nil || uid != claims.UserID() {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "session expired", nil)
				return
			}
		}

		c.Set(userIDKey, claims.UserID())
		c.Set(sessionIDKey, claims.SessionID)
		c.Next()
	}
}

// RequireAuth rejects requests that Auth did not attach a user to.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return contextString(c, userIDKey)
}

// SessionIDFromContext fetches the session ID carried by the verified token.
func SessionIDFromContext(c *gin.Context) string {
	return contextString(c, sessionIDKey)
}

func contextString(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
