package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"taskboard/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// UserIDKey is the gin context key holding the authenticated uuid.UUID.
const UserIDKey = "user_id"

// Ключи для данных токена, нужных при logout
const (
	TokenIDKey     = "token_id"
	TokenExpiryKey = "token_exp"
)

// RevocationChecker reports whether a token id was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWTAuthMiddleware authenticates Bearer tokens. revocations may be nil.
// A failing revocation store is logged and the token accepted.
func JWTAuthMiddleware(secret string, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ParseClaims(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
			return
		}

		if revocations != nil && claims.TokenID != "" {
			revoked, err := revocations.IsRevoked(c.Request.Context(), claims.TokenID)
			if err != nil {
				log.WithError(err).Warn("token revocation check failed")
			} else if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
		}

		c.Set(UserIDKey, userID)
		c.Set(TokenIDKey, claims.TokenID)
		c.Set(TokenExpiryKey, claims.ExpiresAt)
		c.Next()
	}
}

// CurrentUserID returns the id placed by JWTAuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// CurrentToken returns the jti and expiry of the request token. ok is false
// when the token carries no jti.
func CurrentToken(c *gin.Context) (tokenID string, expiresAt time.Time, ok bool) {
	tokenID = c.GetString(TokenIDKey)
	expiresAt = c.GetTime(TokenExpiryKey)
	return tokenID, expiresAt, tokenID != ""
}
