package middleware

import (
	"net/http"
	"strings"

	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey type for context keys to avoid collisions.
type ContextKey string

const (
	// ContextAccountIDKey holds the caller's account id (uuid.UUID) in
	// the gin context. Absent for anonymous callers.
	ContextAccountIDKey ContextKey = "accountID"
	// ContextEmailKey holds the caller's email.
	ContextEmailKey ContextKey = "accountEmail"

	authHeaderPrefix = "Bearer "
)

// TokenClaims are the JWT claims issued by the platform's auth service.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthMiddleware authenticates callers from a bearer JWT.
type AuthMiddleware struct {
	secret     []byte
	adminEmail string
	log        *logger.Logger
}

// NewAuthMiddleware creates the auth middleware.
func NewAuthMiddleware(jwtSecret, adminEmail string, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret:     []byte(jwtSecret),
		adminEmail: adminEmail,
		log:        log,
	}
}

func (m *AuthMiddleware) parse(tokenString string) (*TokenClaims, uuid.UUID, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, uuid.Nil, err
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return claims, accountID, nil
}

// RequireAuth rejects requests without a valid bearer token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization token"})
			return
		}

		claims, accountID, err := m.parse(strings.TrimPrefix(authHeader, authHeaderPrefix))
		if err != nil {
			m.log.Debugw("Token validation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			return
		}

		c.Set(string(ContextAccountIDKey), accountID)
		c.Set(string(ContextEmailKey), claims.Email)
		c.Next()
	}
}

// OptionalAuth resolves the caller identity when a valid token is
// present and proceeds anonymously otherwise. Visibility filtering
// downstream treats the anonymous case as not entitled.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			if claims, accountID, err := m.parse(strings.TrimPrefix(authHeader, authHeaderPrefix)); err == nil {
				c.Set(string(ContextAccountIDKey), accountID)
				c.Set(string(ContextEmailKey), claims.Email)
			}
		}
		c.Next()
	}
}

// RequireAdmin allows only the configured administrator identity.
// Must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(string(ContextEmailKey))
		if m.adminEmail == "" || !strings.EqualFold(email, m.adminEmail) {
			m.log.Warnw("Admin endpoint rejected", "email", email)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator access required"})
			return
		}
		c.Next()
	}
}

// AccountID returns the caller's account id, or uuid.Nil for an
// anonymous caller.
func AccountID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(string(ContextAccountIDKey))
	if !ok {
		return uuid.Nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
