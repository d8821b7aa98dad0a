package middleware

import (
	"errors"
	"net/http"
	"strings"

	"emiho-marketplace/internal/response"
	"emiho-marketplace/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by IdentityAuth
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
)

var errMissingSubject = errors.New("token has no subject")

// IdentityClaims are the claims of an identity-provider access token
type IdentityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ParseIdentityToken validates an HS256 access token and returns its claims
func ParseIdentityToken(tokenString string, secret []byte) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if claims.Subject == "" {
		return nil, errMissingSubject
	}
	return claims, nil
}

// IdentityAuth verifies the bearer token issued by the identity provider and
// stores the user id and email in the context. With an empty secret the
// middleware lets every request through unauthenticated.
func IdentityAuth(secret string) gin.HandlerFunc {
	if secret == "" {
		logging.Warnf("IDENTITY_JWT_SECRET not set, user routes are not authenticated")
		return func(c *gin.Context) {
			c.Next()
		}
	}
	key := []byte(secret)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.ErrorJSON(c, http.StatusUnauthorized, "Missing authorization token")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.ErrorJSON(c, http.StatusUnauthorized, "Invalid authorization format. Use: Bearer <token>")
			c.Abort()
			return
		}

		claims, err := ParseIdentityToken(parts[1], key)
		if err != nil {
			logging.Warnf("Rejected identity token: %v", err)
			response.ErrorJSON(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(UserEmailKey, claims.Email)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, if any
func CurrentUserID(c *gin.Context) (string, bool) {
	id := c.GetString(UserIDKey)
	return id, id != ""
}

// ActingAs reports whether the request may act for userID. Unauthenticated
// requests pass when IdentityAuth runs without a secret.
func ActingAs(c *gin.Context, userID string) bool {
	current, ok := CurrentUserID(c)
	if !ok {
		return true
	}
	return strings.EqualFold(current, userID)
}
