package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type AuthConfig struct {
	// JWTSecret enables HS256 bearer verification when set.
	JWTSecret string
	// DefaultUserID is the identity used for every request while JWTSecret is unset. Once a secret is
	// configured it is ignored and a valid token is required.
	DefaultUserID string
}

type AuthMiddleware struct {
	log      *logger.Logger
	secret   []byte
	fallback string
}

func NewAuthMiddleware(log *logger.Logger, cfg AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		log:      log.With("Middleware", "AuthMiddleware"),
		secret:   []byte(strings.TrimSpace(cfg.JWTSecret)),
		fallback: strings.TrimSpace(cfg.DefaultUserID),
	}
}

// Identify resolves the caller and stores it in the request context.
func (am *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		rd := &ctxutil.RequestData{TokenString: tokenString}

		switch {
		case tokenString != "" && len(am.secret) > 0:
			userID, err := am.verify(tokenString)
			if err != nil {
				am.log.Debug("bearer rejected", "error", err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
				})
				return
			}
			rd.UserID = userID
		case len(am.secret) == 0 && am.fallback != "":
			rd.UserID = am.fallback
			rd.Anonymous = true
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}

		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

func (am *AuthMiddleware) verify(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token invalid")
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
