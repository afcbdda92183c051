package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "studycycle/backend/internal/errors"
	"studycycle/backend/internal/service"
)

const (
	UserIDContextKey = "userID"

	// TokenQueryParam carries the token for GET streams opened by browsers,
	// whose EventSource cannot set an Authorization header.
	TokenQueryParam = "access_token"
)

// Auth resolves the caller from a bearer token and stores the user id on the
// context.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, apiErr := requestToken(c)
		if apiErr != nil {
			abort(c, apiErr)
			return
		}

		userID, apiErr := authService.ParseToken(token)
		if apiErr != nil {
			abort(c, apiErr)
			return
		}

		c.Set(UserIDContextKey, userID)
		c.Next()
	}
}

func requestToken(c *gin.Context) (string, *apperrors.APIError) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if c.Request.Method == http.MethodGet {
			if token := strings.TrimSpace(c.Query(TokenQueryParam)); token != "" {
				return token, nil
			}
		}
		return "", apperrors.Unauthorized("missing authorization header")
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	return token, nil
}

func UserID(c *gin.Context) string {
	return c.GetString(UserIDContextKey)
}

func abort(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.StatusCode(), apiErr.Body())
}
