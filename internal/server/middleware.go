package server

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/errors"
)

const userIDKey = "userID"

// AuthMiddleware validates the Supabase-issued bearer token. The sub claim
// carries the user's UUID; everything downstream keys on it.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			abortUnauthorized(c, "invalid token")
			return
		}
		if _, err := uuid.Parse(sub); err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(userIDKey, sub)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(apperrors.HTTPStatus(apperrors.ErrUnauthorized), gin.H{"error": reason})
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
