package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"researchhub/internal/app"
	"researchhub/internal/model"
	"researchhub/internal/pkg/jwtutil"
	"researchhub/internal/transport/http/response"
)

const (
	ContextUserIDKey    = "user_id"
	ContextUserEmailKey = "user_email"
)

// UserResolver turns a bearer token into an active user.
type UserResolver interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

func AuthJWT(resolver UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "Not authenticated")
			return
		}

		const prefix = "bearer "
		if len(authHeader) <= len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid authorization scheme")
			return
		}

		token := strings.TrimSpace(authHeader[len(prefix):])
		user, err := resolver.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrInactiveUser):
				response.Abort(c, http.StatusUnauthorized, response.CodeInactiveUser, "Inactive user")
			case errors.Is(err, jwtutil.ErrInvalidToken), errors.Is(err, app.ErrUserNotFound):
				response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "Could not validate credentials")
			default:
				response.Abort(c, http.StatusInternalServerError, response.CodeInternalServer, "authentication failed")
			}
			return
		}

		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextUserEmailKey, user.Email)
		c.Next()
	}
}
