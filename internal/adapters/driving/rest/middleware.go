package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/identity"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

const bearerPrefix = "Bearer "

// authenticate validates the bearer token and puts its subject on the request context.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
			return
		}

		userID, err := s.validator.Validate(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if err != nil {
			logger.Debug("rejected token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(identity.WithUser(c.Request.Context(), userID))
		c.Next()
	}
}
