package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/scolaris/scolaris/internal/middleware"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// actorID returns the authenticated user id placed on the context by the auth middleware.
func actorID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserIDKey)
}
