// Package middleware provides request-scoped middleware for the HTTP layer.
package middleware

import (
	"context"
	"errors"
	"net/http"

	clientrepo "propsales_backend/internal/clients/repository"
	"propsales_backend/platform/httpkit"
	"propsales_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderClientID carries the caller's client identity. Whatever identity
// provider fronts the API resolves its principal to a client row and forwards
// the id here; the acquisition context never sees anything else.
const HeaderClientID = "X-Client-ID"

// ClientReader checks that a client id refers to an existing client row.
type ClientReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (clientrepo.Client, error)
}

// RequestID attaches a request id to the context for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ResolveClient authenticates the client-scoped routes: the X-Client-ID
// header must name an existing client. The resolved id is stored on the gin
// context and mirrored into the request context for logging.
func ResolveClient(clients ClientReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderClientID)
		if raw == "" {
			httpkit.Error(c, http.StatusUnauthorized, "missing client identity", nil)
			c.Abort()
			return
		}

		clientID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusUnauthorized, "invalid client identity", nil)
			c.Abort()
			return
		}

		if _, err := clients.GetByID(c.Request.Context(), clientID); err != nil {
			if errors.Is(err, clientrepo.ErrNotFound) {
				httpkit.Error(c, http.StatusUnauthorized, "unknown client identity", nil)
			} else {
				httpkit.Error(c, http.StatusInternalServerError, "failed to resolve client identity", nil)
			}
			c.Abort()
			return
		}

		c.Set(httpkit.ContextClientIDKey, clientID)
		ctx := context.WithValue(c.Request.Context(), logger.ClientIDKey, clientID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ClientID extracts the resolved client id from the gin context. The second
// return is false when ResolveClient did not run on this route.
func ClientID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(httpkit.ContextClientIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
