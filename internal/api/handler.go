// Package api provides the management HTTP surface the settings panel calls,
// plus the aggregated model listing the chat frontend consumes.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openchat-dev/puterbridge/internal/puter"
	"github.com/openchat-dev/puterbridge/internal/registry"
)

// Handler aggregates the controller and registry references used by the
// management endpoints.
type Handler struct {
	controller    *puter.Controller
	registry      *registry.ModelRegistry
	managementKey string
}

// NewHandler creates a new management handler instance.
func NewHandler(controller *puter.Controller, reg *registry.ModelRegistry, managementKey string) *Handler {
	return &Handler{controller: controller, registry: reg, managementKey: managementKey}
}

// AuthMiddleware validates the management key on panel requests. An empty
// configured key disables the check.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.managementKey == "" {
			c.Next()
			return
		}
		key := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer"))
		if key == "" {
			key = strings.TrimSpace(c.GetHeader("X-Management-Key"))
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(h.managementKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid management key"})
			return
		}
		c.Next()
	}
}

// RegisterRoutes attaches the management and model listing routes.
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/v1/models", h.GetGlobalModels)

	group := engine.Group("/v0/management/puter", h.AuthMiddleware())
	group.GET("", h.GetState)
	group.PUT("/enabled", h.PutEnabled)
	group.POST("/sign-in", h.PostSignIn)
	group.POST("/sign-out", h.PostSignOut)
	group.GET("/models", h.GetModels)
	group.GET("/remote-models", h.GetRemoteModels)
	group.POST("/custom-models", h.PostCustomModel)
	group.PATCH("/custom-models", h.PatchCustomModel)
	group.DELETE("/custom-models", h.DeleteCustomModel)
}

// statusForError maps the integration error taxonomy to HTTP statuses.
func statusForError(err error) int {
	typed, ok := err.(*puter.Error)
	if !ok || typed == nil {
		return http.StatusInternalServerError
	}
	switch typed.Code {
	case puter.ErrCodeValidation:
		return http.StatusBadRequest
	case puter.ErrCodeAdapterUnavailable:
		return http.StatusServiceUnavailable
	case puter.ErrCodeAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
