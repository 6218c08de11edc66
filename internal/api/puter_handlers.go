package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetState reports the panel state: lifecycle, loading flag, settings
// fragment and the signed in account when present.
func (h *Handler) GetState(c *gin.Context) {
	current := h.controller.Settings()
	response := gin.H{
		"state":        h.controller.State(),
		"loading":      h.controller.Loading(),
		"enabled":      current.ProviderEnabled,
		"customModels": current.CustomModels,
	}
	if user := h.controller.CurrentUser(c.Request.Context()); user != nil {
		response["user"] = user
	}
	c.JSON(http.StatusOK, response)
}

// PutEnabled toggles the integration on or off.
func (h *Handler) PutEnabled(c *gin.Context) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.controller.SetEnabled(c.Request.Context(), *body.Enabled); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.controller.State()})
}

// PostSignIn runs the provider sign-in flow.
func (h *Handler) PostSignIn(c *gin.Context) {
	if err := h.controller.SignIn(c.Request.Context()); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	response := gin.H{"state": h.controller.State()}
	if user := h.controller.CurrentUser(c.Request.Context()); user != nil {
		response["user"] = user
	}
	c.JSON(http.StatusOK, response)
}

// PostSignOut terminates the provider session.
func (h *Handler) PostSignOut(c *gin.Context) {
	if err := h.controller.SignOut(c.Request.Context()); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.controller.State()})
}

// GetModels returns the cached candidate list shown by the settings panel.
func (h *Handler) GetModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.controller.AvailableModels()})
}

// GetRemoteModels queries the connected SDK for the model identifiers the
// gateway reports for the current account.
func (h *Handler) GetRemoteModels(c *gin.Context) {
	ids, err := h.controller.RemoteModels(c.Request.Context())
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": ids})
}

// PostCustomModel registers a new custom model identifier.
func (h *Handler) PostCustomModel(c *gin.Context) {
	var body struct {
		ID       string `json:"id"`
		Endpoint string `json:"endpoint"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	entry, err := h.controller.AddCustomModel(c.Request.Context(), body.ID, body.Endpoint)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": entry})
}

// PatchCustomModel updates a custom model's endpoint override. An empty
// endpoint restores the provider default.
func (h *Handler) PatchCustomModel(c *gin.Context) {
	var body struct {
		ID       string  `json:"id"`
		Endpoint *string `json:"endpoint"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.ID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	endpoint := ""
	if body.Endpoint != nil {
		endpoint = *body.Endpoint
	}
	h.controller.SetCustomEndpoint(c.Request.Context(), body.ID, endpoint)
	c.JSON(http.StatusOK, gin.H{"customModels": h.controller.Settings().CustomModels})
}

// DeleteCustomModel removes a custom model by id; unknown ids are a no-op.
func (h *Handler) DeleteCustomModel(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id"})
		return
	}
	h.controller.RemoveCustomModel(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"customModels": h.controller.Settings().CustomModels})
}

// GetGlobalModels renders the application wide model list in OpenAI format.
func (h *Handler) GetGlobalModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   h.registry.GetAvailableModels("openai"),
	})
}
