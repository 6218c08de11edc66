// Package registry provides the application wide registry of selectable
// models aggregated across all configured providers. Providers register and
// withdraw their model lists as whole units; the registry never mutates one
// provider's entries on behalf of another.
package registry

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ModelInfo represents one selectable model in the global list.
type ModelInfo struct {
	// ID is the unique identifier for the model across all providers.
	ID string `json:"id"`
	// Object type for the model (typically "model").
	Object string `json:"object"`
	// Created timestamp when the model was registered.
	Created int64 `json:"created,omitempty"`
	// OwnedBy indicates the organisation that owns the model.
	OwnedBy string `json:"owned_by"`
	// Name is the human readable display name.
	Name string `json:"name,omitempty"`
	// External marks models served by an external gateway rather than a
	// locally configured connection.
	External bool `json:"external,omitempty"`
	// Puter marks models contributed by the Puter browser integration.
	Puter bool `json:"puter,omitempty"`
}

// Clone returns a copy so registry internals never alias caller slices.
func (m *ModelInfo) Clone() *ModelInfo {
	if m == nil {
		return nil
	}
	copyModel := *m
	return &copyModel
}

// registration tracks one provider's contribution to the global list.
type registration struct {
	models      []*ModelInfo
	lastUpdated time.Time
}

// ModelRegistry manages the global registry of available models.
type ModelRegistry struct {
	mutex sync.RWMutex
	// clients maps client ID to the ordered model list it registered.
	clients map[string]*registration
	// order preserves client registration order for deterministic listings.
	order []string
}

// NewModelRegistry creates an empty registry.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{clients: make(map[string]*registration)}
}

// RegisterClient replaces the model list contributed by clientID. The list is
// replaced as a whole: callers rebuild rather than patch, so the registry can
// never diverge from the caller's source of truth. An empty list withdraws
// the client.
func (r *ModelRegistry) RegisterClient(clientID string, models []*ModelInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if len(models) == 0 {
		r.unregisterLocked(clientID)
		return
	}

	cloned := make([]*ModelInfo, 0, len(models))
	for _, model := range models {
		if model == nil || model.ID == "" {
			continue
		}
		cloned = append(cloned, model.Clone())
	}
	if len(cloned) == 0 {
		r.unregisterLocked(clientID)
		return
	}

	if _, exists := r.clients[clientID]; !exists {
		r.order = append(r.order, clientID)
	}
	r.clients[clientID] = &registration{models: cloned, lastUpdated: time.Now()}
	log.Debugf("Registered client %s with %d models", clientID, len(cloned))
}

// UnregisterClient withdraws all models contributed by clientID. Other
// clients' entries are untouched.
func (r *ModelRegistry) UnregisterClient(clientID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.unregisterLocked(clientID)
}

func (r *ModelRegistry) unregisterLocked(clientID string) {
	if _, exists := r.clients[clientID]; !exists {
		return
	}
	delete(r.clients, clientID)
	for i, id := range r.order {
		if id == clientID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Debugf("Unregistered client %s", clientID)
}

// Models returns the aggregated model list in registration order.
func (r *ModelRegistry) Models() []*ModelInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]*ModelInfo, 0)
	for _, clientID := range r.order {
		reg := r.clients[clientID]
		if reg == nil {
			continue
		}
		for _, model := range reg.models {
			out = append(out, model.Clone())
		}
	}
	return out
}

// ClientModels returns the models registered by one client, or nil when the
// client is unknown.
func (r *ModelRegistry) ClientModels(clientID string) []*ModelInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	reg := r.clients[clientID]
	if reg == nil {
		return nil
	}
	out := make([]*ModelInfo, 0, len(reg.models))
	for _, model := range reg.models {
		out = append(out, model.Clone())
	}
	return out
}

// GetAvailableModels renders the aggregated list for the given handler type.
// "openai" is the shape the chat frontend consumes.
func (r *ModelRegistry) GetAvailableModels(handlerType string) []map[string]any {
	models := r.Models()
	out := make([]map[string]any, 0, len(models))
	for _, model := range models {
		if converted := convertModelToMap(model, handlerType); converted != nil {
			out = append(out, converted)
		}
	}
	return out
}

// convertModelToMap converts ModelInfo to the wire format for a handler type.
func convertModelToMap(model *ModelInfo, handlerType string) map[string]any {
	if model == nil {
		return nil
	}
	switch handlerType {
	case "openai", "":
		result := map[string]any{
			"id":       model.ID,
			"object":   "model",
			"owned_by": model.OwnedBy,
		}
		if model.Created > 0 {
			result["created"] = model.Created
		}
		if model.Name != "" {
			result["name"] = model.Name
		}
		if model.External {
			result["external"] = true
		}
		if model.Puter {
			result["puter"] = true
		}
		return result
	default:
		return map[string]any{"id": model.ID, "object": "model"}
	}
}
