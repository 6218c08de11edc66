package puter

import (
	"strings"

	"github.com/openchat-dev/puterbridge/internal/settings"
)

// AddCustomModel validates and appends a user supplied model identifier to
// the list. The id is trimmed before validation; it must be non-empty, must
// not match a curated id, and must not already exist in the list (exact,
// case-sensitive match). The input list is not mutated.
func AddCustomModel(list []settings.CustomModel, id string, endpoint string) ([]settings.CustomModel, settings.CustomModel, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return list, settings.CustomModel{}, NewValidationError("model id must not be empty")
	}
	if IsCuratedModel(trimmed) {
		return list, settings.CustomModel{}, NewValidationError("model " + trimmed + " is already in the built-in catalog")
	}
	for i := range list {
		if list[i].ID == trimmed {
			return list, settings.CustomModel{}, NewValidationError("model " + trimmed + " already exists")
		}
	}
	entry := settings.CustomModel{ID: trimmed, Endpoint: normalizeEndpoint(endpoint)}
	out := make([]settings.CustomModel, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, entry)
	return out, entry, nil
}

// RemoveCustomModel removes the entry with the given id. Removing an absent
// id is a no-op.
func RemoveCustomModel(list []settings.CustomModel, id string) []settings.CustomModel {
	out := make([]settings.CustomModel, 0, len(list))
	for _, entry := range list {
		if entry.ID == id {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// SetCustomEndpoint updates the endpoint of the entry with the given id. An
// empty endpoint means "use the provider default" and is stored as absent.
// Unknown ids are ignored.
func SetCustomEndpoint(list []settings.CustomModel, id string, endpoint string) []settings.CustomModel {
	out := make([]settings.CustomModel, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == id {
			out[i].Endpoint = normalizeEndpoint(endpoint)
		}
	}
	return out
}

func normalizeEndpoint(endpoint string) *string {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
