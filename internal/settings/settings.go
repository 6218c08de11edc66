// Package settings manages the persisted user settings fragment for the
// Puter integration. The fragment is stored as JSON inside the user's global
// settings blob; this package handles loading (including upgrading the legacy
// on-disk format), saving, and watching for external edits.
package settings

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CustomModel is one user supplied model identifier with an optional
// alternate endpoint. A nil Endpoint means "use the provider default".
type CustomModel struct {
	// ID is the model identifier as entered by the user, trimmed.
	ID string `json:"id"`
	// Endpoint optionally overrides the completion endpoint for this model.
	Endpoint *string `json:"endpoint,omitempty"`
}

// Settings is the Puter settings fragment persisted per user.
type Settings struct {
	// ProviderEnabled gates the whole integration. When false no Puter
	// derived entries may appear in the global model list.
	ProviderEnabled bool `json:"providerEnabled"`
	// CustomModels is the user maintained model list in insertion order.
	CustomModels []CustomModel `json:"customModels"`
}

// Clone returns a deep copy so callers can mutate freely.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	copySettings := *s
	if len(s.CustomModels) > 0 {
		copySettings.CustomModels = make([]CustomModel, len(s.CustomModels))
		for i, m := range s.CustomModels {
			copySettings.CustomModels[i] = m
			if m.Endpoint != nil {
				endpoint := *m.Endpoint
				copySettings.CustomModels[i].Endpoint = &endpoint
			}
		}
	}
	return &copySettings
}

// UnmarshalJSON upgrades the legacy persisted format where customModels was a
// plain string array. "foo" becomes {id: "foo"} with no endpoint; the upgrade
// is lossless.
func (m *CustomModel) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "\"") {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		m.ID = id
		m.Endpoint = nil
		return nil
	}
	type plain CustomModel
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("settings: invalid custom model entry: %w", err)
	}
	*m = CustomModel(decoded)
	return nil
}
