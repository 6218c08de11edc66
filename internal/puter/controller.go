package puter

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/openchat-dev/puterbridge/internal/registry"
	"github.com/openchat-dev/puterbridge/internal/settings"
)

// RegistryClientID identifies this integration's contribution in the global
// model registry.
const RegistryClientID = "puter"

// State is the settings panel lifecycle state.
type State string

const (
	// StateDisabled means the integration is switched off.
	StateDisabled State = "disabled"
	// StateEnabledSignedOut means the integration is on but no provider
	// session exists.
	StateEnabledSignedOut State = "enabled_signed_out"
	// StateEnabledSignedIn means the integration is on with an active
	// provider session.
	StateEnabledSignedIn State = "enabled_signed_in"
)

// Notifier receives user facing notifications. Every caught error ends up
// here; nothing propagates uncaught to the surrounding application.
type Notifier interface {
	Notify(level string, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(level string, message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(level string, message string) { f(level, message) }

// Controller orchestrates the settings panel: it owns the persisted fragment,
// reacts to toggle / sign-in / custom model events, and keeps the global
// model registry in sync. All collaborators are passed in explicitly; there
// is no ambient global lookup. Mutating actions are serialised by a mutex so
// interleaved persistence writes cannot occur.
type Controller struct {
	mu      sync.Mutex
	loading atomic.Bool

	adapter  *Adapter
	store    settings.Store
	registry *registry.ModelRegistry
	notifier Notifier

	settings  *settings.Settings
	available []Model
}

// NewController wires the controller to its collaborators. A nil notifier is
// replaced by a logging sink.
func NewController(adapter *Adapter, store settings.Store, reg *registry.ModelRegistry, notifier Notifier) *Controller {
	if notifier == nil {
		notifier = NotifierFunc(func(level, message string) {
			log.Infof("puter notification (%s): %s", level, message)
		})
	}
	return &Controller{
		adapter:  adapter,
		store:    store,
		registry: reg,
		notifier: notifier,
		settings: &settings.Settings{},
	}
}

// Start loads the persisted fragment and reconstructs the runtime state: the
// sign-in state comes from the adapter (the external SDK persists its own
// session), the model caches are rebuilt from the fragment.
func (c *Controller) Start(ctx context.Context) error {
	loaded, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if loaded == nil {
		loaded = &settings.Settings{}
	}
	c.settings = loaded
	c.refreshLocked()
	return nil
}

// State derives the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	enabled := c.settings.ProviderEnabled
	c.mu.Unlock()
	if !enabled {
		return StateDisabled
	}
	if c.adapter.IsSignedIn() {
		return StateEnabledSignedIn
	}
	return StateEnabledSignedOut
}

// Loading reports whether an operation is in flight. The flag is advisory:
// the UI uses it to disable inputs, the data layer relies on the mutex.
func (c *Controller) Loading() bool { return c.loading.Load() }

// Settings returns a copy of the current fragment.
func (c *Controller) Settings() *settings.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.Clone()
}

// AvailableModels returns the cached candidate list shown by the settings
// panel. It is empty unless the integration is enabled and signed in.
func (c *Controller) AvailableModels() []Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Model, len(c.available))
	copy(out, c.available)
	return out
}

// CurrentUser returns the signed in account, or nil.
func (c *Controller) CurrentUser(ctx context.Context) *User {
	return c.adapter.CurrentUser(ctx)
}

// RemoteModels queries the gateway for the model identifiers available to
// the current account.
func (c *Controller) RemoteModels(ctx context.Context) ([]string, error) {
	ids, err := c.adapter.ListModels(ctx)
	if err != nil {
		log.Warnf("puter: failed to list remote models: %v", err)
		c.notifier.Notify("error", "Failed to list Puter models: "+err.Error())
		return nil, err
	}
	return ids, nil
}

// SetEnabled toggles the integration. Enabling is rejected when no SDK is
// present: the toggle reverts, the user is notified, and nothing is
// persisted. Every accepted change persists the fragment and resyncs the
// global model list before returning.
func (c *Controller) SetEnabled(ctx context.Context, enabled bool) error {
	c.loading.Store(true)
	defer c.loading.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()

	if enabled && !c.adapter.IsAvailable() {
		c.notifier.Notify("error", "Puter SDK is not available; the integration stays disabled")
		return ErrAdapterUnavailable
	}
	if c.settings.ProviderEnabled == enabled {
		return nil
	}
	c.settings.ProviderEnabled = enabled
	c.persistLocked(ctx)
	c.refreshLocked()
	return nil
}

// SignIn runs the provider sign-in flow. On failure the state is unchanged
// and the user is notified.
func (c *Controller) SignIn(ctx context.Context) error {
	c.loading.Store(true)
	defer c.loading.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.settings.ProviderEnabled {
		c.notifier.Notify("error", "Enable the Puter integration before signing in")
		return NewAuthError("integration is disabled")
	}
	if err := c.adapter.SignIn(ctx); err != nil {
		log.Warnf("puter: sign-in failed: %v", err)
		c.notifier.Notify("error", "Puter sign-in failed: "+err.Error())
		return err
	}
	if user := c.adapter.CurrentUser(ctx); user != nil {
		c.notifier.Notify("info", "Signed in to Puter as "+user.Username)
	}
	c.refreshLocked()
	return nil
}

// SignOut terminates the provider session and clears the cached model list.
func (c *Controller) SignOut(ctx context.Context) error {
	c.loading.Store(true)
	defer c.loading.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.adapter.SignOut(ctx); err != nil {
		log.Warnf("puter: sign-out failed: %v", err)
		c.notifier.Notify("error", "Puter sign-out failed: "+err.Error())
		return err
	}
	c.notifier.Notify("info", "Signed out of Puter")
	c.refreshLocked()
	return nil
}

// AddCustomModel validates and stores a new custom model, persists the
// fragment and refreshes the model lists. Validation failures are surfaced so
// the panel can keep the input for correction.
func (c *Controller) AddCustomModel(ctx context.Context, id, endpoint string) (settings.CustomModel, error) {
	c.loading.Store(true)
	defer c.loading.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()

	updated, entry, err := AddCustomModel(c.settings.CustomModels, id, endpoint)
	if err != nil {
		c.notifier.Notify("error", err.Error())
		return settings.CustomModel{}, err
	}
	c.settings.CustomModels = updated
	c.persistLocked(ctx)
	c.refreshLocked()
	return entry, nil
}

// RemoveCustomModel deletes a custom model by id; unknown ids are a no-op
// that still persists, keeping the observable contract uniform.
func (c *Controller) RemoveCustomModel(ctx context.Context, id string) {
	c.loading.Store(true)
	defer c.loading.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings.CustomModels = RemoveCustomModel(c.settings.CustomModels, id)
	c.persistLocked(ctx)
	c.refreshLocked()
}

// SetCustomEndpoint updates a custom model's endpoint override. An empty
// endpoint restores the provider default.
func (c *Controller) SetCustomEndpoint(ctx context.Context, id, endpoint string) {
	c.loading.Store(true)
	defer c.loading.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings.CustomModels = SetCustomEndpoint(c.settings.CustomModels, id, endpoint)
	c.persistLocked(ctx)
	c.refreshLocked()
}

// Reload re-reads the persisted fragment, e.g. after the settings file was
// edited outside the management API.
func (c *Controller) Reload(ctx context.Context) {
	loaded, err := c.store.Load(ctx)
	if err != nil {
		log.Errorf("puter: failed to reload settings: %v", err)
		c.notifier.Notify("error", "Failed to reload Puter settings: "+err.Error())
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if loaded == nil {
		loaded = &settings.Settings{}
	}
	c.settings = loaded
	c.refreshLocked()
}

// persistLocked writes the fragment. Persistence failures are logged and
// notified like any other error, with no retry.
func (c *Controller) persistLocked(ctx context.Context) {
	if err := c.store.Save(ctx, c.settings); err != nil {
		log.Errorf("puter: failed to persist settings: %v", err)
		c.notifier.Notify("error", "Failed to save Puter settings: "+err.Error())
	}
}

// refreshLocked rebuilds the cached candidate list and the global registry
// contribution from scratch. The full rebuild (rather than an incremental
// patch) keeps the displayed models from diverging from the persisted
// fragment. Entries appear in the global list only while the integration is
// enabled and a session exists.
func (c *Controller) refreshLocked() {
	if c.settings.ProviderEnabled && c.adapter.IsSignedIn() {
		c.available = MergedModels(c.settings.CustomModels)
		c.registry.RegisterClient(RegistryClientID, GlobalModelInfos(c.settings.CustomModels))
		return
	}
	c.available = nil
	c.registry.UnregisterClient(RegistryClientID)
}
