package bridge

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/openchat-dev/puterbridge/internal/puter"
)

// Manager exposes the websocket endpoint for the chat page and keeps at most
// one live session: a new connection from the page replaces the previous one,
// mirroring a reloaded tab.
type Manager struct {
	path     string
	upgrader websocket.Upgrader

	sessMutex sync.RWMutex
	current   *session
	client    *SDKClient

	onConnected    func(sdk puter.SDK)
	onDisconnected func(err error)

	logDebugf func(string, ...any)
	logWarnf  func(string, ...any)
}

// Options configures a Manager instance.
type Options struct {
	// Path is the HTTP path expected for websocket upgrades.
	Path string
	// OnConnected fires with the session backed SDK after each upgrade.
	OnConnected func(sdk puter.SDK)
	// OnDisconnected fires after the live session goes away.
	OnDisconnected func(err error)
	LogDebugf      func(string, ...any)
	LogWarnf       func(string, ...any)
}

// NewManager builds a websocket bridge manager with the supplied options.
func NewManager(opts Options) *Manager {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = "/v0/puter/ws"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	mgr := &Manager{
		path: path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		onConnected:    opts.OnConnected,
		onDisconnected: opts.OnDisconnected,
		logDebugf:      opts.LogDebugf,
		logWarnf:       opts.LogWarnf,
	}
	if mgr.logDebugf == nil {
		mgr.logDebugf = func(string, ...any) {}
	}
	if mgr.logWarnf == nil {
		mgr.logWarnf = func(string, ...any) {}
	}
	return mgr
}

// Path returns the HTTP path the manager expects for websocket upgrades.
func (m *Manager) Path() string { return m.path }

// Connected reports whether a page is currently attached.
func (m *Manager) Connected() bool {
	m.sessMutex.RLock()
	defer m.sessMutex.RUnlock()
	return m.current != nil
}

// SDK returns the SDK implementation backed by the live session, or nil.
func (m *Manager) SDK() puter.SDK {
	m.sessMutex.RLock()
	defer m.sessMutex.RUnlock()
	if m.client == nil {
		return nil
	}
	return m.client
}

// Handler exposes an http.Handler that upgrades connections to bridge
// sessions.
func (m *Manager) Handler() http.Handler {
	return http.HandlerFunc(m.handleWebsocket)
}

// Stop gracefully closes the active session.
func (m *Manager) Stop(_ context.Context) error {
	m.sessMutex.Lock()
	sess := m.current
	m.current = nil
	m.client = nil
	m.sessMutex.Unlock()
	if sess != nil {
		sess.cleanup(errors.New("bridge: manager stopped"))
	}
	return nil
}

// handleWebsocket upgrades the connection and installs the session as the
// live SDK transport. The page announces its initial sign-in state through
// the signed_in query parameter.
func (m *Manager) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(r.Method, http.MethodGet) {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logWarnf("bridge: upgrade failed: %v", err)
		return
	}

	s := newSession(conn, m, uuid.NewString())
	client := NewSDKClient(s)
	if signedIn, err2 := strconv.ParseBool(r.URL.Query().Get("signed_in")); err2 == nil {
		client.setSignedIn(signedIn)
	}
	s.authHandler = client.setSignedIn

	m.sessMutex.Lock()
	replaced := m.current
	m.current = s
	m.client = client
	m.sessMutex.Unlock()

	if replaced != nil {
		replaced.cleanup(errors.New("bridge: replaced by new connection"))
	}
	m.logDebugf("bridge: page connected (session %s)", s.id)
	if m.onConnected != nil {
		m.onConnected(client)
	}

	go s.run()
}

func (m *Manager) handleSessionClosed(s *session, cause error) {
	if s == nil {
		return
	}
	m.sessMutex.Lock()
	active := m.current == s
	if active {
		m.current = nil
		m.client = nil
	}
	m.sessMutex.Unlock()
	if !active {
		return
	}
	m.logDebugf("bridge: page disconnected (session %s): %v", s.id, cause)
	if m.onDisconnected != nil {
		m.onDisconnected(cause)
	}
}
