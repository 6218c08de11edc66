package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readTimeout          = 60 * time.Second
	writeTimeout         = 10 * time.Second
	maxInboundMessageLen = 16 << 20 // 16 MiB
	heartbeatInterval    = 30 * time.Second

	pendingBuffer = 8
)

var errClosed = errors.New("bridge: websocket session closed")

// pendingRequest carries the responses of one in-flight call to its waiting
// receiver. The envelope channel is never closed; finish (closing done) marks
// the request terminal instead, so a sender blocked on a full buffer can
// never race a channel close. Receivers drain the remaining buffered
// envelopes after done fires and treat the absence of a terminal envelope as
// a failure.
type pendingRequest struct {
	ch       chan Envelope
	done     chan struct{}
	doneOnce sync.Once
}

func newPendingRequest() *pendingRequest {
	return &pendingRequest{
		ch:   make(chan Envelope, pendingBuffer),
		done: make(chan struct{}),
	}
}

// deliver queues env for the receiver, blocking for buffer space so stream
// ordering survives backpressure. It gives up when the request finishes or
// abort fires.
func (pr *pendingRequest) deliver(env Envelope, abort <-chan struct{}) bool {
	select {
	case <-pr.done:
		return false
	default:
	}
	select {
	case pr.ch <- env:
		return true
	case <-pr.done:
		return false
	case <-abort:
		return false
	}
}

// tryDeliver queues env without blocking. Used during session teardown, where
// no receiver may be draining anymore.
func (pr *pendingRequest) tryDeliver(env Envelope) bool {
	select {
	case pr.ch <- env:
		return true
	default:
		return false
	}
}

// finish marks the request terminal. Idempotent.
func (pr *pendingRequest) finish() {
	pr.doneOnce.Do(func() { close(pr.done) })
}

// session owns one websocket connection to a chat page. Concurrent calls are
// correlated through the pending map; unsolicited envelopes (auth state
// pushes) go to the authHandler.
type session struct {
	conn        *websocket.Conn
	manager     *Manager
	id          string
	closed      chan struct{}
	closeOnce   sync.Once
	writeMutex  sync.Mutex
	pending     sync.Map // map[string]*pendingRequest
	authHandler func(signedIn bool)
}

func newSession(conn *websocket.Conn, mgr *Manager, id string) *session {
	s := &session{
		conn:    conn,
		manager: mgr,
		id:      id,
		closed:  make(chan struct{}),
	}
	conn.SetReadLimit(maxInboundMessageLen)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	s.startHeartbeat()
	return s
}

func (s *session) startHeartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-s.closed:
				return
			case <-ticker.C:
				s.writeMutex.Lock()
				err := s.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout))
				s.writeMutex.Unlock()
				if err != nil {
					s.cleanup(err)
					return
				}
			}
		}
	}()
}

func (s *session) run() {
	defer s.cleanup(errClosed)
	for {
		var env Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			s.cleanup(err)
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
		s.dispatch(env)
	}
}

func (s *session) dispatch(env Envelope) {
	switch env.Type {
	case TypePing:
		_ = s.send(Envelope{ID: env.ID, Type: TypePong})
		return
	case TypeAuthState:
		if s.authHandler != nil {
			s.authHandler(decodeAuthState(env.Payload))
		}
		return
	}
	if value, ok := s.pending.Load(env.ID); ok {
		req := value.(*pendingRequest)
		delivered := req.deliver(env, s.closed)
		if isTerminal(env.Type) {
			if actual, loaded := s.pending.LoadAndDelete(env.ID); loaded {
				actual.(*pendingRequest).finish()
			}
		}
		if !delivered {
			s.manager.logDebugf("bridge: dropped envelope for abandoned call %s", env.ID)
		}
		return
	}
	if isTerminal(env.Type) {
		s.manager.logDebugf("bridge: terminal envelope for unknown id %s", env.ID)
	}
}

func isTerminal(envType string) bool {
	return envType == TypeResult || envType == TypeError || envType == TypeStreamEnd
}

func (s *session) send(env Envelope) error {
	select {
	case <-s.closed:
		return errClosed
	default:
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := s.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// request sends a call envelope and returns the pending request carrying its
// responses. The request finishes after a terminal envelope, on ctx
// cancellation, or when the session dies.
func (s *session) request(ctx context.Context, env Envelope) (*pendingRequest, error) {
	if env.ID == "" {
		return nil, fmt.Errorf("bridge: envelope id is required")
	}
	req := newPendingRequest()
	if _, loaded := s.pending.LoadOrStore(env.ID, req); loaded {
		return nil, fmt.Errorf("bridge: duplicate envelope id %s", env.ID)
	}
	if err := s.send(env); err != nil {
		if actual, loaded := s.pending.LoadAndDelete(env.ID); loaded {
			actual.(*pendingRequest).finish()
		}
		return nil, err
	}
	go func() {
		select {
		case <-ctx.Done():
			if actual, loaded := s.pending.LoadAndDelete(env.ID); loaded {
				actual.(*pendingRequest).finish()
			}
		case <-req.done:
		case <-s.closed:
		}
	}()
	return req, nil
}

func (s *session) cleanup(cause error) {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.pending.Range(func(key, value any) bool {
			req := value.(*pendingRequest)
			env := Envelope{ID: key.(string), Type: TypeError, Payload: errorPayload(cause)}
			// Best effort: when the buffer is full the receiver reports
			// the termination itself on seeing done without a terminal
			// envelope.
			req.tryDeliver(env)
			req.finish()
			s.pending.Delete(key)
			return true
		})
		_ = s.conn.Close()
		if s.manager != nil {
			s.manager.handleSessionClosed(s, cause)
		}
	})
}
