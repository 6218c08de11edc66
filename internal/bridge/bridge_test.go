package bridge

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/openchat-dev/puterbridge/internal/puter"
)

// fakePage connects to the bridge like the chat page script would and answers
// call envelopes through respond.
type fakePage struct {
	conn *websocket.Conn
}

func dialPage(t *testing.T, serverURL, query string) *fakePage {
	t.Helper()
	wsURL := strings.Replace(serverURL, "http", "ws", 1)
	if query != "" {
		wsURL += "?" + query
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &fakePage{conn: conn}
}

func (p *fakePage) readCall(t *testing.T) Envelope {
	t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env Envelope
	if err := p.conn.ReadJSON(&env); err != nil {
		t.Fatalf("page read failed: %v", err)
	}
	if env.Type != TypeCall {
		t.Fatalf("expected call envelope, got %s", env.Type)
	}
	return env
}

func (p *fakePage) send(t *testing.T, env Envelope) {
	t.Helper()
	_ = p.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := p.conn.WriteJSON(env); err != nil {
		t.Fatalf("page write failed: %v", err)
	}
}

func newBridgeServer(t *testing.T) (*Manager, string, chan puter.SDK) {
	t.Helper()
	connected := make(chan puter.SDK, 4)
	mgr := NewManager(Options{
		OnConnected: func(sdk puter.SDK) { connected <- sdk },
	})
	server := httptest.NewServer(mgr.Handler())
	t.Cleanup(server.Close)
	t.Cleanup(func() { _ = mgr.Stop(context.Background()) })
	return mgr, server.URL, connected
}

func awaitSDK(t *testing.T, connected chan puter.SDK) puter.SDK {
	t.Helper()
	select {
	case sdk := <-connected:
		return sdk
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for page connection")
		return nil
	}
}

func TestBridge_GetUserRoundTrip(t *testing.T) {
	_, url, connected := newBridgeServer(t)
	page := dialPage(t, url, "")
	sdk := awaitSDK(t, connected)

	go func() {
		call := page.readCall(t)
		if call.Method != MethodAuthGetUser {
			t.Errorf("expected %s, got %s", MethodAuthGetUser, call.Method)
		}
		page.send(t, Envelope{ID: call.ID, Type: TypeResult, Payload: json.RawMessage(`{"username":"alice"}`)})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	raw, err := sdk.GetUser(ctx)
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if gjson.GetBytes(raw, "username").String() != "alice" {
		t.Fatalf("unexpected payload: %s", raw)
	}
}

func TestBridge_ChatStreaming(t *testing.T) {
	_, url, connected := newBridgeServer(t)
	page := dialPage(t, url, "")
	sdk := awaitSDK(t, connected)

	go func() {
		call := page.readCall(t)
		if call.Method != MethodAIChat {
			t.Errorf("expected %s, got %s", MethodAIChat, call.Method)
		}
		if !gjson.GetBytes(call.Payload, "stream").Bool() {
			t.Errorf("chat call not marked streaming: %s", call.Payload)
		}
		page.send(t, Envelope{ID: call.ID, Type: TypeStreamChunk, Payload: json.RawMessage(`{"text":"Hel"}`)})
		page.send(t, Envelope{ID: call.ID, Type: TypeStreamChunk, Payload: json.RawMessage(`{"text":"lo"}`)})
		page.send(t, Envelope{ID: call.ID, Type: TypeStreamEnd})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := sdk.Chat(ctx, []byte(`{"model":"gpt-4o","stream":true}`), true)
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if resp.Stream == nil {
		t.Fatal("expected a streaming response")
	}
	var tokens []string
	for chunk := range resp.Stream {
		tokens = append(tokens, gjson.GetBytes(chunk, "text").String())
	}
	if strings.Join(tokens, "") != "Hello" {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
}

func TestBridge_ErrorEnvelope(t *testing.T) {
	_, url, connected := newBridgeServer(t)
	page := dialPage(t, url, "")
	sdk := awaitSDK(t, connected)

	go func() {
		call := page.readCall(t)
		page.send(t, Envelope{ID: call.ID, Type: TypeError, Payload: json.RawMessage(`{"error":{"message":"quota exhausted"}}`)})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := sdk.ListModels(ctx)
	if err == nil || !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("expected decoded page error, got %v", err)
	}
}

func TestBridge_SignedInStateTracking(t *testing.T) {
	mgr, url, connected := newBridgeServer(t)
	page := dialPage(t, url, "signed_in=true")
	sdk := awaitSDK(t, connected)

	if !sdk.IsSignedIn() {
		t.Fatal("signed_in query parameter not applied")
	}
	if mgr.SDK() == nil || !mgr.Connected() {
		t.Fatal("manager does not report the live session")
	}

	// An unsolicited auth_state push flips the cached flag.
	page.send(t, Envelope{ID: "push-1", Type: TypeAuthState, Payload: json.RawMessage(`{"signedIn":false}`)})
	deadline := time.Now().Add(5 * time.Second)
	for sdk.IsSignedIn() {
		if time.Now().After(deadline) {
			t.Fatal("auth_state push not applied")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBridge_NewConnectionReplacesOld(t *testing.T) {
	mgr, url, connected := newBridgeServer(t)
	dialPage(t, url, "")
	first := awaitSDK(t, connected)

	dialPage(t, url, "signed_in=true")
	second := awaitSDK(t, connected)

	if first == second {
		t.Fatal("expected a fresh SDK per connection")
	}
	if mgr.SDK() != second {
		t.Fatal("manager still points at the replaced session")
	}

	// Calls on the replaced session fail immediately instead of hanging.
	if _, err := first.GetUser(context.Background()); err == nil {
		t.Fatal("expected error from replaced session")
	}
}

func TestErrorChunk_PassThroughAndWrap(t *testing.T) {
	shaped := json.RawMessage(`{"success":false,"error":{"message":"boom"}}`)
	if got := errorChunk(shaped); string(got) != string(shaped) {
		t.Fatalf("shaped payload rewritten: %s", got)
	}

	wrapped := errorChunk(json.RawMessage(`{"message":"plain failure"}`))
	if gjson.GetBytes(wrapped, "success").Bool() {
		t.Fatalf("wrapped payload not marked failed: %s", wrapped)
	}
	if gjson.GetBytes(wrapped, "error.message").String() != "plain failure" {
		t.Fatalf("message lost in wrapping: %s", wrapped)
	}
}

func TestDecodeAuthState(t *testing.T) {
	if !decodeAuthState(json.RawMessage(`{"signedIn":true}`)) {
		t.Fatal("signedIn true not decoded")
	}
	if decodeAuthState(json.RawMessage(`{}`)) {
		t.Fatal("missing flag must decode as signed out")
	}
}

func TestBridge_CancelledCallWithBackedUpStream(t *testing.T) {
	_, url, connected := newBridgeServer(t)
	page := dialPage(t, url, "")
	sdk := awaitSDK(t, connected)

	ctx, cancel := context.WithCancel(context.Background())
	resp, err := sdk.Chat(ctx, []byte(`{"model":"gpt-4o","stream":true}`), true)
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}

	// Flood the pending buffers while nothing consumes the stream, so the
	// read loop ends up blocked on a full buffer, then abandon the call.
	call := page.readCall(t)
	for i := 0; i < 24; i++ {
		page.send(t, Envelope{ID: call.ID, Type: TypeStreamChunk, Payload: json.RawMessage(`{"text":"x"}`)})
	}
	time.Sleep(100 * time.Millisecond)
	cancel()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range resp.Stream {
		}
	}()
	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never terminated after cancellation")
	}

	// The session must survive the abandoned call: a fresh round trip works.
	go func() {
		userCall := page.readCall(t)
		page.send(t, Envelope{ID: userCall.ID, Type: TypeResult, Payload: json.RawMessage(`{"username":"alice"}`)})
	}()
	userCtx, userCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer userCancel()
	raw, err := sdk.GetUser(userCtx)
	if err != nil {
		t.Fatalf("session unusable after cancelled call: %v", err)
	}
	if gjson.GetBytes(raw, "username").String() != "alice" {
		t.Fatalf("unexpected payload: %s", raw)
	}
}

func TestBridge_PageDeathMidStreamSurfacesError(t *testing.T) {
	_, url, connected := newBridgeServer(t)
	page := dialPage(t, url, "")
	sdk := awaitSDK(t, connected)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := sdk.Chat(ctx, []byte(`{"model":"gpt-4o","stream":true}`), true)
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}

	// The page dies mid-stream without a terminal envelope while the
	// consumer lags behind a full buffer.
	call := page.readCall(t)
	for i := 0; i < 12; i++ {
		page.send(t, Envelope{ID: call.ID, Type: TypeStreamChunk, Payload: json.RawMessage(`{"text":"x"}`)})
	}
	_ = page.conn.Close()

	var chunks [][]byte
	for chunk := range resp.Stream {
		chunks = append(chunks, chunk)
		time.Sleep(10 * time.Millisecond)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks delivered")
	}
	last := chunks[len(chunks)-1]
	if !gjson.GetBytes(last, "error").Exists() {
		t.Fatalf("truncated stream ended without an error chunk: %s", last)
	}
	for _, chunk := range chunks[:len(chunks)-1] {
		if gjson.GetBytes(chunk, "text").String() != "x" {
			t.Fatalf("unexpected chunk before the error: %s", chunk)
		}
	}
}
