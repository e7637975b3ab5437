package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWebSocket(t *testing.T, s *Server, headers http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, headers)
	if err == nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

// readUntil reads events until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) (Event, []Event) {
	t.Helper()
	var seen []Event
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("ReadJSON() error: %v (seen %+v)", err, seen)
		}
		if ev.Type == eventType {
			return ev, seen
		}
		seen = append(seen, ev)
	}
}

func TestWebSocketSearch(t *testing.T) {
	s := newTestServer(t, Config{})
	conn, _, err := dialWebSocket(t, s, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}

	if err := conn.WriteJSON(ClientMessage{Type: "search", SearchRequest: SearchRequest{Query: "God"}}); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	done, batches := readUntil(t, conn, EventComplete)
	if done.Total != 3 || done.Unique != 2 || len(done.Records) != 3 {
		t.Errorf("complete = %+v", done)
	}
	if done.Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", done.Sequence)
	}
	if done.Message != "3 results (2 unique verses)" {
		t.Errorf("Message = %q", done.Message)
	}

	streamed := 0
	for _, b := range batches {
		if b.Type != EventBatch || b.Sequence != 1 {
			t.Errorf("unexpected event %+v", b)
		}
		streamed += len(b.Records)
	}
	if streamed != 3 {
		t.Errorf("streamed %d matches, want 3", streamed)
	}

	if err := conn.WriteJSON(ClientMessage{Type: "search", SearchRequest: SearchRequest{Query: "love AND"}}); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}
	failed, _ := readUntil(t, conn, EventError)
	if failed.Code != "SYNTAX_ERROR" {
		t.Errorf("error event = %+v", failed)
	}

	if err := conn.WriteJSON(ClientMessage{Type: "bogus"}); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}
	invalid, _ := readUntil(t, conn, EventError)
	if invalid.Code != "INVALID_MESSAGE" {
		t.Errorf("error event = %+v", invalid)
	}
}

func TestWebSocketReceivesJobEvents(t *testing.T) {
	s := newTestServer(t, Config{})
	conn, _, err := dialWebSocket(t, s, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}

	// Registration is asynchronous; wait until the hub knows the client.
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	w := do(t, s.Handler(), http.MethodPost, "/jobs", `{"query":"wept"}`, "Content-Type", "application/json")
	var created Job
	decode(t, w, &created)

	done, _ := readUntil(t, conn, EventComplete)
	if done.JobID != created.ID || done.Total != 2 {
		t.Errorf("job complete event = %+v", done)
	}
}

func TestWebSocketRejectsOrigin(t *testing.T) {
	s := newTestServer(t, Config{AllowedOrigins: []string{"https://app.example.com"}})

	_, resp, err := dialWebSocket(t, s, http.Header{"Origin": {"https://evil.example.com"}})
	if err == nil {
		t.Fatal("Dial() should fail for a disallowed origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	conn, _, err := dialWebSocket(t, s, http.Header{"Origin": {"https://app.example.com"}})
	if err != nil {
		t.Fatalf("Dial() with allowed origin error: %v", err)
	}
	conn.Close()
}

func TestHubStop(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()
	hub.Broadcast(Event{Type: EventBatch})
	hub.Stop()
	hub.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d", hub.ClientCount())
	}
}
