package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"nexus-support-service/internal/models"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("job"))
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestHub_BroadcastsStatus(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitClients(t, hub, 1)

	event := models.TranscriptionStatusEvent{
		EventType: models.EventTranscriptionStatus,
		JobID:     "transcribe_1",
		State:     "IN_PROGRESS",
	}
	if err := hub.PublishStatus(context.Background(), event.JobID, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Kind != "status" {
		t.Errorf("expected kind status, got %s", msg.Kind)
	}
	if msg.Key != "transcribe_1" {
		t.Errorf("expected key transcribe_1, got %s", msg.Key)
	}
	var got models.TranscriptionStatusEvent
	if err := json.Unmarshal(msg.Event, &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.State != "IN_PROGRESS" {
		t.Errorf("expected state IN_PROGRESS, got %s", got.State)
	}
}

func TestHub_FiltersByKey(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?job=transcribe_2")
	waitClients(t, hub, 1)

	ctx := context.Background()
	_ = hub.PublishStatus(ctx, "transcribe_1", map[string]string{"state": "IN_PROGRESS"})
	_ = hub.PublishTranscript(ctx, "transcribe_2", map[string]string{"state": "COMPLETED"})

	msg := readMessage(t, conn)
	if msg.Key != "transcribe_2" || msg.Kind != "transcript" {
		t.Errorf("expected transcript for transcribe_2, got %s for %s", msg.Kind, msg.Key)
	}
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}

func TestHub_InvalidEvent(t *testing.T) {
	hub := NewHub(nil)
	if err := hub.PublishStatus(context.Background(), "k", make(chan int)); err == nil {
		t.Error("expected error for unmarshalable event")
	}
}

type recordingSink struct {
	status, transcripts int
	err                 error
}

func (s *recordingSink) PublishStatus(context.Context, string, any) error {
	s.status++
	return s.err
}

func (s *recordingSink) PublishTranscript(context.Context, string, any) error {
	s.transcripts++
	return s.err
}

func TestFanout(t *testing.T) {
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("broker down")}
	f := Fanout{failing, ok}

	ctx := context.Background()
	if err := f.PublishStatus(ctx, "k", "e"); err == nil {
		t.Error("expected joined error from failing sink")
	}
	if err := f.PublishTranscript(ctx, "k", "e"); err == nil {
		t.Error("expected joined error from failing sink")
	}
	if ok.status != 1 || ok.transcripts != 1 {
		t.Errorf("expected healthy sink to receive both events, got %d/%d", ok.status, ok.transcripts)
	}

	if err := (Fanout{ok}).PublishStatus(ctx, "k", "e"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
