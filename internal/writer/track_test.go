package writer

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/rickgao/simlink/internal/connection"
	"github.com/rickgao/simlink/internal/model"
)

// stubTransport accepts every Open and replays a handshake followed by quit.
type stubTransport struct {
	mu      sync.Mutex
	handle  connection.Handle
	inbound []model.Message
}

func (s *stubTransport) Open(_ context.Context, _ string) (connection.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle++
	s.inbound = []model.Message{
		model.HandshakeReply{AppInfo: model.AppInfo{AppName: "StubSim", AppVersionMajor: 11}},
	}
	return s.handle, nil
}

func (s *stubTransport) Close(connection.Handle) error { return nil }

func (s *stubTransport) PollNext(connection.Handle) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inbound) == 0 {
		return nil, nil
	}
	msg := s.inbound[0]
	s.inbound = s.inbound[1:]
	return msg, nil
}

func (s *stubTransport) Send(connection.Handle, model.Request) (model.SendID, error) {
	return 1, nil
}

func TestTrack(t *testing.T) {
	cfg := connection.DefaultConfig()
	cfg.Name = "cockpit"
	m := connection.NewManager(cfg, &stubTransport{}, nil)
	w := NewEventWriter(WriterConfig{BatchSize: 100}, nil, nil, nil)

	untrack := w.Track(m)

	if !m.Connect(context.Background()) {
		t.Fatal("Connect() = false, want true")
	}
	session := m.Session()
	if !m.Disconnect() {
		t.Fatal("Disconnect() = false, want true")
	}

	events := w.events.DrainTo(0)
	wantTypes := []string{EventConnected, EventOpen, EventDisconnected}
	if len(events) != len(wantTypes) {
		t.Fatalf("recorded %d events, want %d: %+v", len(events), len(wantTypes), events)
	}
	for i, ev := range events {
		if ev.EventType != wantTypes[i] {
			t.Errorf("events[%d].EventType = %s, want %s", i, ev.EventType, wantTypes[i])
		}
		if ev.Session != session {
			t.Errorf("events[%d].Session = %s, want %s", i, ev.Session, session)
		}
		if ev.Client != "cockpit" {
			t.Errorf("events[%d].Client = %s, want cockpit", i, ev.Client)
		}
		if ev.ID == uuid.Nil {
			t.Errorf("events[%d].ID is nil", i)
		}
	}
	if events[1].Detail == "" {
		t.Error("open event has no app info detail")
	}

	untrack()
	m.Connect(context.Background())
	m.Disconnect()
	if got := w.events.Len(); got != 0 {
		t.Errorf("events after untrack = %d, want 0", got)
	}
}
