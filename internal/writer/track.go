package writer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/simlink/internal/connection"
	"github.com/rickgao/simlink/internal/model"
)

// Track records m's lifecycle callbacks as connection events. The returned
// function removes the subscriptions.
func (w *EventWriter) Track(m *connection.Manager) func() {
	var (
		mu      sync.Mutex
		session uuid.UUID
	)
	current := func() uuid.UUID {
		mu.Lock()
		defer mu.Unlock()
		return session
	}
	record := func(eventType, detail string) {
		w.RecordEvent(model.ConnectionEvent{
			ID:         uuid.New(),
			Session:    current(),
			Client:     m.Name(),
			EventType:  eventType,
			Detail:     detail,
			OccurredAt: time.Now().UnixMicro(),
		})
	}

	connectID := m.OnConnect(func() {
		mu.Lock()
		session = m.Session()
		mu.Unlock()
		record(EventConnected, "")
	})
	disconnectID := m.OnDisconnect(func() {
		record(EventDisconnected, "")
		mu.Lock()
		session = uuid.Nil
		mu.Unlock()
	})
	openID := m.OnOpen(func(info model.AppInfo) {
		record(EventOpen, info.String())
	})
	closeID := m.OnClose(func() {
		record(EventClose, "")
	})

	return func() {
		m.RemoveOnConnect(connectID)
		m.RemoveOnDisconnect(disconnectID)
		m.RemoveOnOpen(openID)
		m.RemoveOnClose(closeID)
	}
}
