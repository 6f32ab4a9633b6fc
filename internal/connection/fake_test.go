package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rickgao/simlink/internal/model"
)

var errFakeOpen = errors.New("simulator not running")

// fakeTransport is an in-memory Transport. Replies can be scripted per send
// through onSend.
type fakeTransport struct {
	mu         sync.Mutex
	failOpens  int // Opens that fail before one succeeds
	handshake  bool
	nextHandle Handle
	current    Handle
	inbound    []model.Message
	pollErr    error
	nextSend   model.SendID
	sent       []model.Request
	opens      []time.Time
	closes     int
	onSend     func(id model.SendID, req model.Request)

	// openDelay makes Open block for that long unless ctx ends first.
	openDelay   time.Duration
	openAborted int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handshake: true}
}

func (f *fakeTransport) Open(ctx context.Context, clientName string) (Handle, error) {
	f.mu.Lock()
	delay := f.openDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			f.mu.Lock()
			f.openAborted++
			f.mu.Unlock()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.opens = append(f.opens, time.Now())
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.failOpens > 0 {
		f.failOpens--
		return 0, errFakeOpen
	}

	f.nextHandle++
	f.current = f.nextHandle
	f.inbound = nil
	f.pollErr = nil
	if f.handshake {
		f.inbound = append(f.inbound, model.HandshakeReply{AppInfo: model.AppInfo{AppName: "FakeSim", AppVersionMajor: 11}})
	}
	return f.current, nil
}

func (f *fakeTransport) Close(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h != f.current || h == 0 {
		return ErrUnknownHandle
	}
	f.current = 0
	f.closes++
	return nil
}

func (f *fakeTransport) PollNext(h Handle) (model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h != f.current || h == 0 {
		return nil, ErrUnknownHandle
	}
	if len(f.inbound) > 0 {
		msg := f.inbound[0]
		f.inbound = f.inbound[1:]
		return msg, nil
	}
	return nil, f.pollErr
}

func (f *fakeTransport) Send(h Handle, req model.Request) (model.SendID, error) {
	f.mu.Lock()
	if h != f.current || h == 0 {
		f.mu.Unlock()
		return 0, ErrUnknownHandle
	}
	f.nextSend++
	id := f.nextSend
	f.sent = append(f.sent, req)
	onSend := f.onSend
	f.mu.Unlock()

	if onSend != nil {
		onSend(id, req)
	}
	return id, nil
}

func (f *fakeTransport) push(msgs ...model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, msgs...)
}

func (f *fakeTransport) failPolls(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollErr = err
}

func (f *fakeTransport) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opens)
}

func (f *fakeTransport) openTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.opens...)
}

func (f *fakeTransport) abortedOpens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openAborted
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeTransport) sentRequests() []model.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Request(nil), f.sent...)
}
