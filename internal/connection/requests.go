package connection

import (
	"fmt"

	"github.com/rickgao/simlink/internal/model"
	"github.com/rickgao/simlink/internal/reactive"
	"github.com/rickgao/simlink/internal/router"
)

// replySink adapts a typed observer to the raw replies held by the request
// registry.
type replySink[T any] struct {
	target  router.Sink[T]
	convert func(model.SystemStateReply) T
}

func (s replySink[T]) OnNext(r model.SystemStateReply) { s.target.OnNext(s.convert(r)) }
func (s replySink[T]) OnError(err error)               { s.target.OnError(err) }
func (s replySink[T]) Completed() bool                 { return s.target.Completed() }

// RequestSystemStateString asks for a string-valued system state such as
// "AircraftLoaded" or "FlightLoaded".
func (m *Manager) RequestSystemStateString(name string) *reactive.Result[string] {
	res := reactive.NewResult[string]()
	sendRequest(m, res, func(f func()) { res.WithOnComplete(f) },
		func(r model.SystemStateReply) string { return r.String },
		func(id model.RequestID) model.Request { return model.SystemStateRequest{RequestID: id, State: name} },
	)
	return res
}

// RequestSystemStateBool asks for a boolean system state such as "Sim" or
// "DialogMode".
func (m *Manager) RequestSystemStateBool(name string) *reactive.Result[bool] {
	res := reactive.NewResult[bool]()
	sendRequest(m, res, func(f func()) { res.WithOnComplete(f) },
		func(r model.SystemStateReply) bool { return r.Integer != 0 },
		func(id model.RequestID) model.Request { return model.SystemStateRequest{RequestID: id, State: name} },
	)
	return res
}

// RequestSystemState asks for a catalogued system state and returns the
// full reply payload.
func (m *Manager) RequestSystemState(state model.SystemState) *reactive.Result[model.SystemStateValue] {
	res := reactive.NewResult[model.SystemStateValue]()
	sendRequest(m, res, func(f func()) { res.WithOnComplete(f) },
		stateValue(state),
		func(id model.RequestID) model.Request {
			return model.SystemStateRequest{RequestID: id, State: state.String()}
		},
	)
	return res
}

// SubscribeSystemState asks the simulator to report every change of state.
// The stream stays open until the caller completes it or the connection
// drops; completing it while connected unsubscribes.
func (m *Manager) SubscribeSystemState(state model.SystemState) *reactive.Stream[model.SystemStateValue] {
	s := reactive.NewStream[model.SystemStateValue]()
	h, id, ok := sendRequest(m, s, func(f func()) { s.WithOnComplete(f) },
		stateValue(state),
		func(id model.RequestID) model.Request {
			return model.SubscribeSystemEventRequest{RequestID: id, Event: state.String()}
		},
	)
	if ok {
		s.WithOnComplete(func() { m.unsubscribe(h, id) })
	}
	return s
}

func stateValue(state model.SystemState) func(model.SystemStateReply) model.SystemStateValue {
	return func(r model.SystemStateReply) model.SystemStateValue {
		return model.SystemStateValue{
			State:   state,
			Integer: r.Integer,
			Float:   r.Float,
			String:  r.String,
		}
	}
}

// sendRequest registers target under a fresh request id, sends the request
// built for that id and routes any exception for the send to target.
// whenDone must arrange for its argument to run once target completes.
// It reports the session handle, the request id and whether the send went
// out.
func sendRequest[T any](
	m *Manager,
	target router.Sink[T],
	whenDone func(func()),
	convert func(model.SystemStateReply) T,
	build func(model.RequestID) model.Request,
) (Handle, model.RequestID, bool) {
	h, ok := m.connectedHandle()
	if !ok {
		target.OnError(ErrNotConnected)
		return 0, 0, false
	}

	id := m.requests.NextID()
	if err := m.requests.Register(id, replySink[T]{target: target, convert: convert}); err != nil {
		target.OnError(err)
		return 0, 0, false
	}
	whenDone(func() { m.requests.Deregister(id) })

	req := build(id)
	m.logger.Debug("sending request", "op", req.Op(), "request_id", id)

	sendID, err := m.transport.Send(h, req)
	if err != nil {
		target.OnError(fmt.Errorf("send %s: %w", req.Op(), err))
		return h, id, false
	}

	m.exceptions.RegisterHandler(sendID, func(e *model.SimException) {
		m.logger.Warn("request rejected by simulator",
			"op", req.Op(),
			"request_id", id,
			"exception", e.Name,
		)
		target.OnError(e)
	})
	return h, id, true
}

// unsubscribe cancels a system event subscription made on session h. It
// does nothing once h is no longer the open session.
func (m *Manager) unsubscribe(h Handle, id model.RequestID) {
	current, ok := m.connectedHandle()
	if !ok || current != h {
		return
	}
	if _, err := m.transport.Send(h, model.UnsubscribeSystemEventRequest{RequestID: id}); err != nil {
		m.logger.Debug("unsubscribe failed", "request_id", id, "error", err)
	}
}
