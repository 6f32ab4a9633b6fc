package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire types used by the simulator bridge.
const (
	WireOpen        = "open"
	WireClose       = "close"
	WireException   = "exception"
	WireQuit        = "quit"
	WireSystemState = "system_state"
)

// ErrEmptyFrame is returned when a frame carries no type.
var ErrEmptyFrame = errors.New("frame has no type")

// Envelope is the JSON frame exchanged with the simulator bridge.
// Only the fields relevant to Type are set.
type Envelope struct {
	Type        string    `json:"type"`
	SendID      SendID    `json:"send_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	RequestID   RequestID `json:"request_id,omitempty"`
	State       string    `json:"state,omitempty"`
	Event       string    `json:"event,omitempty"`
	ExceptionID uint32    `json:"exception_id,omitempty"`
	ParamIndex  uint32    `json:"param_index,omitempty"`
	Integer     int32     `json:"integer,omitempty"`
	Float       float32   `json:"float,omitempty"`
	String      string    `json:"string,omitempty"`
	AppInfo     *AppInfo  `json:"app_info,omitempty"`
}

// EncodeRequest frames an outbound request under the given send id.
func EncodeRequest(sendID SendID, req Request) ([]byte, error) {
	env := Envelope{Type: req.Op(), SendID: sendID}

	switch r := req.(type) {
	case SystemStateRequest:
		env.RequestID = r.RequestID
		env.State = r.State
	case SubscribeSystemEventRequest:
		env.RequestID = r.RequestID
		env.Event = r.Event
	case UnsubscribeSystemEventRequest:
		env.RequestID = r.RequestID
	default:
		return nil, fmt.Errorf("unsupported request %T", req)
	}

	return json.Marshal(env)
}

// EncodeMessage frames an inbound message. Used by bridges and test servers.
func EncodeMessage(msg Message) ([]byte, error) {
	var env Envelope

	switch m := msg.(type) {
	case ExceptionReply:
		env = Envelope{Type: WireException, SendID: m.SendID, ExceptionID: m.ExceptionID, ParamIndex: m.ParamIndex}
	case HandshakeReply:
		info := m.AppInfo
		env = Envelope{Type: WireOpen, AppInfo: &info}
	case QuitNotice:
		env = Envelope{Type: WireQuit}
	case SystemStateReply:
		env = Envelope{Type: WireSystemState, RequestID: m.RequestID, Integer: m.Integer, Float: m.Float, String: m.String}
	case UnknownMessage:
		env = Envelope{Type: m.RawKind}
	default:
		return nil, fmt.Errorf("unsupported message %T", msg)
	}

	return json.Marshal(env)
}

// DecodeMessage parses an inbound frame. Unrecognized types decode to
// UnknownMessage rather than failing.
func DecodeMessage(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if env.Type == "" {
		return nil, ErrEmptyFrame
	}

	switch env.Type {
	case WireException:
		return ExceptionReply{SendID: env.SendID, ExceptionID: env.ExceptionID, ParamIndex: env.ParamIndex}, nil
	case WireOpen:
		var info AppInfo
		if env.AppInfo != nil {
			info = *env.AppInfo
		}
		return HandshakeReply{AppInfo: info}, nil
	case WireQuit:
		return QuitNotice{}, nil
	case WireSystemState:
		return SystemStateReply{RequestID: env.RequestID, Integer: env.Integer, Float: env.Float, String: env.String}, nil
	default:
		return UnknownMessage{RawKind: env.Type}, nil
	}
}
