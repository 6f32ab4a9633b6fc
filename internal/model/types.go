package model

import (
	"fmt"

	"github.com/google/uuid"
)

// SendID is the transport-level correlation id assigned to every send.
type SendID uint32

// RequestID is the client-assigned id carried by a request and echoed in its reply.
type RequestID uint32

// -----------------------------------------------------------------------------
// Inbound Messages
// -----------------------------------------------------------------------------

// MessageKind identifies the kind of an inbound message.
type MessageKind string

const (
	KindException   MessageKind = "exception"
	KindOpen        MessageKind = "open"
	KindQuit        MessageKind = "quit"
	KindSystemState MessageKind = "system_state"
)

// Message is a single inbound message polled from the transport.
type Message interface {
	Kind() MessageKind
}

// ExceptionReply reports that the simulator rejected an earlier send.
type ExceptionReply struct {
	SendID      SendID // Send that caused the exception
	ExceptionID uint32 // Index into ExceptionNames
	ParamIndex  uint32 // Offending parameter (1-based, 0 if unknown)
}

func (ExceptionReply) Kind() MessageKind { return KindException }

// HandshakeReply is the simulator's answer to Open.
type HandshakeReply struct {
	AppInfo AppInfo
}

func (HandshakeReply) Kind() MessageKind { return KindOpen }

// QuitNotice signals that the simulator is shutting down.
type QuitNotice struct{}

func (QuitNotice) Kind() MessageKind { return KindQuit }

// SystemStateReply answers a system state request.
type SystemStateReply struct {
	RequestID RequestID
	Integer   int32
	Float     float32
	String    string
}

func (SystemStateReply) Kind() MessageKind { return KindSystemState }

// UnknownMessage wraps an inbound message kind the client does not understand.
type UnknownMessage struct {
	RawKind string
}

func (m UnknownMessage) Kind() MessageKind { return MessageKind(m.RawKind) }

// -----------------------------------------------------------------------------
// Outbound Requests
// -----------------------------------------------------------------------------

// Request is an outbound request sent through the transport.
type Request interface {
	Op() string
}

// SystemStateRequest asks for the current value of a named system state.
type SystemStateRequest struct {
	RequestID RequestID
	State     string
}

func (SystemStateRequest) Op() string { return "request_system_state" }

// SubscribeSystemEventRequest asks the simulator to report a system event
// under the given request id until unsubscribed.
type SubscribeSystemEventRequest struct {
	RequestID RequestID
	Event     string
}

func (SubscribeSystemEventRequest) Op() string { return "subscribe_system_event" }

// UnsubscribeSystemEventRequest cancels an earlier SubscribeSystemEventRequest.
type UnsubscribeSystemEventRequest struct {
	RequestID RequestID
}

func (UnsubscribeSystemEventRequest) Op() string { return "unsubscribe_system_event" }

// -----------------------------------------------------------------------------
// Peer Metadata
// -----------------------------------------------------------------------------

// AppInfo describes the simulator on the other side of the connection.
type AppInfo struct {
	AppName         string `json:"app_name"`
	AppVersionMajor uint32 `json:"app_version_major"`
	AppVersionMinor uint32 `json:"app_version_minor"`
	AppBuildMajor   uint32 `json:"app_build_major"`
	AppBuildMinor   uint32 `json:"app_build_minor"`
	SCVersionMajor  uint32 `json:"sc_version_major"`
	SCVersionMinor  uint32 `json:"sc_version_minor"`
	SCBuildMajor    uint32 `json:"sc_build_major"`
	SCBuildMinor    uint32 `json:"sc_build_minor"`
}

// String formats the app info the way the simulator reports itself.
func (a AppInfo) String() string {
	return fmt.Sprintf("%s version %d.%d (build %d.%d) using SimConnect version %d.%d (build %d.%d)",
		a.AppName,
		a.AppVersionMajor, a.AppVersionMinor,
		a.AppBuildMajor, a.AppBuildMinor,
		a.SCVersionMajor, a.SCVersionMinor,
		a.SCBuildMajor, a.SCBuildMinor,
	)
}

// SystemStateValue is the decoded payload of a SystemStateReply.
type SystemStateValue struct {
	State   SystemState
	Integer int32
	Float   float32
	String  string
}

// Bool interprets the integer payload as a boolean.
func (v SystemStateValue) Bool() bool {
	return v.Integer != 0
}

// -----------------------------------------------------------------------------
// Recorded Events
// -----------------------------------------------------------------------------

// ConnectionEvent is a lifecycle event recorded by the event writer.
type ConnectionEvent struct {
	ID         uuid.UUID // Primary key
	Session    uuid.UUID // Connection session (uuid.Nil when not connected)
	Client     string    // Client name
	EventType  string    // "connected", "disconnected", "open", "close"
	Detail     string    // Free-form detail (e.g., app info)
	OccurredAt int64     // µs since epoch
}

// StateSample is a polled system state value recorded by the event writer.
type StateSample struct {
	Session   uuid.UUID
	Client    string
	State     string
	Integer   int32
	Float     float32
	String    string
	SampledAt int64 // µs since epoch
}
