// Package connection keeps a client linked to the simulator.
//
// The Manager owns one logical connection over a poll-based Transport:
//   - A background loop auto-connects with a fixed retry period
//   - While connected, the loop drains inbound messages every poll period
//   - Inbound messages are routed to lifecycle callbacks, the exception
//     router and outstanding request observers
//   - Requests return reactive Results and Streams that fail fast when
//     disconnected
//
// WSTransport implements Transport over a WebSocket bridge that relays
// simulator messages as JSON frames. Registry tracks managers by client name.
package connection
