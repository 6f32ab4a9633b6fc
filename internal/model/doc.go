// Package model defines shared data types used across simlink.
//
// Conventions:
//   - Correlation ids: SendID is assigned by the transport for every send,
//     RequestID is assigned by the connection manager for every request
//   - Timestamps: int64 microseconds since Unix epoch
//   - Session ids: uuid.UUID, one per established connection
package model
