// Package poller implements the system state sampler.
//
// The sampler:
//   - Requests each configured system state on a fixed interval
//   - Skips cycles while the manager is disconnected
//   - Bounds every request with a timeout and fails the pending result on expiry
//   - Hands each value to a SampleHandler (normally the event writer)
package poller
