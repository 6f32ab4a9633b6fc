// Package callback provides thread-safe subscriber registries used to fan a
// single argument out to many callbacks.
//
// Four variants differ in how subscriber results are interpreted:
//   - List: every subscriber is called, results are not inspected
//   - ShortcutList: iteration stops at the first Abort or AbortDone
//   - CleanableList: every subscriber is called, Done/AbortDone subscribers
//     are removed after the pass
//   - CleanableShortcutList: stops like ShortcutList and removes like
//     CleanableList
//
// Invoke copies the subscriber slice under the lock and calls subscribers
// without holding it, so a subscriber may add or remove subscribers (of the
// same registry) without deadlocking. Subscribers added during a pass are
// first called on the next pass. Panics raised by subscribers propagate to
// the caller of Invoke.
package callback
