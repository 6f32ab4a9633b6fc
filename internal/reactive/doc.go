// Package reactive implements observers for asynchronous notifications.
//
// An Observer receives a sequence of values followed by at most one terminal
// event (error or completion). Result is the one-shot form used for request
// replies and can be awaited with Get. Stream is the multi-shot form used for
// subscriptions that deliver many values.
//
// Subscriber lists are callback.List registries, so subscribers may be added
// concurrently with delivery. Once an observer has completed, further
// OnNext/OnError/OnCompleted calls are ignored; subscribers added after
// completion are replayed the terminal event immediately.
package reactive
