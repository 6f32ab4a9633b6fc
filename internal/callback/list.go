package callback

// List calls every subscriber on each Invoke and ignores their outcome.
type List[T any] struct {
	reg registry[func(T)]
}

// Add registers fn and returns its id.
func (l *List[T]) Add(fn func(T)) ID { return l.reg.add(fn) }

// Append registers fn when the caller has no use for its id.
func (l *List[T]) Append(fn func(T)) { l.reg.add(fn) }

// Remove unregisters the subscriber with the given id.
func (l *List[T]) Remove(id ID) bool { return l.reg.remove(id) }

// Len returns the number of subscribers.
func (l *List[T]) Len() int { return l.reg.len() }

// Invoke calls every subscriber in insertion order.
func (l *List[T]) Invoke(arg T) {
	for _, e := range l.reg.snapshot() {
		e.fn(arg)
	}
}

// ShortcutList stops a pass at the first subscriber that returns Abort or
// AbortDone. Subscribers are never removed by Invoke.
type ShortcutList[T any] struct {
	reg registry[func(T) Result]
}

func (l *ShortcutList[T]) Add(fn func(T) Result) ID { return l.reg.add(fn) }
func (l *ShortcutList[T]) Append(fn func(T) Result) { l.reg.add(fn) }
func (l *ShortcutList[T]) Remove(id ID) bool        { return l.reg.remove(id) }
func (l *ShortcutList[T]) Len() int                 { return l.reg.len() }

// Invoke returns Abort if a subscriber halted the pass, Ok otherwise.
func (l *ShortcutList[T]) Invoke(arg T) Result {
	for _, e := range l.reg.snapshot() {
		if e.fn(arg).halts() {
			return Abort
		}
	}
	return Ok
}

// CleanableList calls every subscriber and removes those that returned Done
// or AbortDone once the pass completes.
type CleanableList[T any] struct {
	reg registry[func(T) Result]
}

func (l *CleanableList[T]) Add(fn func(T) Result) ID { return l.reg.add(fn) }
func (l *CleanableList[T]) Append(fn func(T) Result) { l.reg.add(fn) }
func (l *CleanableList[T]) Remove(id ID) bool        { return l.reg.remove(id) }
func (l *CleanableList[T]) Len() int                 { return l.reg.len() }

// Invoke returns Done if any subscriber was removed, Ok otherwise.
func (l *CleanableList[T]) Invoke(arg T) Result {
	var done []ID
	for _, e := range l.reg.snapshot() {
		if e.fn(arg).removes() {
			done = append(done, e.id)
		}
	}

	l.reg.removeAll(done)
	if len(done) > 0 {
		return Done
	}
	return Ok
}

// CleanableShortcutList stops a pass at the first Abort or AbortDone and
// removes every subscriber that returned Done or AbortDone, including the
// one that stopped the pass.
type CleanableShortcutList[T any] struct {
	reg registry[func(T) Result]
}

func (l *CleanableShortcutList[T]) Add(fn func(T) Result) ID { return l.reg.add(fn) }
func (l *CleanableShortcutList[T]) Append(fn func(T) Result) { l.reg.add(fn) }
func (l *CleanableShortcutList[T]) Remove(id ID) bool        { return l.reg.remove(id) }
func (l *CleanableShortcutList[T]) Len() int                 { return l.reg.len() }

// Invoke returns the most severe result observed, ordered
// Abort > AbortDone > Done > Ok.
func (l *CleanableShortcutList[T]) Invoke(arg T) Result {
	var done []ID
	worst := Ok

	for _, e := range l.reg.snapshot() {
		res := e.fn(arg)
		if res.severity() > worst.severity() {
			worst = res
		}
		if res.removes() {
			done = append(done, e.id)
		}
		if res.halts() {
			break
		}
	}

	l.reg.removeAll(done)
	return worst
}
