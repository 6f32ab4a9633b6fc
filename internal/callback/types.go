package callback

// ID identifies a subscriber within one registry. IDs are assigned in
// increasing order and never reused.
type ID uint64

// Result is the outcome a subscriber reports back to its registry.
type Result int

const (
	Ok        Result = iota // Keep going, keep me
	Done                    // Keep going, remove me
	Abort                   // Stop the pass, keep me
	AbortDone               // Stop the pass, remove me
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "Ok"
	case Done:
		return "Done"
	case Abort:
		return "Abort"
	case AbortDone:
		return "AbortDone"
	default:
		return "unknown"
	}
}

// removes reports whether the subscriber asked to be removed.
func (r Result) removes() bool {
	return r == Done || r == AbortDone
}

// halts reports whether the subscriber asked to stop the pass.
func (r Result) halts() bool {
	return r == Abort || r == AbortDone
}

// severity orders results for CleanableShortcutList.
func (r Result) severity() int {
	switch r {
	case Abort:
		return 3
	case AbortDone:
		return 2
	case Done:
		return 1
	default:
		return 0
	}
}

type entry[F any] struct {
	id ID
	fn F
}
