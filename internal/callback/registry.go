package callback

import "sync"

// registry holds the subscriber slice and id counter shared by all variants.
type registry[F any] struct {
	mu      sync.Mutex
	nextID  ID
	entries []entry[F]
}

func (r *registry[F]) add(fn F) ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.entries = append(r.entries, entry[F]{id: id, fn: fn})
	return id
}

func (r *registry[F]) remove(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// removeAll drops every id in ids. Ids already gone are ignored.
func (r *registry[F]) removeAll(ids []ID) {
	if len(ids) == 0 {
		return
	}

	drop := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]entry[F], 0, len(r.entries))
	for _, e := range r.entries {
		if _, ok := drop[e.id]; !ok {
			kept = append(kept, e)
		}
	}
	r.entries = kept
}

func (r *registry[F]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// snapshot returns a copy of the current subscribers.
func (r *registry[F]) snapshot() []entry[F] {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entry[F], len(r.entries))
	copy(out, r.entries)
	return out
}
