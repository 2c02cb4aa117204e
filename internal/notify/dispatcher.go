package notify

import (
	"errors"
	"log"
	"sync"

	"memething/internal/game"
	"memething/internal/store"
)

// SessionFetcher is the read-side of the session store the dispatcher
// re-fetches from.
type SessionFetcher interface {
	Fetch(id string) (*game.Session, error)
}

// Handler receives the freshly fetched session after a delivery. The
// session is nil when the record no longer exists, which is how a
// GAME_ENDED delivery for a deleted session arrives.
type Handler func(session *game.Session, category Category)

// Dispatcher routes inbound delivery events to per-session handlers. A
// delivery applies no local mutation: the dispatcher fetches the
// authoritative record and hands it to whoever registered interest, which
// is the cache-invalidation contract for any UI-facing session cache.
type Dispatcher struct {
	fetcher  SessionFetcher
	mu       sync.Mutex
	nextID   int
	handlers map[string]map[int]Handler
}

func NewDispatcher(fetcher SessionFetcher) *Dispatcher {
	return &Dispatcher{
		fetcher:  fetcher,
		handlers: make(map[string]map[int]Handler),
	}
}

// OnSessionChanged registers a handler for one session. The returned func
// unregisters it.
func (d *Dispatcher) OnSessionChanged(sessionID string, fn Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	group := d.handlers[sessionID]
	if group == nil {
		group = make(map[int]Handler)
		d.handlers[sessionID] = group
	}
	id := d.nextID
	d.nextID++
	group[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if group, ok := d.handlers[sessionID]; ok {
			delete(group, id)
			if len(group) == 0 {
				delete(d.handlers, sessionID)
			}
		}
	}
}

// Deliver handles one inbound delivery event.
func (d *Dispatcher) Deliver(sessionID string, category Category) {
	session, err := d.fetcher.Fetch(sessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("delivery fetch failed session_id=%s category=%s error=%v", sessionID, category, err)
		return
	}

	d.mu.Lock()
	group := d.handlers[sessionID]
	fns := make([]Handler, 0, len(group))
	for _, fn := range group {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(session, category)
	}
}
