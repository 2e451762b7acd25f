package gotrue

import (
	"sync"

	"github.com/MrEthical07/sessionguard"
	"github.com/google/uuid"
)

type listenerRegistry struct {
	mu        sync.Mutex
	order     []string
	listeners map[string]sessionguard.Listener
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{listeners: make(map[string]sessionguard.Listener)}
}

func (r *listenerRegistry) add(l sessionguard.Listener) *subscription {
	id := uuid.NewString()
	r.mu.Lock()
	r.order = append(r.order, id)
	r.listeners[id] = l
	r.mu.Unlock()
	return &subscription{id: id, registry: r}
}

func (r *listenerRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listeners[id]; !ok {
		return
	}
	delete(r.listeners, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// emit calls listeners in registration order without holding the lock, so
// a listener may unsubscribe or read the client.
func (r *listenerRegistry) emit(event sessionguard.AuthEvent, sess *sessionguard.Session) {
	r.mu.Lock()
	snapshot := make([]sessionguard.Listener, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, r.listeners[id])
	}
	r.mu.Unlock()

	for _, l := range snapshot {
		l(event, sess)
	}
}

func (r *listenerRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

type subscription struct {
	id       string
	registry *listenerRegistry
	once     sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.registry.remove(s.id)
	})
}
