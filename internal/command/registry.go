package command

import (
	"sync"
	"time"
)

// ClientRecord is one open TCP connection ("Remote IP, resolved
// hostname string, connect timestamp").
type ClientRecord struct {
	RemoteIP string
	Hostname string
	ConnectedAt time.Time
}

// ClientRegistry is the flat insertion-ordered collection of connected
// operator clients ("the client list is a flat
// insertion-ordered collection owned by the server"). It is guarded by a
// mutex because connections are accepted and closed from their own
// goroutines, independently of the single-threaded command dispatcher.
type ClientRegistry struct {
	mu sync.Mutex
	order []string
	clients map[string]ClientRecord
}

// NewClientRegistry returns an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: map[string]ClientRecord{}}
}

// Add records a newly-accepted connection, keyed by its remote address.
func (r *ClientRegistry) Add(key string, rec ClientRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[key]; !ok {
		r.order = append(r.order, key)
	}
	r.clients[key] = rec
}

// Remove drops a connection from the registry.
func (r *ClientRegistry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[key]; !ok {
		return
	}
	delete(r.clients, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Snapshot returns the current clients in connection order.
func (r *ClientRegistry) Snapshot() []ClientRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ClientRecord, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.clients[k])
	}
	return out
}
