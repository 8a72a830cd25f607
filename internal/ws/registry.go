package ws

// Registry is the set of connected clients. It is not safe for concurrent
// use: only the gateway loop touches it.
type Registry struct {
	clients map[*client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[*client]struct{})}
}

// Register adds c. Registering the same client twice is a no-op.
func (r *Registry) Register(c *client) {
	r.clients[c] = struct{}{}
}

// Unregister removes c and closes its send queue. It reports whether c was
// registered; removing an absent client is not an error.
func (r *Registry) Unregister(c *client) bool {
	if _, ok := r.clients[c]; !ok {
		return false
	}
	delete(r.clients, c)
	close(c.send)
	return true
}

func (r *Registry) Contains(c *client) bool {
	_, ok := r.clients[c]
	return ok
}

func (r *Registry) Len() int {
	return len(r.clients)
}

// Broadcast queues data for every registered client. A client whose queue is
// full is unregistered and returned; delivery to the others continues.
func (r *Registry) Broadcast(data []byte) (dropped []*client) {
	for c := range r.clients {
		if !r.enqueue(c, data) {
			dropped = append(dropped, c)
		}
	}
	return dropped
}

// SendTo queues data for c alone. It returns false if c is not registered or
// was dropped because its queue is full.
func (r *Registry) SendTo(c *client, data []byte) bool {
	if !r.Contains(c) {
		return false
	}
	return r.enqueue(c, data)
}

// CloseAll unregisters every client.
func (r *Registry) CloseAll() {
	for c := range r.clients {
		r.Unregister(c)
	}
}

func (r *Registry) enqueue(c *client, data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		r.Unregister(c)
		return false
	}
}
