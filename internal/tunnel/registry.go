package tunnel

import "sync"

type entry struct {
	tun  *Tunnel
	refs int
}

// Registry shares live tunnels between the connections that route through the
// same SSH target. Each key holds at most one tunnel; it is closed when its
// reference count drops to zero.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Ensure starts the tunnel for key if none is live yet, without taking a
// reference. Connection setup calls this under the session layer's tunnel
// coordination so concurrent connects share one establishment.
func (r *Registry) Ensure(key string, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; ok {
		return nil
	}
	tun, err := Start(cfg)
	if err != nil {
		return err
	}
	r.entries[key] = &entry{tun: tun}
	return nil
}

// Acquire returns the live tunnel for key, starting one if needed, and takes
// a reference that must be paired with Release.
func (r *Registry) Acquire(key string, cfg Config) (*Tunnel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		tun, err := Start(cfg)
		if err != nil {
			return nil, err
		}
		e = &entry{tun: tun}
		r.entries[key] = e
	}
	e.refs++
	return e.tun, nil
}

// Release drops a reference; the last release closes and forgets the tunnel.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		e.tun.Close()
		delete(r.entries, key)
	}
}

// CloseAll tears down every live tunnel. Called at application shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.entries {
		e.tun.Close()
		delete(r.entries, key)
	}
}
