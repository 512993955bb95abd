package session

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// DialFunc establishes the SSH tunnel a profile routes through. It is
// supplied by the executor layer; the coordinator only decides when it runs.
type DialFunc func(ctx context.Context, p Profile) error

// Coordinator serializes tunnel establishment per tunnel identity. While an
// establishment for a given identity is in flight, later callers join it and
// observe its outcome instead of dialing a second tunnel; the entry lives
// exactly as long as the underlying call. A failed establishment is shared
// with every joiner but does not poison later attempts.
type Coordinator struct {
	dial  DialFunc
	group singleflight.Group
}

// NewCoordinator returns a Coordinator that runs dial at most once per tunnel
// identity at any instant.
func NewCoordinator(dial DialFunc) *Coordinator {
	return &Coordinator{dial: dial}
}

// Acquire ensures the tunnel for p is established before the caller proceeds
// to connect. Profiles without SSH need no coordination and return
// immediately.
func (c *Coordinator) Acquire(ctx context.Context, p Profile) error {
	key := TunnelKey(p)
	if key == "" {
		return nil
	}
	_, err, _ := c.group.Do(key, func() (any, error) {
		return nil, c.dial(ctx, p)
	})
	return err
}
