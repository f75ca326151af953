package services

import "sync"

// Notifier wakes pollers waiting on a tenant. A signal only means "something
// may have changed"; waiters re-query and the poll ticker covers signals
// that never arrive, such as writes made by another replica.
type Notifier struct {
	mu      sync.Mutex
	waiters map[uint64]map[chan struct{}]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{waiters: make(map[uint64]map[chan struct{}]struct{})}
}

// Subscribe registers a waiter for tenantID. A signal published while the
// waiter is busy stays buffered until it is next read. cancel must be called
// once the waiter is done.
func (n *Notifier) Subscribe(tenantID uint64) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	set, ok := n.waiters[tenantID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		n.waiters[tenantID] = set
	}
	set[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.waiters[tenantID], ch)
			if len(n.waiters[tenantID]) == 0 {
				delete(n.waiters, tenantID)
			}
		})
	}
	return ch, cancel
}

// Publish signals every waiter of tenantID without blocking.
func (n *Notifier) Publish(tenantID uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.waiters[tenantID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Waiters returns the number of subscribed waiters of tenantID.
func (n *Notifier) Waiters(tenantID uint64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.waiters[tenantID])
}
