package services

import (
	"strings"
	"sync"
	"time"
)

// LoginThrottle counts failed logins per email inside a fixed window that
// opens with the first failure. Expired windows are swept at most once per
// window, so the map only holds emails that failed recently.
type LoginThrottle struct {
	mu          sync.Mutex
	maxFailures int
	window      time.Duration
	failures    map[string]*failureWindow
	lastSweep   time.Time
}

type failureWindow struct {
	count int
	start time.Time
}

func NewLoginThrottle(maxFailures int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{
		maxFailures: maxFailures,
		window:      window,
		failures:    make(map[string]*failureWindow),
	}
}

func throttleKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Allowed reports whether another attempt may be made for email at now.
func (t *LoginThrottle) Allowed(email string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.failures[throttleKey(email)]
	if !ok {
		return true
	}
	if now.Sub(w.start) >= t.window {
		delete(t.failures, throttleKey(email))
		return true
	}
	return w.count < t.maxFailures
}

// Fail records a failed attempt.
func (t *LoginThrottle) Fail(email string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweep(now)

	key := throttleKey(email)
	w, ok := t.failures[key]
	if !ok || now.Sub(w.start) >= t.window {
		t.failures[key] = &failureWindow{count: 1, start: now}
		return
	}
	w.count++
}

// sweep drops expired windows. Callers hold t.mu.
func (t *LoginThrottle) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < t.window {
		return
	}
	for key, w := range t.failures {
		if now.Sub(w.start) >= t.window {
			delete(t.failures, key)
		}
	}
	t.lastSweep = now
}

// Reset forgets the failures of email.
func (t *LoginThrottle) Reset(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, throttleKey(email))
}
