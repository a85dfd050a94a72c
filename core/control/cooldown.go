package control

import (
	"sync"
	"time"
)

// CooldownTracker enforces the minimum interval between commands to the same
// device. It is the only authoritative in-memory state of the subsystem:
// everything else is recomputed per call from external sources.
//
// A reservation does not commit the timestamp. Commit happens only after the
// device confirmed the command, so a failed or timed-out command does not
// consume the window. While a reservation is open, concurrent attempts for
// the same device are denied, which keeps the reserve-check atomic across
// callers.
type CooldownTracker struct {
	mu      sync.Mutex
	devices map[string]*cooldownState
}

type cooldownState struct {
	lastAccepted time.Time
	inflight     bool
}

// NewCooldownTracker creates an empty tracker.
func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{devices: make(map[string]*cooldownState)}
}

// Reservation is an open slot for one command. Exactly one of Commit or
// Release must be called.
type Reservation struct {
	t        *CooldownTracker
	deviceID string
	done     bool
}

// TryReserve attempts to open a command slot for the device. On denial the
// returned duration is how long the caller has to wait, rounded up to whole
// seconds.
func (t *CooldownTracker) TryReserve(deviceID string, minDelay time.Duration, now time.Time) (*Reservation, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.devices[deviceID]
	if !ok {
		st = &cooldownState{}
		t.devices[deviceID] = st
	}
	if st.inflight {
		if rem := remainingSeconds(st.lastAccepted, minDelay, now); rem > 0 {
			return nil, rem
		}
		// prior command still awaiting confirmation
		return nil, time.Second
	}
	if !st.lastAccepted.IsZero() {
		if rem := remainingSeconds(st.lastAccepted, minDelay, now); rem > 0 {
			return nil, rem
		}
	}
	st.inflight = true
	return &Reservation{t: t, deviceID: deviceID}, 0
}

// Remaining reports how long the device cooldown still has to run. Zero means
// a command may be attempted.
func (t *CooldownTracker) Remaining(deviceID string, minDelay time.Duration, now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.devices[deviceID]
	if !ok {
		return 0
	}
	if st.inflight {
		if rem := remainingSeconds(st.lastAccepted, minDelay, now); rem > 0 {
			return rem
		}
		return time.Second
	}
	if st.lastAccepted.IsZero() {
		return 0
	}
	return remainingSeconds(st.lastAccepted, minDelay, now)
}

// Commit records the confirmed command time and closes the reservation.
func (r *Reservation) Commit(at time.Time) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	st := r.t.devices[r.deviceID]
	st.inflight = false
	st.lastAccepted = at
}

// Release closes the reservation without consuming the cooldown window.
func (r *Reservation) Release() {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	r.t.devices[r.deviceID].inflight = false
}

// remainingSeconds computes the time left in the window, rounded up to whole
// seconds for operator display. A zero lastAccepted means a full window.
func remainingSeconds(lastAccepted time.Time, minDelay time.Duration, now time.Time) time.Duration {
	if lastAccepted.IsZero() {
		return minDelay
	}
	elapsed := now.Sub(lastAccepted)
	if elapsed >= minDelay {
		return 0
	}
	rem := minDelay - elapsed
	secs := rem / time.Second
	if rem%time.Second != 0 {
		secs++
	}
	return secs * time.Second
}
