package callstate

import (
	"errors"
	"sync"
	"time"
)

// ErrUnknownCall is returned by Apply for a sid that Start never registered or that has expired.
var ErrUnknownCall = errors.New("unknown call")

// Call is a snapshot of a tracked call.
type Call struct {
	SID            string    `json:"sid"`
	State          State     `json:"state"`
	ProviderStatus string    `json:"status"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

const (
	defaultMaxCalls = 10000
	defaultTTL      = 6 * time.Hour
)

// Tracker holds call states in memory, bounded by count and age.
type Tracker struct {
	mu    sync.Mutex
	calls map[string]*Call
	max   int
	ttl   time.Duration
	nowF  func() time.Time
}

// NewTracker returns a tracker keeping at most max calls for ttl each. Zero values pick defaults.
func NewTracker(max int, ttl time.Duration) *Tracker {
	if max <= 0 {
		max = defaultMaxCalls
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Tracker{
		calls: make(map[string]*Call),
		max:   max,
		ttl:   ttl,
		nowF:  func() time.Time { return time.Now().UTC() },
	}
}

// Start registers a freshly placed call in the idle state.
func (t *Tracker) Start(sid string) Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := &Call{SID: sid, State: Idle, ProviderStatus: "queued", UpdatedAt: t.nowF()}
	t.put(c)
	return *c
}

// Apply feeds a provider status for sid. Calls not registered by Start are rejected with
// ErrUnknownCall and never stored. On an unknown status or an invalid transition the state is
// left unchanged and the error is returned with the current snapshot.
func (t *Tracker) Apply(sid, status string) (Call, error) {
	ev, err := EventForStatus(status)

	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.calls[sid]
	if !ok || t.expired(c) {
		return Call{}, ErrUnknownCall
	}
	if err != nil {
		return *c, err
	}
	next, err := Transition(c.State, ev)
	if err != nil {
		return *c, err
	}
	c.State = next
	c.ProviderStatus = status
	c.UpdatedAt = t.nowF()
	return *c, nil
}

// Get returns the call for sid.
func (t *Tracker) Get(sid string) (Call, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.calls[sid]
	if !ok || t.expired(c) {
		return Call{}, false
	}
	return *c, true
}

// Len returns the number of tracked calls.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

func (t *Tracker) expired(c *Call) bool {
	return !c.UpdatedAt.IsZero() && t.nowF().Sub(c.UpdatedAt) > t.ttl
}

// put stores c, evicting expired calls and then the oldest ones when full. Caller holds mu.
func (t *Tracker) put(c *Call) {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = t.nowF()
	}
	if _, exists := t.calls[c.SID]; !exists && len(t.calls) >= t.max {
		for sid, old := range t.calls {
			if t.expired(old) {
				delete(t.calls, sid)
			}
		}
		for len(t.calls) >= t.max {
			var oldest string
			for sid, old := range t.calls {
				if oldest == "" || old.UpdatedAt.Before(t.calls[oldest].UpdatedAt) {
					oldest = sid
				}
			}
			delete(t.calls, oldest)
		}
	}
	t.calls[c.SID] = c
}
