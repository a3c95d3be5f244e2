// Package health tracks the health of store components from observed
// operation outcomes and exposes an aggregate state for health endpoints.
package health

import (
	"context"
	stderr "errors"
	"fmt"
	"sync"
	"time"

	"github.com/dirstore/dirstore/pkg/errors"
)

// State represents the health of one component or of the whole store.
type State int

const (
	// StateHealthy indicates the component is fully operational.
	StateHealthy State = iota

	// StateDegraded indicates operations are failing intermittently.
	StateDegraded

	// StateReadOnly indicates writes are failing but reads still work,
	// typically a full or read-only volume behind the gateway.
	StateReadOnly

	// StateUnavailable indicates the component is not operational.
	StateUnavailable
)

// String returns the string representation of a health state.
func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateReadOnly:
		return "read-only"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalJSON emits the state as its string form so health endpoints stay
// readable.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// ComponentHealth is a point-in-time view of one tracked component.
type ComponentHealth struct {
	Name              string    `json:"name"`
	State             State     `json:"state"`
	LastStateChange   time.Time `json:"last_state_change"`
	LastObserved      time.Time `json:"last_observed"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	LastErrorMessage  string    `json:"last_error_message,omitempty"`
}

// Config sets the thresholds that drive state transitions.
type Config struct {
	// ErrorThreshold is the number of consecutive errors before a
	// component leaves the healthy state.
	ErrorThreshold int `yaml:"error_threshold"`

	// UnavailableThreshold is the number of consecutive errors before a
	// component is marked unavailable.
	UnavailableThreshold int `yaml:"unavailable_threshold"`

	// CheckInterval is the period of the probe loop run by StartChecks.
	CheckInterval time.Duration `yaml:"check_interval"`
}

// DefaultConfig returns the thresholds used when no tuning is supplied.
func DefaultConfig() Config {
	return Config{
		ErrorThreshold:       3,
		UnavailableThreshold: 10,
		CheckInterval:        30 * time.Second,
	}
}

// Tracker derives per-component health states from recorded outcomes. All
// methods are safe for concurrent use.
type Tracker struct {
	mu         sync.RWMutex
	components map[string]*ComponentHealth
	config     Config
}

// NewTracker creates a tracker with the given thresholds; zero thresholds
// fall back to the defaults.
func NewTracker(config Config) *Tracker {
	def := DefaultConfig()
	if config.ErrorThreshold <= 0 {
		config.ErrorThreshold = def.ErrorThreshold
	}
	if config.UnavailableThreshold <= 0 {
		config.UnavailableThreshold = def.UnavailableThreshold
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = def.CheckInterval
	}
	return &Tracker{
		components: make(map[string]*ComponentHealth),
		config:     config,
	}
}

// RegisterComponent starts tracking a component; it begins healthy.
// Registering a known name is a no-op.
func (t *Tracker) RegisterComponent(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.components[name]; !exists {
		now := time.Now()
		t.components[name] = &ComponentHealth{
			Name:            name,
			State:           StateHealthy,
			LastStateChange: now,
			LastObserved:    now,
		}
	}
}

// RecordSuccess records a successful operation. Each success pays down one
// consecutive error; a component recovers fully once the count reaches
// zero. Unregistered names are ignored.
func (t *Tracker) RecordSuccess(component string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, exists := t.components[component]
	if !exists {
		return
	}

	h.LastObserved = time.Now()
	if h.ConsecutiveErrors > 0 {
		h.ConsecutiveErrors--
		if h.ConsecutiveErrors == 0 && h.State != StateHealthy {
			t.transition(h, StateHealthy)
		}
	}
}

// RecordError records a failed operation and re-derives the component
// state from the consecutive error count. Unregistered names are ignored.
func (t *Tracker) RecordError(component string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, exists := t.components[component]
	if !exists {
		return
	}

	h.LastObserved = time.Now()
	h.ConsecutiveErrors++
	if err != nil {
		h.LastErrorMessage = err.Error()
	}

	newState := h.State
	switch {
	case h.ConsecutiveErrors >= t.config.UnavailableThreshold:
		newState = StateUnavailable
	case h.ConsecutiveErrors >= t.config.ErrorThreshold:
		if isWriteFailure(err) {
			newState = StateReadOnly
		} else {
			newState = StateDegraded
		}
	}

	if newState != h.State {
		t.transition(h, newState)
	}
}

// GetState returns the current state of a component; unregistered names
// report unavailable.
func (t *Tracker) GetState(component string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if h, exists := t.components[component]; exists {
		return h.State
	}
	return StateUnavailable
}

// GetComponentHealth returns a copy of one component's health.
func (t *Tracker) GetComponentHealth(component string) (*ComponentHealth, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h, exists := t.components[component]
	if !exists {
		return nil, fmt.Errorf("component %s not registered", component)
	}
	copied := *h
	return &copied, nil
}

// GetAllComponents returns a copy of every tracked component's health.
func (t *Tracker) GetAllComponents() map[string]*ComponentHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]*ComponentHealth, len(t.components))
	for name, h := range t.components {
		copied := *h
		result[name] = &copied
	}
	return result
}

// GetOverallHealth returns the worst state across all components; an
// empty tracker is healthy.
func (t *Tracker) GetOverallHealth() State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	overall := StateHealthy
	for _, h := range t.components {
		if h.State > overall {
			overall = h.State
		}
	}
	return overall
}

// IsHealthy reports whether a component is fully operational.
func (t *Tracker) IsHealthy(component string) bool {
	return t.GetState(component) == StateHealthy
}

// CanRead reports whether read operations are expected to succeed.
func (t *Tracker) CanRead(component string) bool {
	return t.GetState(component) != StateUnavailable
}

// CanWrite reports whether write operations are expected to succeed.
func (t *Tracker) CanWrite(component string) bool {
	state := t.GetState(component)
	return state == StateHealthy || state == StateDegraded
}

// transition moves a component to a new state; callers hold the lock.
func (t *Tracker) transition(h *ComponentHealth, newState State) {
	h.State = newState
	h.LastStateChange = time.Now()
	if newState == StateHealthy {
		h.ConsecutiveErrors = 0
		h.LastErrorMessage = ""
	}
}

// isWriteFailure reports whether the error came from the write path, which
// lets the tracker distinguish a read-only backend from a dead one.
func isWriteFailure(err error) bool {
	var se *errors.StorageError
	if stderr.As(err, &se) {
		return se.Code == errors.ErrCodeFilesystem && se.Operation == "write"
	}
	return false
}

// StartChecks probes every registered component on the configured interval
// until ctx is canceled, feeding outcomes back into the tracker. It blocks,
// so callers usually run it in a goroutine.
func (t *Tracker) StartChecks(ctx context.Context, probe func(ctx context.Context, component string) error) {
	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.probeAll(ctx, probe)
		}
	}
}

func (t *Tracker) probeAll(ctx context.Context, probe func(ctx context.Context, component string) error) {
	t.mu.RLock()
	names := make([]string, 0, len(t.components))
	for name := range t.components {
		names = append(names, name)
	}
	t.mu.RUnlock()

	for _, name := range names {
		if err := probe(ctx, name); err != nil {
			t.RecordError(name, err)
		} else {
			t.RecordSuccess(name)
		}
	}
}
