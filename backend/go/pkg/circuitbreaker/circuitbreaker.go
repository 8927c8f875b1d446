package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed lets every call through.
	Closed State = iota
	// Open rejects calls until the timeout elapses.
	Open
	// HalfOpen lets trial calls through to probe recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned by Execute without calling the function.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls to a dependency that may be down.
type CircuitBreaker interface {
	Execute(req func() error) error
	State() State
}

// Settings tune a breaker. Now defaults to time.Now; OnStateChange is optional
// and is called with the lock held, so it must not call back into the breaker.
type Settings struct {
	FailureThreshold uint32
	SuccessThreshold uint32
	Timeout          time.Duration
	Now              func() time.Time
	OnStateChange    func(from, to State)
}

type breaker struct {
	settings             Settings
	consecutiveSuccesses uint32
	consecutiveFailures  uint32
	openedAt             time.Time
	state                State
	mutex                sync.Mutex
}

// New builds a breaker. Zero thresholds are treated as 1.
func New(s Settings) CircuitBreaker {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 1
	}
	if s.SuccessThreshold == 0 {
		s.SuccessThreshold = 1
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return &breaker{settings: s, state: Closed}
}

func (cb *breaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.refresh()
	return cb.state
}

// refresh moves Open to HalfOpen once the timeout has passed.
func (cb *breaker) refresh() {
	if cb.state == Open && cb.settings.Now().Sub(cb.openedAt) > cb.settings.Timeout {
		cb.setState(HalfOpen)
	}
}

func (cb *breaker) Execute(req func() error) error {
	cb.mutex.Lock()
	cb.refresh()
	if cb.state == Open {
		cb.mutex.Unlock()
		return ErrCircuitOpen
	}
	cb.mutex.Unlock()

	err := req()

	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

func (cb *breaker) onSuccess() {
	switch cb.state {
	case HalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.settings.SuccessThreshold {
			cb.setState(Closed)
		}
	case Closed:
		cb.consecutiveFailures = 0
	}
}

func (cb *breaker) onFailure() {
	switch cb.state {
	case HalfOpen:
		cb.setState(Open)
	case Closed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.settings.FailureThreshold {
			cb.setState(Open)
		}
	}
}

func (cb *breaker) setState(to State) {
	from := cb.state
	cb.state = to
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	if to == Open {
		cb.openedAt = cb.settings.Now()
	}
	if from != to && cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(from, to)
	}
}
