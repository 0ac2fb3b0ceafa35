package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Checker reports its current health on demand.
type Checker interface {
	Health() Status
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func() Status

// Health calls f.
func (f CheckerFunc) Health() Status {
	return f()
}

// Monitor aggregates live checkers and pushed statuses. It is safe for concurrent use.
type Monitor struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	statuses map[string]Status
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		checkers: make(map[string]Checker),
		statuses: make(map[string]Status),
	}
}

// Register adds a checker polled on every Get, GetAll or AggregateHealth.
func (m *Monitor) Register(name string, checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
	delete(m.statuses, name)
}

// Update records a pushed status for name, replacing any checker.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	delete(m.checkers, name)
	m.statuses[name] = status
}

// Get returns the status of name.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	checker, ok := m.checkers[name]
	status, pushed := m.statuses[name]
	m.mu.RUnlock()

	if ok {
		return poll(name, checker), true
	}
	return status, pushed
}

// GetAll returns every status keyed by component name.
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	checkers := make(map[string]Checker, len(m.checkers))
	for name, c := range m.checkers {
		checkers[name] = c
	}
	result := make(map[string]Status, len(m.statuses)+len(checkers))
	for name, s := range m.statuses {
		result[name] = s
	}
	m.mu.RUnlock()

	for name, c := range checkers {
		result[name] = poll(name, c)
	}
	return result
}

// Remove stops tracking name.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkers, name)
	delete(m.statuses, name)
}

// AggregateHealth combines all components under systemName, sorted by name.
func (m *Monitor) AggregateHealth(systemName string) Status {
	all := m.GetAll()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	subs := make([]Status, 0, len(names))
	for _, name := range names {
		subs = append(subs, all[name])
	}
	return Aggregate(systemName, subs)
}

// Handler serves the aggregate as JSON; unhealthy answers 503.
func (m *Monitor) Handler(systemName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := m.AggregateHealth(systemName)
		w.Header().Set("Content-Type", "application/json")
		if status.IsUnhealthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
}

func poll(name string, c Checker) Status {
	s := c.Health()
	s.Component = name
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	return s
}
