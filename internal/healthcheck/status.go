package healthcheck

import (
	"sync"
	"time"
)

// Status holds the outcome of the latest repository check.
type Status struct {
	mutex     sync.RWMutex
	healthy   bool
	checkedAt time.Time
	lastError string
}

// Report is the JSON body served by Handler.
type Report struct {
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func NewStatus() *Status {
	return &Status{}
}

// Set records a check result.
// Returns true if the health changed, false if it was already in that state.
func (s *Status) Set(healthy bool, err error, at time.Time) (changed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.checkedAt = at
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}

	if s.healthy == healthy {
		return false
	}

	s.healthy = healthy
	return true
}

func (s *Status) Healthy() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.healthy
}

func (s *Status) Report() Report {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	r := Report{Status: "unavailable", CheckedAt: s.checkedAt, Error: s.lastError}
	if s.healthy {
		r.Status = "ok"
	}
	return r
}
