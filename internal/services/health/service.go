package health

import (
	"context"
	"sort"
	"time"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	checks  map[string]Checker
	timeout time.Duration
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: map[string]Checker{}, timeout: 2 * time.Second}
}

// Add registers a named dependency. A nil checker is ignored.
func (s *Service) Add(name string, c Checker) *Service {
	if c != nil {
		s.checks[name] = c
	}
	return s
}

// Report is the payload served by /healthz.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Status runs every check and reports ok only when all pass.
func (s *Service) Status(ctx context.Context) Report {
	out := Report{OK: true}
	if len(s.checks) == 0 {
		return out
	}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out.Checks = make(map[string]string, len(names))
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name].PingContext(cctx)
		cancel()
		if err != nil {
			out.OK = false
			out.Checks[name] = "error: " + err.Error()
			continue
		}
		out.Checks[name] = "ok"
	}
	return out
}
