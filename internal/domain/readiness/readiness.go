package readiness

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

var ErrInvalidTarget = errors.New("readiness: invalid target")

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Target is a downstream dependency the service needs before taking traffic.
type Target struct {
	Name string
	URL  string
}

// Validate requires a name and an absolute http(s) URL.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.Join(ErrInvalidTarget, errors.New("name is required"))
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return errors.Join(ErrInvalidTarget, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Join(ErrInvalidTarget, errors.New("url must be absolute http(s): "+t.URL))
	}
	return nil
}

type TargetResult struct {
	Name       string
	Status     Status
	StatusCode int
	Error      string
	Latency    time.Duration
}

type Report struct {
	Status    Status
	Targets   []TargetResult
	CheckedAt time.Time
}

// NewReport aggregates target results: the report is up only when every target is up.
func NewReport(results []TargetResult, checkedAt time.Time) *Report {
	status := StatusUp
	for _, r := range results {
		if r.Status != StatusUp {
			status = StatusDown
			break
		}
	}
	return &Report{
		Status:    status,
		Targets:   results,
		CheckedAt: checkedAt.UTC(),
	}
}

func (r *Report) Ready() bool { return r != nil && r.Status == StatusUp }
