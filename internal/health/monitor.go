package health

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"segviewer/internal/storage/sqlite"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusUp
	StatusDown
)

func (s Status) String() string {
	switch s {
	case StatusUp:
		return "up"
	case StatusDown:
		return "down"
	default:
		return "unknown"
	}
}

// Prober is satisfied by *httpx.Client.
type Prober interface {
	Health(ctx context.Context) bool
	BaseURL() string
}

type Notifier interface {
	Notify(text string) error
}

// Monitor probes the backend, keeps the latest status in memory and the
// history in SQLite, and notifies on every up/down transition.
type Monitor struct {
	prober   Prober
	db       *sql.DB
	notifier Notifier

	mu     sync.Mutex
	status Status
	now    func() time.Time
}

// NewMonitor accepts a nil db (no history) and a nil notifier (no alerts).
func NewMonitor(prober Prober, db *sql.DB, notifier Notifier) *Monitor {
	return &Monitor{
		prober:   prober,
		db:       db,
		notifier: notifier,
		now:      time.Now,
	}
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Check runs one probe. It never returns an error: storage and notification
// failures are logged.
func (m *Monitor) Check(ctx context.Context) sqlite.Probe {
	start := m.now()
	healthy := m.prober.Health(ctx)
	p := sqlite.Probe{
		CheckedAt: start.UTC(),
		Healthy:   healthy,
		LatencyMS: m.now().Sub(start).Milliseconds(),
	}
	if !healthy {
		p.Error = fmt.Sprintf("GET %s/health failed", m.prober.BaseURL())
	}

	if m.db != nil {
		id, err := sqlite.InsertProbe(m.db, m.prober.BaseURL(), p)
		if err != nil {
			log.Printf("health probe store error: %v", err)
		}
		p.ID = id
	}

	next := StatusDown
	if healthy {
		next = StatusUp
	}
	m.mu.Lock()
	prev := m.status
	m.status = next
	m.mu.Unlock()

	if prev != next {
		log.Printf("backend health changed from=%s to=%s latency_ms=%d", prev, next, p.LatencyMS)
		// Coming up from unknown is the normal startup path; not worth an alert.
		if prev != StatusUnknown || next == StatusDown {
			m.alert(prev, next)
		}
	}
	return p
}

func (m *Monitor) alert(prev, next Status) {
	if m.notifier == nil {
		return
	}
	var text string
	if next == StatusUp {
		text = fmt.Sprintf(":white_check_mark: Backend %s is responding again.", m.prober.BaseURL())
	} else {
		text = fmt.Sprintf(":warning: Backend %s is not responding (was %s).", m.prober.BaseURL(), prev)
	}
	if err := m.notifier.Notify(text); err != nil {
		log.Printf("health alert post error: %v", err)
	}
}

// Snapshot is the JSON shape of /api/backend.
type Snapshot struct {
	BaseURL string         `json:"baseUrl"`
	Status  string         `json:"status"`
	Last    *sqlite.Probe  `json:"last,omitempty"`
	Recent  []sqlite.Probe `json:"recent"`
}

func (m *Monitor) Snapshot(limit int) (Snapshot, error) {
	s := Snapshot{
		BaseURL: m.prober.BaseURL(),
		Status:  m.Status().String(),
		Recent:  []sqlite.Probe{},
	}
	if m.db == nil {
		return s, nil
	}
	recent, err := sqlite.RecentProbes(m.db, limit)
	if err != nil {
		return s, fmt.Errorf("loading probe history: %w", err)
	}
	if len(recent) > 0 {
		s.Recent = recent
		last := recent[0]
		s.Last = &last
	}
	return s, nil
}
