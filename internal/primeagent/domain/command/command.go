// Package command implements the Command Run Manager (spec §4.4): a
// registry of background command executions, each carrying its own
// bounded event buffer so polling clients can catch up without blocking
// the run itself.
package command

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/event"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/eventbuffer"
	"github.com/prime-system/prime-agent/pkg/logger"
)

const moduleName = "command"

// Status is the closed set of a Command Run's lifecycle states.
type Status string

const (
	StatusStarted   Status = "started"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

func (s Status) terminal() bool { return s == StatusCompleted || s == StatusError }

// DefaultRetention and DefaultMaxEvents match the manager's documented
// defaults (§4.4).
const (
	DefaultRetention = 60 * time.Minute
	DefaultMaxEvents = 200
)

// run is the manager's internal record for one Command Run.
type run struct {
	runID       string
	commandName string
	status      Status
	startedAt   time.Time
	completedAt time.Time
	costUSD     *float64
	durationMs  *int64
	errText     string
	buffer      *eventbuffer.Buffer
	cancel      context.CancelFunc
}

// Snapshot is the read-only view returned by Get.
type Snapshot struct {
	RunID       string
	CommandName string
	Status      Status
	StartedAt   time.Time
	CompletedAt *time.Time
	CostUSD     *float64
	DurationMs  *int64
	Error       string
	Events      []*event.Event
	NextCursor  int64
	DroppedBefore int64
}

// SetStatusOpts carries the optional fields a status transition may set.
type SetStatusOpts struct {
	Error      string
	CostUSD    *float64
	DurationMs *int64
}

// Manager is the registry of in-flight and recently completed Command
// Runs. The run map and each run's metadata are guarded by a single
// mutex; a run's event buffer carries its own lock, and AppendEvent and
// Get use it after releasing the manager mutex.
type Manager struct {
	mu        sync.Mutex
	runs      map[string]*run
	retention time.Duration
	maxEvents int
}

func NewManager(retention time.Duration, maxEvents int) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &Manager{runs: map[string]*run{}, retention: retention, maxEvents: maxEvents}
}

func newRunID() string {
	return "cmdrun_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Create inserts a new Run with status "started" and returns its id. The
// run is immediately visible to Get.
func (m *Manager) Create(commandName string) string {
	id := newRunID()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[id] = &run{
		runID:       id,
		commandName: commandName,
		status:      StatusStarted,
		startedAt:   time.Now(),
		buffer:      eventbuffer.New(m.maxEvents),
	}
	return id
}

// SetStatus transitions a run's status. Transitions are monotonic: once a
// terminal status is set, a later call to a different terminal status
// still wins (the latest terminal status is authoritative), but an
// identical repeated transition is a no-op. Unknown run ids are dropped
// silently and logged at warn.
func (m *Manager) SetStatus(runID string, status Status, opts SetStatusOpts) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[runID]
	if !ok {
		logger.WarnX(moduleName, "set_status on unknown run %s", runID)
		return
	}
	if r.status == status {
		return
	}
	if r.status.terminal() && !status.terminal() {
		logger.WarnX(moduleName, "set_status %s ignored for finished run %s", status, runID)
		return
	}
	r.status = status
	if opts.Error != "" {
		r.errText = opts.Error
	}
	if opts.CostUSD != nil {
		r.costUSD = opts.CostUSD
	}
	if opts.DurationMs != nil {
		r.durationMs = opts.DurationMs
	}
	if status.terminal() {
		r.completedAt = time.Now()
	}
}

// AppendEvent appends ev to the run's buffer, stamping its id. Silently
// drops the event (logged at warn) if the run is unknown.
func (m *Manager) AppendEvent(runID string, ev *event.Event) {
	m.mu.Lock()
	r, ok := m.runs[runID]
	m.mu.Unlock()

	if !ok {
		logger.WarnX(moduleName, "append_event on unknown run %s", runID)
		return
	}
	id := r.buffer.Append(ev)
	ev.ID = id
}

// Get returns run metadata plus events strictly after cursor. after
// should be eventbuffer.NoCursor (-1) on the first call so event id 0 is
// never skipped.
func (m *Manager) Get(runID string, after int64) (Snapshot, bool) {
	m.mu.Lock()
	r, ok := m.runs[runID]
	m.mu.Unlock()

	if !ok {
		return Snapshot{}, false
	}

	payloads, next, dropped := r.buffer.Since(after)
	events := make([]*event.Event, 0, len(payloads))
	for _, p := range payloads {
		events = append(events, p.(*event.Event))
	}

	snap := Snapshot{
		RunID:         r.runID,
		CommandName:   r.commandName,
		Status:        r.status,
		StartedAt:     r.startedAt,
		CostUSD:       r.costUSD,
		DurationMs:    r.durationMs,
		Error:         r.errText,
		Events:        events,
		NextCursor:    next,
		DroppedBefore: dropped,
	}
	if !r.completedAt.IsZero() {
		completedAt := r.completedAt
		snap.CompletedAt = &completedAt
	}
	return snap, true
}

// AttachTask stores the driving task's cancel function so a future
// cancellation request can stop it.
func (m *Manager) AttachTask(runID string, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[runID]; ok {
		r.cancel = cancel
	}
}

// CleanupExpired removes runs whose completedAt (or startedAt, if never
// completed) is older than the retention horizon.
func (m *Manager) CleanupExpired() int {
	horizon := time.Now().Add(-m.retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, r := range m.runs {
		reference := r.startedAt
		if !r.completedAt.IsZero() {
			reference = r.completedAt
		}
		if reference.Before(horizon) {
			delete(m.runs, id)
			removed++
		}
	}
	return removed
}

// ActiveCount returns the number of runs whose status is started or
// running.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.runs {
		if r.status == StatusStarted || r.status == StatusRunning {
			count++
		}
	}
	return count
}
