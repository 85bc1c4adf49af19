package scans

import (
	"context"
	"sync"
	"time"

	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
	"github.com/bagaskara/sentrascan/internal/infra/tools"
)

// In-memory fakes for the repository ports. Enough behavior to drive the
// pipeline; no SQL semantics beyond what the ports promise.

type memJobs struct {
	mu   sync.Mutex
	rows map[domain.JobID]*domain.Job
	next int64
}

func newMemJobs() *memJobs { return &memJobs{rows: map[domain.JobID]*domain.Job{}} }

func (m *memJobs) Create(ctx context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	j.ID = m.next
	m.rows[j.JobID] = j
	return nil
}

func (m *memJobs) GetByJobID(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) List(ctx context.Context, limit int) ([]*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Job
	for _, j := range m.rows {
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memJobs) UpdateStatus(ctx context.Context, id domain.JobID, status domain.JobStatus, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.rows[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	j.Status = status
	j.CompletedAt = completedAt
	return nil
}

type memTargets struct {
	rows map[int64]*domain.Target
	next int64
}

func newMemTargets() *memTargets { return &memTargets{rows: map[int64]*domain.Target{}} }

func (m *memTargets) Create(ctx context.Context, t *domain.Target) error {
	m.next++
	t.ID = m.next
	m.rows[t.ID] = t
	return nil
}

func (m *memTargets) GetByID(ctx context.Context, id int64) (*domain.Target, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrTargetNotFound
	}
	return t, nil
}

func (m *memTargets) GetByURL(ctx context.Context, url string) (*domain.Target, error) {
	for _, t := range m.rows {
		if t.URL == url {
			return t, nil
		}
	}
	return nil, nil
}

func (m *memTargets) List(ctx context.Context, limit int) ([]*domain.Target, error) {
	var out []*domain.Target
	for _, t := range m.rows {
		out = append(out, t)
	}
	return out, nil
}

type memTools struct {
	rows map[string]*domain.Tool
	next int64
}

func newMemTools() *memTools { return &memTools{rows: map[string]*domain.Tool{}} }

func (m *memTools) Create(ctx context.Context, t *domain.Tool) error {
	m.next++
	t.ID = m.next
	m.rows[t.Name] = t
	return nil
}

func (m *memTools) GetByName(ctx context.Context, name string) (*domain.Tool, error) {
	return m.rows[name], nil
}

type memExecs struct {
	mu   sync.Mutex
	rows []*domain.ToolExecution
	err  error // next Insert fails with this when set
}

func (m *memExecs) Insert(ctx context.Context, e *domain.ToolExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	e.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, e)
	return nil
}

func (m *memExecs) ListByJob(ctx context.Context, id domain.JobID) ([]*domain.ToolExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ToolExecution
	for _, e := range m.rows {
		if e.JobID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type memFindings struct {
	mu   sync.Mutex
	rows []*domain.Finding
}

func (m *memFindings) Insert(ctx context.Context, f *domain.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, f)
	return nil
}

func (m *memFindings) ListByJob(ctx context.Context, id domain.JobID) ([]*domain.Finding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Finding
	for _, f := range m.rows {
		if f.JobID == id {
			out = append(out, f)
		}
	}
	return out, nil
}

type memVulns struct {
	rows      map[string]*domain.VulnerabilityDefinition
	next      int64
	createErr error // forced error for the next Create when set
	missGets  int   // pretend the row is absent for this many lookups
}

func newMemVulns() *memVulns { return &memVulns{rows: map[string]*domain.VulnerabilityDefinition{}} }

func (m *memVulns) Create(ctx context.Context, v *domain.VulnerabilityDefinition) error {
	if m.createErr != nil {
		err := m.createErr
		m.createErr = nil
		return err
	}
	if _, exists := m.rows[v.Name]; exists {
		return domain.ErrDuplicate
	}
	m.next++
	v.ID = m.next
	m.rows[v.Name] = v
	return nil
}

func (m *memVulns) GetByName(ctx context.Context, name string) (*domain.VulnerabilityDefinition, error) {
	if m.missGets > 0 {
		m.missGets--
		return nil, nil
	}
	return m.rows[name], nil
}

// fakeAdapter plays back one canned result, or panics on demand.
type fakeAdapter struct {
	name   domain.ToolName
	result tools.Result
	panics bool
	params []tools.Params // every call's params, in order
}

func (f *fakeAdapter) Name() domain.ToolName { return f.name }

func (f *fakeAdapter) Run(ctx context.Context, p tools.Params) tools.Result {
	f.params = append(f.params, p)
	if f.panics {
		panic("adapter exploded")
	}
	r := f.result
	r.Tool = f.name
	return r
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
