package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/internal/application/port"
	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/repository"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

func calmSnapshot() *entity.MetricsSnapshot {
	return &entity.MetricsSnapshot{
		CapturedAt: time.Date(2026, 10, 18, 8, 55, 0, 0, time.UTC),
		ProcessHealth: []entity.ProcessHealth{
			{Name: "Invoices", ExceptionRate: 0.03},
			{Name: "Payroll", ExceptionRate: 0.05},
		},
		HandoffFunnel:    &entity.Series{Values: []int{40, 39, 37, 35, 30}},
		QueueAging:       &entity.Series{Values: []int{30, 12, 5, 1}},
		BurstDetector:    &entity.BurstDetector{Values: []float64{3, 4, 3}, Upper: []float64{6, 6, 6}},
		RootCauseSplit:   &entity.RootCauseSplit{Environment: []int{1, 3, 8}, Code: []int{2, 4, 9}, BusinessInquiry: []int{0, 1, 2}},
		QueueState:       &entity.QueueState{Pending: []int{40, 42, 41}, Exception: []int{2, 3, 2}},
		HourlyExceptions: &entity.Series{Values: []int{20, 22, 21, 20}},
		DailyExceptions:  &entity.Series{Values: []int{100, 101, 100}},
		Robots:           &entity.Robots{Today: &entity.RobotSegment{Running: 18, Retired: 2}},
	}
}

// crisisSnapshot дает два красных сигнала: process-quality и infrastructure
func crisisSnapshot() *entity.MetricsSnapshot {
	s := calmSnapshot()
	s.RootCauseSplit = &entity.RootCauseSplit{Environment: []int{2, 6, 20}, Code: []int{1, 4, 10}}
	s.ProcessHealth = append(s.ProcessHealth, entity.ProcessHealth{Name: "Claims", ExceptionRate: 0.18})
	return s
}

type fakeRepository struct {
	mu          sync.Mutex
	saved       []*entity.Evaluation
	snapshots   []*entity.MetricsSnapshot
	saveErr     error
	counts      map[valueobject.AlertLevel]int64
	history     []*entity.Evaluation
	deleted     int64
	cutoff      time.Time
	rangeCalled int
}

func (r *fakeRepository) Save(ctx context.Context, e *entity.Evaluation, s *entity.MetricsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, e)
	r.snapshots = append(r.snapshots, s)
	return nil
}

func (r *fakeRepository) FindLatest(ctx context.Context) (*entity.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return nil, repository.ErrNotFound
	}
	return r.saved[len(r.saved)-1], nil
}

func (r *fakeRepository) FindLatestSnapshot(ctx context.Context) (*entity.MetricsSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil, repository.ErrNotFound
	}
	return r.snapshots[len(r.snapshots)-1], nil
}

func (r *fakeRepository) FindByTimeRange(ctx context.Context, tr valueobject.TimeRange, limit int) ([]*entity.Evaluation, error) {
	r.rangeCalled++
	if len(r.history) > limit {
		return r.history[:limit], nil
	}
	return r.history, nil
}

func (r *fakeRepository) CountByAlertState(ctx context.Context, tr valueobject.TimeRange) (map[valueobject.AlertLevel]int64, error) {
	return r.counts, nil
}

func (r *fakeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.cutoff = cutoff
	return r.deleted, nil
}

// fakeCache хранит значения в JSON, как настоящий Redis
type fakeCache struct {
	data    map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	b, ok := c.data[key]
	if !ok {
		return port.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *fakeCache) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			c.deleted = append(c.deleted, k)
		}
	}
	return nil
}

func (c *fakeCache) Close() error { return nil }

type fakeNotifier struct {
	evaluations   []*dto.EvaluationDTO
	countdowns    []*dto.CountdownDTO
	announcements []*dto.AnnouncementDTO
}

func (n *fakeNotifier) Broadcast(e *dto.EvaluationDTO)            { n.evaluations = append(n.evaluations, e) }
func (n *fakeNotifier) BroadcastCountdown(c *dto.CountdownDTO)    { n.countdowns = append(n.countdowns, c) }
func (n *fakeNotifier) BroadcastAnnouncement(a *dto.AnnouncementDTO) {
	n.announcements = append(n.announcements, a)
}
func (n *fakeNotifier) ClientCount() int { return 1 }

type fakeEvents struct {
	subjects []string
	err      error
}

func (p *fakeEvents) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	p.subjects = append(p.subjects, subject)
	return p.err
}

func (p *fakeEvents) Close() error { return nil }

type fakeArchive struct {
	bodies map[string][]byte
	err    error
}

func (a *fakeArchive) PutSnapshot(ctx context.Context, id string, capturedAt time.Time, body []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if a.bodies == nil {
		a.bodies = make(map[string][]byte)
	}
	key := "snapshots/" + id + ".json"
	a.bodies[key] = body
	return key, nil
}

type fakeTransitions struct {
	items []port.AlertTransition
	page  port.AlertTransitionPage
	query port.AlertTransitionQuery
}

func (t *fakeTransitions) Put(ctx context.Context, tr port.AlertTransition) error {
	t.items = append(t.items, tr)
	return nil
}

func (t *fakeTransitions) List(ctx context.Context, q port.AlertTransitionQuery) (port.AlertTransitionPage, error) {
	t.query = q
	return t.page, nil
}

type fakeAnnouncer struct {
	name string
	got  []*dto.AnnouncementDTO
	err  error
}

func (a *fakeAnnouncer) Name() string { return a.name }

func (a *fakeAnnouncer) Notify(ctx context.Context, announcement *dto.AnnouncementDTO) error {
	a.got = append(a.got, announcement)
	return a.err
}

type fakePolicyMetrics struct {
	evaluations int
	rejected    []string
	countdowns  map[string]float64
}

func (m *fakePolicyMetrics) ObserveEvaluation(e *entity.Evaluation, source string) { m.evaluations++ }

func (m *fakePolicyMetrics) ObserveSnapshotRejected(source, reason string) {
	m.rejected = append(m.rejected, reason)
}

func (m *fakePolicyMetrics) ObserveCountdown(site string, minutes float64) {
	if m.countdowns == nil {
		m.countdowns = make(map[string]float64)
	}
	m.countdowns[site] = minutes
}

type fakeMetricsPublisher struct {
	published int
	err       error
}

func (m *fakeMetricsPublisher) PublishEvaluation(ctx context.Context, e *entity.Evaluation) error {
	m.published++
	return m.err
}

func (m *fakeMetricsPublisher) Flush(ctx context.Context) error { return nil }

var errBoom = errors.New("boom")
