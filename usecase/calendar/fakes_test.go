package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
)

var errHostDown = errors.New("host unavailable")

type statusCall struct {
	id   int64
	code int
}

type fakeGateway struct {
	mu sync.Mutex

	buckets     domain.HostAssignmentBuckets
	fetchErr    error
	fetchHook   func()
	fetchCalls  int
	detailHook  func(id int64)
	details     map[int64]domain.HostAssignmentDetail
	detailCalls map[int64]int

	statusErr       error
	statusCalls     []statusCall
	taskStatusCalls []domain.HostTaskUpdate
	taskUpdates     []domain.HostTaskUpdate
	creates         []domain.HostTaskCreate
	createID        int64
	onCreate        func(id int64)
	deleted         []int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		details:     make(map[int64]domain.HostAssignmentDetail),
		detailCalls: make(map[int64]int),
	}
}

func (g *fakeGateway) setBuckets(b domain.HostAssignmentBuckets) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buckets = b
}

func (g *fakeGateway) FetchAllAssignmentData(ctx context.Context) (domain.HostAssignmentBuckets, error) {
	g.mu.Lock()
	g.fetchCalls++
	hook := g.fetchHook
	g.mu.Unlock()
	if hook != nil {
		hook()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return domain.HostAssignmentBuckets{}, g.fetchErr
	}
	return g.buckets, nil
}

func (g *fakeGateway) FetchAssignmentDetail(ctx context.Context, id int64) (domain.HostAssignmentDetail, error) {
	g.mu.Lock()
	g.detailCalls[id]++
	hook := g.detailHook
	g.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if d, ok := g.details[id]; ok {
		return d, nil
	}
	return domain.HostAssignmentDetail{LongDescription: fmt.Sprintf("<p>details %d</p>", id)}, nil
}

func (g *fakeGateway) UpdateAssignmentStatus(ctx context.Context, id int64, code int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls = append(g.statusCalls, statusCall{id: id, code: code})
	return g.statusErr
}

func (g *fakeGateway) CreateTask(ctx context.Context, task domain.HostTaskCreate) (int64, error) {
	g.mu.Lock()
	g.creates = append(g.creates, task)
	id, hook := g.createID, g.onCreate
	g.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return id, nil
}

func (g *fakeGateway) UpdateTask(ctx context.Context, task domain.HostTaskUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.taskUpdates = append(g.taskUpdates, task)
	return nil
}

func (g *fakeGateway) UpdateTaskStatus(ctx context.Context, task domain.HostTaskUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.taskStatusCalls = append(g.taskStatusCalls, task)
	return g.statusErr
}

func (g *fakeGateway) DeleteTask(ctx context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, id)
	return nil
}

func (g *fakeGateway) FetchClassColorMap(ctx context.Context) (map[int64]string, error) {
	return map[int64]string{88: "#336699"}, nil
}

func (g *fakeGateway) FetchClassList(ctx context.Context) (map[int64]string, error) {
	return map[int64]string{88: "Biology"}, nil
}

func (g *fakeGateway) StudentID(ctx context.Context) (int64, error) {
	return 4242, nil
}

func (g *fakeGateway) detailCount(id int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.detailCalls[id]
}

type fakeRenderer struct {
	mu     sync.Mutex
	events []string
}

func (r *fakeRenderer) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *fakeRenderer) Insert(a domain.Assignment) { r.record("insert %d", a.ID) }
func (r *fakeRenderer) Update(a domain.Assignment) { r.record("update %d", a.ID) }
func (r *fakeRenderer) Remove(id int64)            { r.record("remove %d", id) }
func (r *fakeRenderer) SetColumnVisible(day time.Weekday, visible bool) {
	if visible {
		r.record("show %s", day)
		return
	}
	r.record("hide %s", day)
}

func (r *fakeRenderer) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

type fakeReporter struct {
	mu      sync.Mutex
	actions []string
}

func (r *fakeReporter) Report(action string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *fakeReporter) reported() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.actions...)
}

type fakeCache struct {
	mu    sync.Mutex
	saved []domain.Assignment
	saves int
}

func (c *fakeCache) LoadSnapshot(ctx context.Context) ([]domain.Assignment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved, nil
}

func (c *fakeCache) SaveSnapshot(ctx context.Context, entities []domain.Assignment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = entities
	c.saves++
	return nil
}

// monday is the fixed "now" of every orchestrator test.
var monday = time.Date(2024, 4, 22, 10, 0, 0, 0, time.UTC)

type harness struct {
	orch     *Orchestrator
	gateway  *fakeGateway
	renderer *fakeRenderer
	reporter *fakeReporter
	cache    *fakeCache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gateway:  newFakeGateway(),
		renderer: &fakeRenderer{},
		reporter: &fakeReporter{},
		cache:    &fakeCache{},
	}
	h.orch = New(Options{
		Gateway:    h.gateway,
		Renderer:   h.renderer,
		Reporter:   h.reporter,
		Cache:      h.cache,
		Location:   time.UTC,
		HiddenDays: []time.Weekday{time.Saturday, time.Sunday},
		Now:        func() time.Time { return monday },
	})
	t.Cleanup(h.orch.Close)
	return h
}

func statusCode(code int) *int { return &code }

func hostAssignment(id int64, due string, code int) domain.HostAssignment {
	return domain.HostAssignment{
		AssignmentID:         id + 1000,
		AssignmentIndexID:    id,
		ShortDescription:     fmt.Sprintf("Assignment %d", id),
		DateAssigned:         "4/15/2024 8:00 AM",
		DateDue:              due,
		AssignmentStatusType: statusCode(code),
		AssignmentType:       "Homework",
	}
}

func hostTask(id int64, due string) domain.HostAssignment {
	return domain.HostAssignment{
		UserTaskID:           id,
		ShortDescription:     fmt.Sprintf("Task %d", id),
		DateAssigned:         "4/20/2024 8:00 AM",
		DateDue:              due,
		AssignmentStatusType: statusCode(domain.RemoteCodeToDo),
	}
}

func records(recs ...domain.HostAssignment) []domain.BucketedRecord {
	out := make([]domain.BucketedRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, domain.BucketedRecord{Bucket: domain.BucketDueThisWeek, Record: r})
	}
	return out
}
