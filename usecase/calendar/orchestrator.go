// Package calendar owns the authoritative assignment collection and every path that
// mutates it: remote bulk merges, scraped merges, local edits, task creation and lazy
// detail enrichment.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/normalize"
	"github.com/gavinmorrow/hunter-extension-sub000/repository"
	"github.com/gavinmorrow/hunter-extension-sub000/usecase"
)

// Action tags used when reporting failures.
const (
	ActionBulkRefresh            = "bulk-refresh"
	ActionMergeScraped           = "merge-scraped"
	ActionLoadCache              = "load-cache"
	ActionSaveCache              = "save-cache"
	ActionNormalize              = "normalize"
	ActionClassMaps              = "fetch-class-maps"
	ActionFetchDetail            = "fetch-assignment-detail"
	ActionUpdateAssignmentStatus = "update-assignment-status"
	ActionUpdateTaskStatus       = "update-task-status"
	ActionUpdateTask             = "update-task"
	ActionCreateTask             = "create-task"
	ActionDeleteTask             = "delete-task"
)

// Options configures an Orchestrator. Gateway is required.
type Options struct {
	Gateway           usecase.RemoteGateway
	Renderer          usecase.ViewRenderer
	Reporter          usecase.Reporter
	Cache             repository.SnapshotRepository
	Logger            *zap.Logger
	Location          *time.Location
	EnrichConcurrency int64
	// HiddenDays are shown only while at least one entity is due on them.
	HiddenDays []time.Weekday
	Now        func() time.Time
}

// Orchestrator is the single owner of the entity collection. The mutex is never held
// across a remote call; renderer callbacks run under it so render order is mutation order.
type Orchestrator struct {
	gateway  usecase.RemoteGateway
	renderer usecase.ViewRenderer
	reporter usecase.Reporter
	cache    repository.SnapshotRepository
	log      *zap.Logger
	loc      *time.Location
	now      func() time.Time

	mu        sync.Mutex
	entities  map[int64]domain.Assignment
	dayCounts [7]int
	hidden    map[time.Weekday]bool
	clock     uint64
	pending   []*pendingEdit
	fetches   map[uint64]int
	enriching map[int64]struct{}

	saveMu sync.Mutex
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// pendingEdit is a local change whose remote call has not been observed by every
// in-flight fetch yet. A nil patch is a deletion.
type pendingEdit struct {
	id      int64
	patch   domain.Patch
	settled uint64
}

// New builds an Orchestrator with an empty collection.
func New(opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = nopRenderer{}
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	concurrency := opts.EnrichConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	hidden := make(map[time.Weekday]bool, len(opts.HiddenDays))
	for _, d := range opts.HiddenDays {
		hidden[d] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		gateway:   opts.Gateway,
		renderer:  renderer,
		reporter:  opts.Reporter,
		cache:     opts.Cache,
		log:       log.Named("calendar"),
		loc:       loc,
		now:       now,
		entities:  make(map[int64]domain.Assignment),
		hidden:    hidden,
		fetches:   make(map[uint64]int),
		enriching: make(map[int64]struct{}),
		sem:       semaphore.NewWeighted(concurrency),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Snapshot returns a copy of the collection ordered by due date, then id.
func (o *Orchestrator) Snapshot() []domain.Assignment {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() []domain.Assignment {
	out := make([]domain.Assignment, 0, len(o.entities))
	for _, a := range o.entities {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns a copy of one entity.
func (o *Orchestrator) Get(id int64) (domain.Assignment, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.entities[id]
	if !ok {
		return domain.Assignment{}, false
	}
	return a.Clone(), true
}

// Wait blocks until background enrichment has drained.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels background work and waits for it to stop.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// LoadCached pre-populates the collection from the local cache.
func (o *Orchestrator) LoadCached(ctx context.Context) error {
	if o.cache == nil {
		return nil
	}
	cached, err := o.cache.LoadSnapshot(ctx)
	if err != nil {
		o.report(ActionLoadCache, err)
		return err
	}
	o.log.Info("loaded cached snapshot", zap.Int("entities", len(cached)))
	return o.merge(ctx, o.currentClock(), cached, ActionLoadCache, false)
}

// Refresh fetches the full listing from the host and merges it.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	started := o.beginFetch()
	defer o.endFetch(started)

	buckets, err := o.gateway.FetchAllAssignmentData(ctx)
	if err != nil {
		err = domain.WrapRemote(ActionBulkRefresh, err)
		o.report(ActionBulkRefresh, err)
		return err
	}
	incoming, perr := normalize.FromHostBatch(buckets.Records(), o.lookup(ctx))
	o.reportParse(perr)
	return o.merge(ctx, started, incoming, ActionBulkRefresh, true)
}

// BulkMergeFromRemote normalizes already fetched host records and merges them.
func (o *Orchestrator) BulkMergeFromRemote(ctx context.Context, records []domain.BucketedRecord) error {
	incoming, perr := normalize.FromHostBatch(records, o.lookup(ctx))
	o.reportParse(perr)
	return o.merge(ctx, o.currentClock(), incoming, ActionBulkRefresh, true)
}

// MergeScraped normalizes records read from the page markup and merges them.
func (o *Orchestrator) MergeScraped(ctx context.Context, records []domain.ScrapeRecord) error {
	incoming, perr := normalize.FromScrapeBatch(records, o.lookup(ctx))
	o.reportParse(perr)
	return o.merge(ctx, o.currentClock(), incoming, ActionMergeScraped, true)
}

// merge reconciles incoming into the collection. The new collection is built aside and
// swapped in only when reconciliation succeeds; a failure leaves the current one intact.
func (o *Orchestrator) merge(ctx context.Context, fetchedAt uint64, incoming []domain.Assignment, action string, persist bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.WrapError(domain.ErrCodeInternal, "merge panicked", fmt.Errorf("%v", r))
			o.report(action, err)
		}
	}()

	inserted, err := o.reconcileInto(fetchedAt, incoming)
	if err != nil {
		o.report(action, err)
		return err
	}

	o.log.Debug("merged collection",
		zap.String("source", action),
		zap.Int("incoming", len(incoming)),
		zap.Int("inserted", len(inserted)))

	for _, id := range inserted {
		o.enrich(id)
	}
	if persist {
		o.persist(ctx)
	}
	return nil
}

func (o *Orchestrator) reconcileInto(fetchedAt uint64, incoming []domain.Assignment) ([]int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	existing := make([]domain.Assignment, 0, len(o.entities))
	for _, a := range o.entities {
		existing = append(existing, a)
	}
	merged, err := Reconcile(existing, incoming)
	if err != nil {
		return nil, err
	}
	next := make(map[int64]domain.Assignment, len(merged))
	for _, a := range merged {
		next[a.ID] = a
	}
	o.reapplyPendingLocked(next, fetchedAt)
	return o.swapLocked(next), nil
}

// swapLocked installs next and emits render calls for the entities that changed.
// It returns the ids of inserted entities.
func (o *Orchestrator) swapLocked(next map[int64]domain.Assignment) []int64 {
	var inserted []int64
	for id, old := range o.entities {
		if _, ok := next[id]; !ok {
			o.countDay(old.DueDate, -1)
			o.renderer.Remove(id)
		}
	}
	ids := make([]int64, 0, len(next))
	for id := range next {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		a := next[id]
		old, ok := o.entities[id]
		switch {
		case !ok:
			o.countDay(a.DueDate, 1)
			o.renderer.Insert(a.Clone())
			inserted = append(inserted, id)
		case !domain.Equal(old, a):
			o.moveDay(old.DueDate, a.DueDate)
			o.renderer.Update(a.Clone())
		}
	}
	o.entities = next
	return inserted
}

func (o *Orchestrator) persist(ctx context.Context) {
	if o.cache == nil {
		return
	}
	o.saveMu.Lock()
	defer o.saveMu.Unlock()
	if err := o.cache.SaveSnapshot(ctx, o.Snapshot()); err != nil {
		o.report(ActionSaveCache, err)
	}
}

// lookup resolves the session class maps. Failures degrade to empty maps.
func (o *Orchestrator) lookup(ctx context.Context) normalize.Lookup {
	lk := normalize.Lookup{Location: o.loc}
	colors, err := o.gateway.FetchClassColorMap(ctx)
	if err != nil {
		o.report(ActionClassMaps, domain.WrapRemote(ActionClassMaps, err))
	}
	classes, err := o.gateway.FetchClassList(ctx)
	if err != nil {
		o.report(ActionClassMaps, domain.WrapRemote(ActionClassMaps, err))
	}
	lk.Colors = colors
	lk.Classes = classes
	return lk
}

func (o *Orchestrator) reportParse(err error) {
	if err == nil {
		return
	}
	for _, e := range multierr.Errors(err) {
		o.log.Warn("skipped record", zap.Error(e))
	}
	o.report(ActionNormalize, err)
}

func (o *Orchestrator) report(action string, err error) {
	if o.reporter != nil {
		o.reporter.Report(action, err)
		return
	}
	o.log.Error("action failed", zap.String("action", action), zap.Error(err))
}

type nopRenderer struct{}

func (nopRenderer) Insert(domain.Assignment)            {}
func (nopRenderer) Update(domain.Assignment)            {}
func (nopRenderer) Remove(int64)                        {}
func (nopRenderer) SetColumnVisible(time.Weekday, bool) {}
