package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
)

func TestCachedEditSurvivesRemoteMergePerField(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cached := entity(501, "Lab", domain.StatusCompleted)
	cached.Description = strPtr("cached desc")
	h.cache.saved = []domain.Assignment{cached}
	if err := h.orch.LoadCached(ctx); err != nil {
		t.Fatalf("LoadCached: %v", err)
	}

	tomorrow := "4/23/2024 11:59 PM"
	if err := h.orch.BulkMergeFromRemote(ctx, records(hostAssignment(501, tomorrow, domain.RemoteCodeToDo))); err != nil {
		t.Fatalf("BulkMergeFromRemote: %v", err)
	}
	h.orch.Wait()

	got, ok := h.orch.Get(501)
	if !ok {
		t.Fatal("entity 501 missing")
	}
	if got.Status != domain.StatusToDo {
		t.Fatalf("status = %q, want remote To do", got.Status)
	}
	if got.Description == nil || *got.Description != "cached desc" {
		t.Fatalf("description = %v, want cached desc", got.Description)
	}
	if n := h.gateway.detailCount(501); n != 0 {
		t.Fatalf("described entity was enriched %d times", n)
	}
	if diff := cmp.Diff([]string{"insert 501", "update 501"}, h.renderer.take()); diff != "" {
		t.Fatalf("render calls (-want +got):\n%s", diff)
	}
	if len(h.cache.saved) != 1 || h.cache.saved[0].Status != domain.StatusToDo {
		t.Fatalf("cache not overwritten with merged collection: %+v", h.cache.saved)
	}
}

func TestBulkMergeRendersOnlyChanges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	recs := records(
		hostAssignment(1, "4/23/2024 11:59 PM", domain.RemoteCodeToDo),
		hostAssignment(2, "4/24/2024 11:59 PM", domain.RemoteCodeToDo),
	)
	if err := h.orch.BulkMergeFromRemote(ctx, recs); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	h.orch.Wait()
	h.renderer.take()

	recs[1].Record.AssignmentStatusType = statusCode(domain.RemoteCodeInProgress)
	if err := h.orch.BulkMergeFromRemote(ctx, recs); err != nil {
		t.Fatalf("second merge: %v", err)
	}
	h.orch.Wait()

	if diff := cmp.Diff([]string{"update 2"}, h.renderer.take()); diff != "" {
		t.Fatalf("render calls (-want +got):\n%s", diff)
	}
}

func TestBulkMergeSkipsMalformedRecords(t *testing.T) {
	h := newHarness(t)
	bad := hostAssignment(2, "someday", domain.RemoteCodeToDo)
	err := h.orch.BulkMergeFromRemote(context.Background(), records(hostAssignment(1, "4/23/2024 11:59 PM", domain.RemoteCodeToDo), bad))
	if err != nil {
		t.Fatalf("merge should continue past bad records: %v", err)
	}
	h.orch.Wait()

	if _, ok := h.orch.Get(1); !ok {
		t.Fatal("valid record dropped")
	}
	if _, ok := h.orch.Get(2); ok {
		t.Fatal("malformed record merged")
	}
	if diff := cmp.Diff([]string{ActionNormalize}, h.reporter.reported()); diff != "" {
		t.Fatalf("reported actions (-want +got):\n%s", diff)
	}
}

func TestEnrichmentRunsOncePerEntity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	started := make(chan int64, 4)
	release := make(chan struct{})
	h.gateway.detailHook = func(id int64) {
		started <- id
		<-release
	}

	recs := records(hostAssignment(9, "4/23/2024 11:59 PM", domain.RemoteCodeToDo))
	if err := h.orch.BulkMergeFromRemote(ctx, recs); err != nil {
		t.Fatalf("merge: %v", err)
	}
	<-started

	h.orch.enrich(9)
	if err := h.orch.BulkMergeFromRemote(ctx, recs); err != nil {
		t.Fatalf("second merge: %v", err)
	}
	close(release)
	h.orch.Wait()

	got, _ := h.orch.Get(9)
	if !got.Described() || *got.Description != "<p>details 9</p>" {
		t.Fatalf("description = %v", got.Description)
	}
	h.orch.enrich(9)
	h.orch.Wait()
	if n := h.gateway.detailCount(9); n != 1 {
		t.Fatalf("detail fetched %d times, want 1", n)
	}
}

func TestEnrichmentSkipsTasks(t *testing.T) {
	h := newHarness(t)
	if err := h.orch.BulkMergeFromRemote(context.Background(), records(hostTask(12, "4/23/2024 3:00 PM"))); err != nil {
		t.Fatalf("merge: %v", err)
	}
	h.orch.Wait()
	if n := h.gateway.detailCount(12); n != 0 {
		t.Fatalf("task enriched %d times", n)
	}
}

func TestDetailArrivingAfterDeleteIsDiscarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.orch.BulkMergeFromRemote(ctx, records(hostTask(7, "4/23/2024 3:00 PM"))); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := h.orch.ApplyLocalChange(ctx, 7, true, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	h.renderer.take()

	h.orch.applyDetail(7, domain.HostAssignmentDetail{LongDescription: "late"})

	if _, ok := h.orch.Get(7); ok {
		t.Fatal("deleted entity re-inserted by late detail")
	}
	if events := h.renderer.take(); len(events) != 0 {
		t.Fatalf("late detail rendered: %v", events)
	}
	if diff := cmp.Diff([]int64{7}, h.gateway.deleted); diff != "" {
		t.Fatalf("remote deletes (-want +got):\n%s", diff)
	}
	if len(h.reporter.reported()) != 0 {
		t.Fatalf("unexpected reports: %v", h.reporter.reported())
	}
}

func TestDeleteDuringFetchIsNotUndone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gateway.setBuckets(domain.HostAssignmentBuckets{DueThisWeek: []domain.HostAssignment{hostTask(7, "4/23/2024 3:00 PM")}})
	if err := h.orch.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	fetching := make(chan struct{})
	release := make(chan struct{})
	h.gateway.fetchHook = func() {
		close(fetching)
		<-release
	}
	done := make(chan error, 1)
	go func() { done <- h.orch.Refresh(ctx) }()
	<-fetching

	if _, err := h.orch.ApplyLocalChange(ctx, 7, true, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale Refresh: %v", err)
	}
	if _, ok := h.orch.Get(7); ok {
		t.Fatal("stale fetch resurrected deleted task")
	}
}

func TestStaleFetchKeepsInFlightEdit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := domain.HostAssignmentBuckets{DueThisWeek: []domain.HostAssignment{hostAssignment(501, "4/23/2024 11:59 PM", domain.RemoteCodeToDo)}}
	h.gateway.setBuckets(listing)
	if err := h.orch.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	h.orch.Wait()

	fetching := make(chan struct{})
	release := make(chan struct{})
	h.gateway.fetchHook = func() {
		close(fetching)
		<-release
	}
	done := make(chan error, 1)
	go func() { done <- h.orch.Refresh(ctx) }()
	<-fetching

	if _, err := h.orch.ApplyLocalChange(ctx, 501, false, domain.Patch{"status": string(domain.StatusCompleted)}); err != nil {
		t.Fatalf("ApplyLocalChange: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale Refresh: %v", err)
	}
	if got, _ := h.orch.Get(501); got.Status != domain.StatusCompleted {
		t.Fatalf("stale fetch erased local edit: status %q", got.Status)
	}

	// A fetch started after the edit settled is authoritative again.
	h.gateway.fetchHook = nil
	if err := h.orch.Refresh(ctx); err != nil {
		t.Fatalf("fresh Refresh: %v", err)
	}
	h.orch.Wait()
	if got, _ := h.orch.Get(501); got.Status != domain.StatusToDo {
		t.Fatalf("fresh fetch should win: status %q", got.Status)
	}
}

func TestApplyLocalChangeStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.orch.BulkMergeFromRemote(ctx, records(
		hostAssignment(1, "4/23/2024 11:59 PM", domain.RemoteCodeToDo),
		hostTask(2, "4/19/2024 3:00 PM"),
	)); err != nil {
		t.Fatalf("merge: %v", err)
	}
	h.orch.Wait()

	got, err := h.orch.ApplyLocalChange(ctx, 1, false, domain.Patch{"status": "Completed"})
	if err != nil {
		t.Fatalf("ApplyLocalChange: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status = %q", got.Status)
	}
	if diff := cmp.Diff([]statusCall{{id: 1, code: domain.RemoteCodeCompleted}}, h.gateway.statusCalls, cmp.AllowUnexported(statusCall{})); diff != "" {
		t.Fatalf("status calls (-want +got):\n%s", diff)
	}

	// Task 2 is past due: To do -> Completed -> Overdue.
	if _, err := h.orch.ApplyLocalChange(ctx, 2, true, domain.Patch{"status": "Completed"}); err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if _, err := h.orch.ApplyLocalChange(ctx, 2, true, domain.Patch{"status": "Overdue"}); err != nil {
		t.Fatalf("reopen task: %v", err)
	}
	if len(h.gateway.taskStatusCalls) != 2 || *h.gateway.taskStatusCalls[1].TaskStatus != domain.RemoteCodeOverdue {
		t.Fatalf("task status calls: %+v", h.gateway.taskStatusCalls)
	}
	if h.gateway.taskStatusCalls[0].StudentID != 4242 {
		t.Fatalf("student id not sent: %+v", h.gateway.taskStatusCalls[0])
	}
}

func TestApplyLocalChangeRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	graded := hostAssignment(3, "4/19/2024 11:59 PM", domain.RemoteCodeCompleted)
	graded.HasGrade = true
	if err := h.orch.BulkMergeFromRemote(ctx, records(hostAssignment(1, "4/23/2024 11:59 PM", domain.RemoteCodeToDo), graded)); err != nil {
		t.Fatalf("merge: %v", err)
	}
	h.orch.Wait()

	cases := []struct {
		name  string
		id    int64
		patch domain.Patch
		want  error
	}{
		{"unknown id", 99, domain.Patch{"title": "x"}, domain.ErrAssignmentNotFound},
		{"skips a step", 1, domain.Patch{"status": "In progress"}, domain.ErrInvalidTransition},
		{"graded is terminal", 3, domain.Patch{"status": "To do"}, domain.ErrInvalidTransition},
		{"assignments cannot be deleted", 1, nil, domain.ErrNotATask},
		{"assignment fields are read-only", 1, domain.Patch{"title": "renamed", "maxPoints": 999.0}, domain.ErrImmutableField},
		{"assignment due date is read-only", 1, domain.Patch{"dueDate": "2030-01-01T00:00:00Z"}, domain.ErrImmutableField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.orch.ApplyLocalChange(ctx, tc.id, false, tc.patch); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if len(h.gateway.statusCalls) != 0 {
		t.Fatalf("rejected changes reached the host: %+v", h.gateway.statusCalls)
	}
	if got, _ := h.orch.Get(1); got.Title != "Assignment 1" || got.Status != domain.StatusToDo {
		t.Fatalf("rejected change leaked into the collection: %+v", got)
	}
}

func TestLocalChangeCannotRewriteID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	recs := records(
		hostAssignment(7, "4/23/2024 11:59 PM", domain.RemoteCodeToDo),
		hostAssignment(8, "4/24/2024 11:59 PM", domain.RemoteCodeToDo),
		hostTask(9, "4/25/2024 11:59 PM"),
	)
	if err := h.orch.BulkMergeFromRemote(ctx, recs); err != nil {
		t.Fatalf("merge: %v", err)
	}
	h.orch.Wait()
	h.renderer.take()

	if _, err := h.orch.ApplyLocalChange(ctx, 7, false, domain.Patch{"id": 8.0}); !errors.Is(err, domain.ErrImmutableField) {
		t.Fatalf("assignment id change: err = %v", err)
	}
	if _, err := h.orch.ApplyLocalChange(ctx, 9, true, domain.Patch{"id": 8.0, "title": "moved"}); !errors.Is(err, domain.ErrImmutableField) {
		t.Fatalf("task id change: err = %v", err)
	}
	if events := h.renderer.take(); len(events) != 0 {
		t.Fatalf("rejected changes rendered: %v", events)
	}

	if err := h.orch.BulkMergeFromRemote(ctx, recs); err != nil {
		t.Fatalf("second merge: %v", err)
	}
	ids := make([]int64, 0, 3)
	for _, a := range h.orch.Snapshot() {
		ids = append(ids, a.ID)
	}
	if diff := cmp.Diff([]int64{7, 8, 9}, ids); diff != "" {
		t.Fatalf("collection ids (-want +got):\n%s", diff)
	}
	if got, _ := h.orch.Get(7); got.ID != 7 || got.Title != "Assignment 7" {
		t.Fatalf("entity 7 = %+v", got)
	}
}

func TestRefreshFailureKeepsCollection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.orch.BulkMergeFromRemote(ctx, records(hostAssignment(1, "4/23/2024 11:59 PM", domain.RemoteCodeToDo))); err != nil {
		t.Fatalf("merge: %v", err)
	}
	h.orch.Wait()
	h.renderer.take()
	saves := h.cache.saves
	h.gateway.fetchErr = errHostDown

	if err := h.orch.Refresh(ctx); !errors.Is(err, errHostDown) {
		t.Fatalf("Refresh err = %v, want host down", err)
	}
	if got := h.orch.Snapshot(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("collection changed after failed fetch: %+v", got)
	}
	if events := h.renderer.take(); len(events) != 0 {
		t.Fatalf("failed fetch rendered: %v", events)
	}
	if diff := cmp.Diff([]string{ActionBulkRefresh}, h.reporter.reported()); diff != "" {
		t.Fatalf("reported actions (-want +got):\n%s", diff)
	}
	if h.cache.saves != saves {
		t.Fatalf("failed fetch overwrote the cache")
	}
}

func TestRemoteFailureKeepsOptimisticState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.orch.BulkMergeFromRemote(ctx, records(hostAssignment(1, "4/23/2024 11:59 PM", domain.RemoteCodeToDo))); err != nil {
		t.Fatalf("merge: %v", err)
	}
	h.orch.Wait()
	h.gateway.statusErr = errHostDown

	if _, err := h.orch.ApplyLocalChange(ctx, 1, false, domain.Patch{"status": "Completed"}); err != nil {
		t.Fatalf("remote failure must not surface as a local error: %v", err)
	}
	if got, _ := h.orch.Get(1); got.Status != domain.StatusCompleted {
		t.Fatalf("optimistic status rolled back to %q", got.Status)
	}
	if diff := cmp.Diff([]string{ActionUpdateAssignmentStatus}, h.reporter.reported()); diff != "" {
		t.Fatalf("reported actions (-want +got):\n%s", diff)
	}
}

func TestWeekendColumnsFollowCounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	saturday := "4/27/2024 3:00 PM"
	if err := h.orch.BulkMergeFromRemote(ctx, records(hostTask(30, saturday), hostTask(31, saturday))); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if diff := cmp.Diff([]string{"show Saturday", "insert 30", "insert 31"}, h.renderer.take()); diff != "" {
		t.Fatalf("render calls (-want +got):\n%s", diff)
	}

	if _, err := h.orch.ApplyLocalChange(ctx, 30, true, nil); err != nil {
		t.Fatalf("delete 30: %v", err)
	}
	if _, err := h.orch.ApplyLocalChange(ctx, 31, true, domain.Patch{"dueDate": "2024-04-29T15:00:00Z"}); err != nil {
		t.Fatalf("move 31: %v", err)
	}
	if diff := cmp.Diff([]string{"remove 30", "hide Saturday", "update 31"}, h.renderer.take()); diff != "" {
		t.Fatalf("render calls (-want +got):\n%s", diff)
	}
	if n := h.orch.DayCount(time.Saturday); n != 0 {
		t.Fatalf("saturday count = %d", n)
	}
	if n := h.orch.DayCount(time.Monday); n != 1 {
		t.Fatalf("monday count = %d", n)
	}

	h.orch.mu.Lock()
	h.orch.countDay(time.Date(2024, 4, 28, 0, 0, 0, 0, time.UTC), -1)
	h.orch.mu.Unlock()
	if n := h.orch.DayCount(time.Sunday); n != 0 {
		t.Fatalf("sunday count went below zero: %d", n)
	}
}

func TestCreateTaskRefetchesCanonicalTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gateway.createID = 55
	h.gateway.onCreate = func(id int64) {
		canonical := hostTask(id, "4/24/2024 3:00 PM")
		canonical.ShortDescription = "Read ch. 4 (host copy)"
		h.gateway.setBuckets(domain.HostAssignmentBuckets{DueThisWeek: []domain.HostAssignment{canonical}})
	}

	got, err := h.orch.CreateTask(ctx, domain.TaskDraft{
		Title:   "Read ch. 4",
		DueDate: time.Date(2024, 4, 24, 15, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if got.ID != 55 || got.Title != "Read ch. 4 (host copy)" {
		t.Fatalf("got %d %q, want the refetched host copy", got.ID, got.Title)
	}
	if len(h.gateway.creates) != 1 || h.gateway.creates[0].DueDate != "4/24/2024 3:00 PM" || h.gateway.creates[0].StudentID != 4242 {
		t.Fatalf("create body: %+v", h.gateway.creates)
	}
}

func TestCreateTaskWithIDUpdatesChangedFieldsOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.orch.BulkMergeFromRemote(ctx, records(hostTask(12, "4/24/2024 3:00 PM"))); err != nil {
		t.Fatalf("merge: %v", err)
	}
	id := int64(12)
	got, err := h.orch.CreateTask(ctx, domain.TaskDraft{
		ID:      &id,
		Title:   "Task 12 renamed",
		DueDate: time.Date(2024, 4, 24, 15, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if got.Title != "Task 12 renamed" || got.Status != domain.StatusToDo {
		t.Fatalf("got %+v", got)
	}
	if len(h.gateway.creates) != 0 {
		t.Fatal("existing task must not be re-created")
	}
	if len(h.gateway.taskUpdates) != 1 {
		t.Fatalf("task updates: %+v", h.gateway.taskUpdates)
	}
	u := h.gateway.taskUpdates[0]
	if u.UserTaskID != 12 || u.ShortDescription == nil || *u.ShortDescription != "Task 12 renamed" {
		t.Fatalf("update body: %+v", u)
	}
	if u.DueDate != nil || u.AssignedDate != nil || u.TaskStatus != nil {
		t.Fatalf("unchanged fields sent: %+v", u)
	}
}
