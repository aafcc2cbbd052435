package calendar

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
)

func strPtr(v string) *string { return &v }

func entity(id int64, title string, status domain.Status) domain.Assignment {
	link := "#assignmentdetail/1/" + title
	return domain.Assignment{
		ID:           id,
		Kind:         domain.KindAssignment,
		Title:        title,
		Link:         &link,
		Status:       status,
		DueDate:      time.Date(2024, 4, 23, 23, 59, 0, 0, time.UTC),
		AssignedDate: time.Date(2024, 4, 15, 8, 0, 0, 0, time.UTC),
		Type:         "Homework",
	}
}

func TestReconcileIdempotent(t *testing.T) {
	described := entity(3, "essay", domain.StatusCompleted)
	described.Description = strPtr("<p>write</p>")
	described.Attachments = []domain.Attachment{{Name: "rubric.pdf", URL: "/files/1"}}
	x := []domain.Assignment{entity(1, "lab", domain.StatusToDo), entity(2, "quiz", domain.StatusInProgress), described}

	got, err := Reconcile(x, x)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if diff := cmp.Diff(x, got); diff != "" {
		t.Fatalf("reconcile(X, X) != X (-want +got):\n%s", diff)
	}
}

func TestReconcileDisjointUnion(t *testing.T) {
	a := []domain.Assignment{entity(1, "lab", domain.StatusToDo), entity(3, "essay", domain.StatusGraded)}
	b := []domain.Assignment{entity(2, "quiz", domain.StatusOverdue)}

	got, err := Reconcile(a, b)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := []domain.Assignment{a[0], b[0], a[1]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("union mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileFieldsOverlayWinsPerField(t *testing.T) {
	existing := []map[string]any{{"id": 1, "status": "To do", "title": "X"}}
	incoming := []map[string]any{{"id": 1, "status": "Completed"}}

	got := ReconcileFields(existing, incoming)
	want := []map[string]any{{"id": 1, "status": "Completed", "title": "X"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge precedence mismatch (-want +got):\n%s", diff)
	}
	if existing[0]["status"] != "To do" {
		t.Fatal("inputs must not be mutated")
	}
}

func TestReconcileLastDuplicateWins(t *testing.T) {
	incoming := []map[string]any{
		{"id": 4, "title": "first"},
		{"id": 4, "title": "second"},
		{"title": "no id"},
	}
	got := ReconcileFields(nil, incoming)
	want := []map[string]any{{"id": 4, "title": "second"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("duplicate handling mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileKeepsUnspecifiedLazyFields(t *testing.T) {
	cached := entity(501, "lab", domain.StatusCompleted)
	cached.Description = strPtr("cached desc")
	remote := entity(501, "lab", domain.StatusToDo)

	got, err := Reconcile([]domain.Assignment{cached}, []domain.Assignment{remote})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got[0].Status != domain.StatusToDo {
		t.Fatalf("status = %q, remote should win", got[0].Status)
	}
	if got[0].Description == nil || *got[0].Description != "cached desc" {
		t.Fatalf("description = %v, cached value should survive", got[0].Description)
	}
}
