package domain

import (
	"testing"
	"time"
)

func TestStatusNext(t *testing.T) {
	now := time.Date(2024, 4, 22, 10, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	laterToday := time.Date(2024, 4, 22, 0, 0, 0, 0, time.UTC)
	tomorrow := now.AddDate(0, 0, 1)

	cases := []struct {
		name   string
		from   Status
		due    time.Time
		want   Status
		wantOK bool
	}{
		{"missing completes", StatusMissing, yesterday, StatusCompleted, true},
		{"overdue completes", StatusOverdue, yesterday, StatusCompleted, true},
		{"to do completes", StatusToDo, tomorrow, StatusCompleted, true},
		{"in progress completes", StatusInProgress, tomorrow, StatusCompleted, true},
		{"completed past goes overdue", StatusCompleted, yesterday, StatusOverdue, true},
		{"completed today goes to do", StatusCompleted, laterToday, StatusToDo, true},
		{"completed future goes to do", StatusCompleted, tomorrow, StatusToDo, true},
		{"graded is terminal", StatusGraded, yesterday, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.from.Next(tc.due, now)
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("Next = %q, %v; want %q, %v", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestRemoteCodes(t *testing.T) {
	want := map[Status]int{
		StatusMissing:    2,
		StatusOverdue:    2,
		StatusToDo:       -1,
		StatusInProgress: 0,
		StatusCompleted:  1,
		StatusGraded:     1,
	}
	for st, code := range want {
		got, err := st.RemoteCode()
		if err != nil {
			t.Fatalf("RemoteCode(%q) failed: %v", st, err)
		}
		if got != code {
			t.Errorf("RemoteCode(%q) = %d, want %d", st, got, code)
		}
	}
	if _, err := Status("Done").RemoteCode(); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestStatusFromRemoteCode(t *testing.T) {
	for _, code := range []int{-1, 0, 1, 2} {
		st, err := StatusFromRemoteCode(code)
		if err != nil {
			t.Fatalf("StatusFromRemoteCode(%d) failed: %v", code, err)
		}
		back, _ := st.RemoteCode()
		if back != code {
			t.Errorf("code %d decoded to %q which encodes to %d", code, st, back)
		}
	}
	if _, err := StatusFromRemoteCode(7); err == nil {
		t.Error("expected error for unknown code")
	}
}
