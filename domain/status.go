package domain

import (
	"fmt"
	"time"
)

// Status is the progress state of an assignment or task as shown in the calendar.
type Status string

const (
	StatusMissing    Status = "Missing"
	StatusOverdue    Status = "Overdue"
	StatusToDo       Status = "To do"
	StatusInProgress Status = "In progress"
	StatusCompleted  Status = "Completed"
	StatusGraded     Status = "Graded"
)

// Remote status codes understood by the host API.
const (
	RemoteCodeToDo       = -1
	RemoteCodeInProgress = 0
	RemoteCodeCompleted  = 1
	RemoteCodeOverdue    = 2
)

var statuses = []Status{StatusMissing, StatusOverdue, StatusToDo, StatusInProgress, StatusCompleted, StatusGraded}

// ParseStatus validates a status label.
func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", NewError(ErrCodeInvalid, fmt.Sprintf("unknown status %q", s))
}

// Valid reports whether s is one of the known labels.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Next is the status reached by one click on the status control. Completed goes back to
// Overdue when the due date is before today and to To do otherwise. Graded has no successor.
func (s Status) Next(due, now time.Time) (Status, bool) {
	switch s {
	case StatusMissing, StatusOverdue, StatusToDo, StatusInProgress:
		return StatusCompleted, true
	case StatusCompleted:
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if due.Before(today) {
			return StatusOverdue, true
		}
		return StatusToDo, true
	default:
		return "", false
	}
}

// RemoteCode maps the status onto the host API's numeric code.
func (s Status) RemoteCode() (int, error) {
	switch s {
	case StatusMissing, StatusOverdue:
		return RemoteCodeOverdue, nil
	case StatusToDo:
		return RemoteCodeToDo, nil
	case StatusInProgress:
		return RemoteCodeInProgress, nil
	case StatusCompleted, StatusGraded:
		return RemoteCodeCompleted, nil
	default:
		return 0, NewError(ErrCodeInvalid, fmt.Sprintf("unknown status %q", s))
	}
}

// StatusFromRemoteCode decodes a host status code. Graded work is flagged separately by the
// host, so code 1 always decodes to Completed here.
func StatusFromRemoteCode(code int) (Status, error) {
	switch code {
	case RemoteCodeToDo:
		return StatusToDo, nil
	case RemoteCodeInProgress:
		return StatusInProgress, nil
	case RemoteCodeCompleted:
		return StatusCompleted, nil
	case RemoteCodeOverdue:
		return StatusOverdue, nil
	default:
		return "", NewError(ErrCodeInvalid, fmt.Sprintf("unknown status code %d", code))
	}
}

// allowedForTask lists the statuses a user task may hold.
func (s Status) allowedForTask() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}
