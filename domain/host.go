package domain

import (
	"fmt"
	"strings"
	"time"
)

// HostAssignment is one record of the host's assignment-center listing.
// A non-zero UserTaskID marks a user task; everything else is a host assignment.
type HostAssignment struct {
	AssignmentID         int64    `json:"AssignmentId"`
	AssignmentIndexID    int64    `json:"AssignmentIndexId"`
	UserTaskID           int64    `json:"UserTaskId"`
	ShortDescription     string   `json:"ShortDescription"`
	LongDescription      *string  `json:"LongDescription"`
	DateAssigned         string   `json:"DateAssigned"`
	DateDue              string   `json:"DateDue"`
	AssignmentStatusType *int     `json:"AssignmentStatusType"`
	AssignmentType       string   `json:"AssignmentType"`
	SectionID            *int64   `json:"SectionId"`
	GroupName            string   `json:"GroupName"`
	MaxPoints            *float64 `json:"MaxPoints"`
	ExtraCredit          bool     `json:"ExtraCredit"`
	HasGrade             bool     `json:"HasGrade"`
}

// IsTask reports whether the record describes a user task.
func (r HostAssignment) IsTask() bool { return r.UserTaskID != 0 }

// Validate rejects records missing the fields every entity needs.
func (r HostAssignment) Validate() error {
	switch {
	case !r.IsTask() && r.AssignmentIndexID == 0:
		return ParseError("host record %q has no assignment index id", r.ShortDescription)
	case strings.TrimSpace(r.DateDue) == "":
		return ParseError("host record %q has no due date", r.ShortDescription)
	case strings.TrimSpace(r.DateAssigned) == "":
		return ParseError("host record %q has no assigned date", r.ShortDescription)
	case r.AssignmentStatusType == nil:
		return ParseError("host record %q has no status", r.ShortDescription)
	}
	return nil
}

// Bucket names of the host listing, keyed by due-date range.
const (
	BucketMissing            = "Missing"
	BucketOverdue            = "Overdue"
	BucketDueToday           = "DueToday"
	BucketDueTomorrow        = "DueTomorrow"
	BucketDueThisWeek        = "DueThisWeek"
	BucketDueNextWeek        = "DueNextWeek"
	BucketDueAfterNextWeek   = "DueAfterNextWeek"
	BucketPastThisWeek       = "PastThisWeek"
	BucketPastLastWeek       = "PastLastWeek"
	BucketPastBeforeLastWeek = "PastBeforeLastWeek"
)

// HostAssignmentBuckets is the bulk listing, grouped by due-date bucket.
type HostAssignmentBuckets struct {
	Missing            []HostAssignment `json:"Missing"`
	Overdue            []HostAssignment `json:"Overdue"`
	DueToday           []HostAssignment `json:"DueToday"`
	DueTomorrow        []HostAssignment `json:"DueTomorrow"`
	DueThisWeek        []HostAssignment `json:"DueThisWeek"`
	DueNextWeek        []HostAssignment `json:"DueNextWeek"`
	DueAfterNextWeek   []HostAssignment `json:"DueAfterNextWeek"`
	PastThisWeek       []HostAssignment `json:"PastThisWeek"`
	PastLastWeek       []HostAssignment `json:"PastLastWeek"`
	PastBeforeLastWeek []HostAssignment `json:"PastBeforeLastWeek"`
}

// BucketedRecord is a host record tagged with the bucket it came from.
type BucketedRecord struct {
	Bucket string
	Record HostAssignment
}

// Records flattens the buckets in a stable order.
func (b HostAssignmentBuckets) Records() []BucketedRecord {
	groups := []struct {
		name    string
		records []HostAssignment
	}{
		{BucketMissing, b.Missing},
		{BucketOverdue, b.Overdue},
		{BucketDueToday, b.DueToday},
		{BucketDueTomorrow, b.DueTomorrow},
		{BucketDueThisWeek, b.DueThisWeek},
		{BucketDueNextWeek, b.DueNextWeek},
		{BucketDueAfterNextWeek, b.DueAfterNextWeek},
		{BucketPastThisWeek, b.PastThisWeek},
		{BucketPastLastWeek, b.PastLastWeek},
		{BucketPastBeforeLastWeek, b.PastBeforeLastWeek},
	}
	var out []BucketedRecord
	for _, g := range groups {
		for _, r := range g.records {
			out = append(out, BucketedRecord{Bucket: g.name, Record: r})
		}
	}
	return out
}

// HostDownloadItem is a file attached to an assignment.
type HostDownloadItem struct {
	ShortDescription string `json:"ShortDescription"`
	DownloadURL      string `json:"DownloadUrl"`
	Expired          bool   `json:"ExpiredInd"`
}

// HostLinkItem is a web link attached to an assignment.
type HostLinkItem struct {
	ShortDescription string `json:"ShortDescription"`
	URL              string `json:"Url"`
}

// HostSubmissionResult is a previous hand-in recorded by the host.
type HostSubmissionResult struct {
	SubmissionDate string `json:"SubmissionDate"`
	FileName       string `json:"FileName"`
}

// HostAssignmentDetail is the per-assignment detail used for lazy enrichment.
type HostAssignmentDetail struct {
	LongDescription   string                 `json:"LongDescription"`
	LtiProviderName   string                 `json:"LtiProviderName"`
	DropboxEnabled    bool                   `json:"DropboxInd"`
	DownloadItems     []HostDownloadItem     `json:"DownloadItems"`
	LinkItems         []HostLinkItem         `json:"LinkItems"`
	SubmissionResults []HostSubmissionResult `json:"SubmissionResults"`
}

// Patch converts the detail into the lazy-field patch applied to an entity.
func (d HostAssignmentDetail) Patch() Patch {
	attachments := make([]any, 0, len(d.DownloadItems)+len(d.LinkItems))
	for _, item := range d.DownloadItems {
		attachments = append(attachments, map[string]any{"name": item.ShortDescription, "url": item.DownloadURL, "expired": item.Expired})
	}
	for _, item := range d.LinkItems {
		attachments = append(attachments, map[string]any{"name": item.ShortDescription, "url": item.URL, "expired": false})
	}
	p := Patch{
		"description": d.LongDescription,
		"attachments": attachments,
	}
	if method, ok := d.SubmissionMethod(); ok {
		p["submissionMethod"] = string(method)
	}
	return p
}

// SubmissionMethod derives how the assignment is handed in.
func (d HostAssignmentDetail) SubmissionMethod() (SubmissionMethod, bool) {
	switch {
	case d.DropboxEnabled:
		return SubmissionDropbox, true
	case strings.EqualFold(d.LtiProviderName, "turnitin"):
		return SubmissionTurnitin, true
	case d.LtiProviderName != "":
		return SubmissionUnknownLTI, true
	default:
		return "", false
	}
}

// HostTaskCreate is the body sent to create a user task.
type HostTaskCreate struct {
	StudentID        int64  `json:"UserId"`
	ShortDescription string `json:"ShortDescription"`
	LongDescription  string `json:"LongDescription,omitempty"`
	DueDate          string `json:"DueDate"`
	AssignedDate     string `json:"AssignedDate"`
	SectionID        *int64 `json:"SectionId,omitempty"`
	TaskStatus       int    `json:"TaskStatus"`
}

// HostTaskUpdate carries only the task fields that changed.
type HostTaskUpdate struct {
	UserTaskID       int64   `json:"UserTaskId"`
	StudentID        int64   `json:"UserId"`
	ShortDescription *string `json:"ShortDescription,omitempty"`
	LongDescription  *string `json:"LongDescription,omitempty"`
	DueDate          *string `json:"DueDate,omitempty"`
	AssignedDate     *string `json:"AssignedDate,omitempty"`
	SectionID        *int64  `json:"SectionId,omitempty"`
	TaskStatus       *int    `json:"TaskStatus,omitempty"`
}

// ScrapeRecord is a loosely structured record read from the host page markup.
// Details is the pipe-delimited detail line. Task rows carry no detail link, so the
// page's task id attribute is passed through as TaskID.
type ScrapeRecord struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Details   string `json:"details"`
	ClassLink string `json:"classLink"`
	Status    string `json:"status"`
	Color     string `json:"color"`
	TaskID    int64  `json:"taskId,omitempty"`
}

// Validate rejects scraped records that cannot possibly normalize.
func (r ScrapeRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ParseError("scraped record has no title")
	}
	if strings.TrimSpace(r.Details) == "" {
		return ParseError("scraped record %q has no details", r.Title)
	}
	return nil
}

// TaskDraft is a task as entered in the task editor. ID is set when editing.
type TaskDraft struct {
	ID           *int64    `json:"id,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DueDate      time.Time `json:"dueDate"`
	AssignedDate time.Time `json:"assignedDate"`
	ClassID      *int64    `json:"classId,omitempty"`
	Status       Status    `json:"status,omitempty"`
}

// Validate checks the draft before it reaches the host.
func (d TaskDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return NewError(ErrCodeInvalid, "task title is required")
	}
	if d.DueDate.IsZero() {
		return NewError(ErrCodeInvalid, "task due date is required")
	}
	if d.Status != "" && !d.Status.allowedForTask() {
		return NewError(ErrCodeInvalid, fmt.Sprintf("task cannot be %q", d.Status))
	}
	return nil
}
