// Package normalize turns the host's raw record shapes into domain.Assignment values.
// The entity kind is decided here once and never re-inferred downstream.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/hostdate"
)

// TaskType is the type label the host gives user tasks.
const TaskType = "My tasks"

// Lookup carries the session-scoped class maps used to fill colour and class names.
type Lookup struct {
	Colors   map[int64]string
	Classes  map[int64]string
	Location *time.Location
}

func (l Lookup) location() *time.Location {
	if l.Location == nil {
		return time.Local
	}
	return l.Location
}

func (l Lookup) color(sectionID *int64) string {
	if sectionID == nil {
		return ""
	}
	return l.Colors[*sectionID]
}

func (l Lookup) classIDByName(name string) *int64 {
	for id, n := range l.Classes {
		if strings.EqualFold(n, name) {
			id := id
			return &id
		}
	}
	return nil
}

// FromHost normalizes one record of the bulk listing. bucket is the listing bucket the
// record came from; Missing and Overdue buckets override the decoded status.
func FromHost(rec domain.HostAssignment, bucket string, lk Lookup) (domain.Assignment, error) {
	if err := rec.Validate(); err != nil {
		return domain.Assignment{}, err
	}
	loc := lk.location()
	due, err := hostdate.ParseIn(rec.DateDue, loc)
	if err != nil {
		return domain.Assignment{}, domain.WrapError(domain.ErrCodeParse, "due date", err)
	}
	assigned, err := hostdate.ParseIn(rec.DateAssigned, loc)
	if err != nil {
		return domain.Assignment{}, domain.WrapError(domain.ErrCodeParse, "assigned date", err)
	}
	status, err := hostStatus(rec, bucket)
	if err != nil {
		return domain.Assignment{}, err
	}

	a := domain.Assignment{
		Title:        strings.TrimSpace(rec.ShortDescription),
		Status:       status,
		DueDate:      due,
		AssignedDate: assigned,
		Type:         rec.AssignmentType,
		Color:        lk.color(rec.SectionID),
	}
	if rec.SectionID != nil {
		name := rec.GroupName
		if name == "" {
			name = lk.Classes[*rec.SectionID]
		}
		id := *rec.SectionID
		a.Class = &domain.Class{Name: name, ID: &id, Link: ClassLink(id)}
	}

	if rec.IsTask() {
		a.Kind = domain.KindTask
		a.ID = rec.UserTaskID
		a.Description = rec.LongDescription
		if a.Type == "" {
			a.Type = TaskType
		}
	} else {
		a.Kind = domain.KindAssignment
		a.ID = rec.AssignmentIndexID
		link := AssignmentLink(rec.AssignmentID, rec.AssignmentIndexID)
		a.Link = &link
		a.MaxPoints = rec.MaxPoints
		a.IsExtraCredit = rec.ExtraCredit
	}

	if err := a.Validate(); err != nil {
		return domain.Assignment{}, err
	}
	return a, nil
}

func hostStatus(rec domain.HostAssignment, bucket string) (domain.Status, error) {
	if rec.HasGrade && !rec.IsTask() {
		return domain.StatusGraded, nil
	}
	status, err := domain.StatusFromRemoteCode(*rec.AssignmentStatusType)
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeParse, fmt.Sprintf("record %q", rec.ShortDescription), err)
	}
	incomplete := status == domain.StatusToDo || status == domain.StatusInProgress || status == domain.StatusOverdue
	switch {
	case bucket == domain.BucketMissing && incomplete && !rec.IsTask():
		return domain.StatusMissing, nil
	case (bucket == domain.BucketMissing || bucket == domain.BucketOverdue) && incomplete:
		return domain.StatusOverdue, nil
	}
	return status, nil
}

// FromHostBatch normalizes every record, skipping and collecting the ones that fail.
func FromHostBatch(records []domain.BucketedRecord, lk Lookup) ([]domain.Assignment, error) {
	out := make([]domain.Assignment, 0, len(records))
	var errs error
	for _, r := range records {
		a, err := FromHost(r.Record, r.Bucket, lk)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, a)
	}
	return out, errs
}

// FromScrape normalizes a record read from the page markup.
func FromScrape(rec domain.ScrapeRecord, lk Lookup) (domain.Assignment, error) {
	if err := rec.Validate(); err != nil {
		return domain.Assignment{}, err
	}
	d, err := parseDetails(rec.Details, lk.location())
	if err != nil {
		return domain.Assignment{}, err
	}
	status, err := domain.ParseStatus(strings.TrimSpace(rec.Status))
	if err != nil {
		return domain.Assignment{}, domain.WrapError(domain.ErrCodeParse, fmt.Sprintf("record %q", rec.Title), err)
	}

	a := domain.Assignment{
		Title:         strings.TrimSpace(rec.Title),
		Status:        status,
		DueDate:       d.due,
		AssignedDate:  d.assigned,
		MaxPoints:     d.maxPoints,
		IsExtraCredit: d.isExtraCredit,
		Type:          d.kind,
		Color:         rec.Color,
	}

	classID := ClassIDFromLink(rec.ClassLink)
	if classID == nil && d.className != "" {
		classID = lk.classIDByName(d.className)
	}
	if a.Color == "" {
		a.Color = lk.color(classID)
	}

	if d.isTask {
		a.Kind = domain.KindTask
		if rec.TaskID <= 0 {
			return domain.Assignment{}, domain.ParseError("task %q has no id", rec.Title)
		}
		a.ID = rec.TaskID
		if classID != nil {
			a.Class = &domain.Class{Name: d.className, ID: classID, Link: ClassLink(*classID)}
		}
	} else {
		a.Kind = domain.KindAssignment
		id := AssignmentIDFromLink(rec.Link)
		if id == nil {
			return domain.Assignment{}, domain.ParseError("assignment %q has no id in link %q", rec.Title, rec.Link)
		}
		a.ID = *id
		link := rec.Link
		a.Link = &link
		if d.className != "" || classID != nil {
			a.Class = &domain.Class{Name: d.className, ID: classID, Link: rec.ClassLink}
		}
	}

	if err := a.Validate(); err != nil {
		return domain.Assignment{}, err
	}
	return a, nil
}

// FromScrapeBatch normalizes scraped records, skipping and collecting the ones that fail.
func FromScrapeBatch(records []domain.ScrapeRecord, lk Lookup) ([]domain.Assignment, error) {
	out := make([]domain.Assignment, 0, len(records))
	var errs error
	for _, r := range records {
		a, err := FromScrape(r, lk)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, a)
	}
	return out, errs
}

// FromDraft builds the optimistic task entity for an editor draft. The id is zero for
// drafts that have not been created remotely yet.
func FromDraft(d domain.TaskDraft, lk Lookup) (domain.Assignment, error) {
	if err := d.Validate(); err != nil {
		return domain.Assignment{}, err
	}
	status := d.Status
	if status == "" {
		status = domain.StatusToDo
	}
	assigned := d.AssignedDate
	if assigned.IsZero() {
		assigned = hostdate.Midnight(d.DueDate)
	}
	description := d.Description
	a := domain.Assignment{
		Kind:         domain.KindTask,
		Title:        strings.TrimSpace(d.Title),
		Description:  &description,
		Status:       status,
		DueDate:      d.DueDate,
		AssignedDate: assigned,
		Type:         TaskType,
		Color:        lk.color(d.ClassID),
	}
	if d.ID != nil {
		a.ID = *d.ID
	}
	if d.ClassID != nil {
		id := *d.ClassID
		a.Class = &domain.Class{Name: lk.Classes[id], ID: &id, Link: ClassLink(id)}
	}
	return a, a.Validate()
}

// TaskCreate builds the host create body for a task entity.
func TaskCreate(a domain.Assignment, studentID int64) (domain.HostTaskCreate, error) {
	code, err := a.Status.RemoteCode()
	if err != nil {
		return domain.HostTaskCreate{}, err
	}
	body := domain.HostTaskCreate{
		StudentID:        studentID,
		ShortDescription: a.Title,
		DueDate:          hostdate.Format(a.DueDate),
		AssignedDate:     hostdate.Format(a.AssignedDate),
		TaskStatus:       code,
	}
	if a.Description != nil {
		body.LongDescription = *a.Description
	}
	if a.Class != nil {
		body.SectionID = a.Class.ID
	}
	return body, nil
}

// TaskUpdate builds the host update body carrying only the keys present in patch,
// with values taken from the already patched entity.
func TaskUpdate(updated domain.Assignment, patch domain.Patch, studentID int64) (domain.HostTaskUpdate, error) {
	body := domain.HostTaskUpdate{UserTaskID: updated.ID, StudentID: studentID}
	if patch.Has("title") {
		body.ShortDescription = &updated.Title
	}
	if patch.Has("description") && updated.Description != nil {
		body.LongDescription = updated.Description
	}
	if patch.Has("dueDate") {
		due := hostdate.Format(updated.DueDate)
		body.DueDate = &due
	}
	if patch.Has("assignedDate") {
		assigned := hostdate.Format(updated.AssignedDate)
		body.AssignedDate = &assigned
	}
	if patch.Has("class") && updated.Class != nil {
		body.SectionID = updated.Class.ID
	}
	if patch.Has("status") {
		code, err := updated.Status.RemoteCode()
		if err != nil {
			return domain.HostTaskUpdate{}, err
		}
		body.TaskStatus = &code
	}
	return body, nil
}
