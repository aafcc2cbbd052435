package calendar

import (
	"context"

	"go.uber.org/zap"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/normalize"
)

// ApplyLocalChange applies patch to entity id before any remote call starts. A status in
// the patch must be the entity's next status and is written back to the host; a nil patch
// deletes a task. Assignments accept only a status. Remote failures are reported and keep the optimistic state. The returned
// error covers only local rejections (unknown id, invalid transition, bad patch).
func (o *Orchestrator) ApplyLocalChange(ctx context.Context, id int64, isTask bool, patch domain.Patch) (domain.Assignment, error) {
	o.mu.Lock()
	current, ok := o.entities[id]
	if !ok {
		o.mu.Unlock()
		o.log.Warn("change for unknown entity", zap.Int64("id", id))
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	if current.IsTask() != isTask {
		o.log.Warn("change intent kind mismatch", zap.Int64("id", id), zap.Bool("intentIsTask", isTask))
	}

	if patch == nil {
		if !current.IsTask() {
			o.mu.Unlock()
			return domain.Assignment{}, domain.ErrNotATask
		}
		delete(o.entities, id)
		o.countDay(current.DueDate, -1)
		o.renderer.Remove(id)
		edit := o.trackEditLocked(id, nil)
		o.mu.Unlock()

		if err := o.gateway.DeleteTask(ctx, id); err != nil {
			o.report(ActionDeleteTask, domain.WrapRemote(ActionDeleteTask, err))
		}
		o.settle(edit)
		o.persist(ctx)
		return current, nil
	}

	if !current.IsTask() {
		for key := range patch {
			if key != "status" {
				o.mu.Unlock()
				o.log.Warn("rejected assignment field change", zap.Int64("id", id), zap.String("field", key))
				return domain.Assignment{}, domain.WrapError(domain.ErrCodeInvalid, "assignments only change status: "+key, domain.ErrImmutableField)
			}
		}
	}

	status, hasStatus, err := patch.Status()
	if err != nil {
		o.mu.Unlock()
		return domain.Assignment{}, err
	}
	if hasStatus {
		next, ok := current.Status.Next(current.DueDate, o.now())
		if !ok || next != status {
			o.mu.Unlock()
			o.log.Warn("rejected status change",
				zap.Int64("id", id),
				zap.String("from", string(current.Status)),
				zap.String("to", string(status)))
			return domain.Assignment{}, domain.ErrInvalidTransition
		}
	}
	updated, err := domain.ApplyPatch(current, patch)
	if err != nil {
		o.mu.Unlock()
		return domain.Assignment{}, err
	}
	o.entities[id] = updated
	o.moveDay(current.DueDate, updated.DueDate)
	o.renderer.Update(updated.Clone())
	edit := o.trackEditLocked(id, patch)
	o.mu.Unlock()

	if hasStatus {
		o.writeStatus(ctx, updated)
	}
	o.settle(edit)
	o.persist(ctx)
	return updated.Clone(), nil
}

func (o *Orchestrator) writeStatus(ctx context.Context, a domain.Assignment) {
	code, err := a.Status.RemoteCode()
	if err != nil {
		o.log.Error("status has no remote code", zap.Int64("id", a.ID), zap.Error(err))
		return
	}
	if !a.IsTask() {
		if err := o.gateway.UpdateAssignmentStatus(ctx, a.ID, code); err != nil {
			o.report(ActionUpdateAssignmentStatus, domain.WrapRemote(ActionUpdateAssignmentStatus, err))
		}
		return
	}
	studentID, err := o.gateway.StudentID(ctx)
	if err != nil {
		o.report(ActionUpdateTaskStatus, domain.WrapRemote(ActionUpdateTaskStatus, err))
		return
	}
	body := domain.HostTaskUpdate{UserTaskID: a.ID, StudentID: studentID, TaskStatus: &code}
	if err := o.gateway.UpdateTaskStatus(ctx, body); err != nil {
		o.report(ActionUpdateTaskStatus, domain.WrapRemote(ActionUpdateTaskStatus, err))
	}
}

// CreateTask saves an editor draft. A draft with an id updates that task in place and
// sends only the fields that differ from the stored entity. A new draft is created
// remotely and the collection is then refreshed so the host's canonical fields win.
func (o *Orchestrator) CreateTask(ctx context.Context, draft domain.TaskDraft) (domain.Assignment, error) {
	candidate, err := normalize.FromDraft(draft, o.lookup(ctx))
	if err != nil {
		return domain.Assignment{}, err
	}
	if draft.ID != nil {
		return o.updateTask(ctx, draft, candidate)
	}

	studentID, err := o.gateway.StudentID(ctx)
	if err != nil {
		err = domain.WrapRemote(ActionCreateTask, err)
		o.report(ActionCreateTask, err)
		return domain.Assignment{}, err
	}
	body, err := normalize.TaskCreate(candidate, studentID)
	if err != nil {
		return domain.Assignment{}, err
	}
	id, err := o.gateway.CreateTask(ctx, body)
	if err != nil {
		err = domain.WrapRemote(ActionCreateTask, err)
		o.report(ActionCreateTask, err)
		return domain.Assignment{}, err
	}
	o.log.Info("created task", zap.Int64("id", id))

	if err := o.Refresh(ctx); err != nil {
		o.log.Warn("refresh after create failed, keeping local copy", zap.Int64("id", id), zap.Error(err))
	}
	if created, ok := o.Get(id); ok {
		return created, nil
	}

	candidate.ID = id
	if err := o.merge(ctx, o.currentClock(), []domain.Assignment{candidate}, ActionCreateTask, true); err != nil {
		return domain.Assignment{}, err
	}
	return candidate, nil
}

func (o *Orchestrator) updateTask(ctx context.Context, draft domain.TaskDraft, candidate domain.Assignment) (domain.Assignment, error) {
	o.mu.Lock()
	current, ok := o.entities[candidate.ID]
	if !ok {
		o.mu.Unlock()
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	if !current.IsTask() {
		o.mu.Unlock()
		return domain.Assignment{}, domain.ErrNotATask
	}
	// Fields the editor left blank keep their stored values.
	if draft.Status == "" {
		candidate.Status = current.Status
	}
	if draft.AssignedDate.IsZero() {
		candidate.AssignedDate = current.AssignedDate
	}
	patch := domain.Diff(current, candidate)
	if len(patch) == 0 {
		o.mu.Unlock()
		return current.Clone(), nil
	}
	updated, err := domain.ApplyPatch(current, patch)
	if err != nil {
		o.mu.Unlock()
		return domain.Assignment{}, err
	}
	o.entities[updated.ID] = updated
	o.moveDay(current.DueDate, updated.DueDate)
	o.renderer.Update(updated.Clone())
	edit := o.trackEditLocked(updated.ID, patch)
	o.mu.Unlock()

	defer o.persist(ctx)
	defer o.settle(edit)

	studentID, err := o.gateway.StudentID(ctx)
	if err != nil {
		o.report(ActionUpdateTask, domain.WrapRemote(ActionUpdateTask, err))
		return updated.Clone(), nil
	}
	body, err := normalize.TaskUpdate(updated, patch, studentID)
	if err != nil {
		o.log.Error("build task update", zap.Int64("id", updated.ID), zap.Error(err))
		return updated.Clone(), nil
	}
	if err := o.gateway.UpdateTask(ctx, body); err != nil {
		o.report(ActionUpdateTask, domain.WrapRemote(ActionUpdateTask, err))
	}
	return updated.Clone(), nil
}
