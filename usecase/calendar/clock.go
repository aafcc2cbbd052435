package calendar

import "github.com/gavinmorrow/hunter-extension-sub000/domain"

// The logical clock orders local edits against remote fetches. An edit stays pending
// until its remote call settles; a merge whose fetch began before that point cannot
// reflect the edit, so the edit is re-applied on top of the merged entity.

func (o *Orchestrator) currentClock() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clock++
	return o.clock
}

func (o *Orchestrator) beginFetch() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clock++
	o.fetches[o.clock]++
	return o.clock
}

func (o *Orchestrator) endFetch(started uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches[started]--
	if o.fetches[started] <= 0 {
		delete(o.fetches, started)
	}
	o.pruneLocked()
}

func (o *Orchestrator) trackEditLocked(id int64, patch domain.Patch) *pendingEdit {
	e := &pendingEdit{id: id, patch: patch}
	o.pending = append(o.pending, e)
	return e
}

func (o *Orchestrator) settle(e *pendingEdit) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clock++
	e.settled = o.clock
	o.pruneLocked()
}

// pruneLocked drops settled edits that every in-flight fetch started after.
func (o *Orchestrator) pruneLocked() {
	var oldest uint64
	for started := range o.fetches {
		if oldest == 0 || started < oldest {
			oldest = started
		}
	}
	kept := o.pending[:0]
	for _, e := range o.pending {
		if e.settled != 0 && (oldest == 0 || e.settled < oldest) {
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(o.pending); i++ {
		o.pending[i] = nil
	}
	o.pending = kept
}

// reapplyPendingLocked layers edits the fetch that started at fetchedAt cannot know about.
func (o *Orchestrator) reapplyPendingLocked(next map[int64]domain.Assignment, fetchedAt uint64) {
	for _, e := range o.pending {
		if e.settled != 0 && e.settled < fetchedAt {
			continue
		}
		if e.patch == nil {
			delete(next, e.id)
			continue
		}
		current, ok := next[e.id]
		if !ok {
			continue
		}
		updated, err := domain.ApplyPatch(current, e.patch)
		if err != nil {
			o.log.Sugar().Warnw("pending edit no longer applies", "id", e.id, "error", err)
			continue
		}
		next[e.id] = updated
	}
}
