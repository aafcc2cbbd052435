package calendar

import (
	"go.uber.org/zap"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
)

// enrich fetches lazy details for id in the background. It is a no-op for tasks,
// for described entities and while a fetch for id is already in flight.
func (o *Orchestrator) enrich(id int64) {
	o.mu.Lock()
	a, ok := o.entities[id]
	_, inFlight := o.enriching[id]
	if !ok || a.IsTask() || a.Described() || inFlight {
		o.mu.Unlock()
		return
	}
	o.enriching[id] = struct{}{}
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			delete(o.enriching, id)
			o.mu.Unlock()
		}()

		if err := o.sem.Acquire(o.ctx, 1); err != nil {
			return
		}
		detail, err := o.gateway.FetchAssignmentDetail(o.ctx, id)
		o.sem.Release(1)
		if err != nil {
			if o.ctx.Err() == nil {
				o.report(ActionFetchDetail, domain.WrapRemote(ActionFetchDetail, err))
			}
			return
		}
		o.applyDetail(id, detail)
	}()
}

// applyDetail patches lazy fields onto id if it is still present and still undescribed.
func (o *Orchestrator) applyDetail(id int64, detail domain.HostAssignmentDetail) {
	o.mu.Lock()
	defer o.mu.Unlock()
	current, ok := o.entities[id]
	if !ok || current.Described() {
		o.log.Debug("discarding stale detail", zap.Int64("id", id), zap.Bool("present", ok))
		return
	}
	updated, err := domain.ApplyPatch(current, detail.Patch())
	if err != nil {
		o.log.Warn("detail patch rejected", zap.Int64("id", id), zap.Error(err))
		return
	}
	o.entities[id] = updated
	o.renderer.Update(updated.Clone())
}
