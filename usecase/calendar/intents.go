package calendar

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/usecase"
)

// Query names served by the orchestrator.
const (
	QueryAssignments = "assignments"
	QueryAssignment  = "assignment"
)

// Register wires the presentation intents and read queries into d.
func (o *Orchestrator) Register(d *usecase.Dispatcher) {
	d.RegisterCommand(usecase.IntentChangeEntity, func(ctx context.Context, payload json.RawMessage) (any, error) {
		change, err := usecase.Decode[usecase.ChangeEntity](payload)
		if err != nil {
			return nil, err
		}
		a, err := o.ApplyLocalChange(ctx, change.ID, change.IsTask, change.Patch)
		if err != nil {
			return nil, err
		}
		if change.Patch == nil {
			return nil, nil
		}
		return a, nil
	})
	d.RegisterCommand(usecase.IntentCreateTask, func(ctx context.Context, payload json.RawMessage) (any, error) {
		create, err := usecase.Decode[usecase.CreateTask](payload)
		if err != nil {
			return nil, err
		}
		return o.CreateTask(ctx, create.Fields)
	})
	d.RegisterQuery(QueryAssignments, func(ctx context.Context, _ map[string]string) (any, error) {
		return o.Snapshot(), nil
	})
	d.RegisterQuery(QueryAssignment, func(ctx context.Context, params map[string]string) (any, error) {
		id, err := strconv.ParseInt(params["id"], 10, 64)
		if err != nil {
			return nil, domain.ErrInvalidPayload
		}
		a, ok := o.Get(id)
		if !ok {
			return nil, domain.ErrAssignmentNotFound
		}
		return a, nil
	})
}
