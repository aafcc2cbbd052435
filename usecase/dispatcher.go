package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
)

// Intent names raised by the presentation layer.
const (
	IntentChangeEntity = "change-entity"
	IntentCreateTask   = "create-task"
)

// Intent is a presentation-layer event. It is handled exactly once by the dispatcher.
type Intent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ChangeEntity asks for a patch to be applied. An explicit null patch deletes the task;
// a payload without a patch key is rejected.
type ChangeEntity struct {
	ID     int64        `json:"id"`
	IsTask bool         `json:"isTask"`
	Patch  domain.Patch `json:"patch"`
}

func (c *ChangeEntity) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     int64           `json:"id"`
		IsTask bool            `json:"isTask"`
		Patch  json.RawMessage `json:"patch"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Patch) == 0 {
		return domain.ErrInvalidPayload
	}
	c.ID = raw.ID
	c.IsTask = raw.IsTask
	c.Patch = nil
	if string(raw.Patch) == "null" {
		return nil
	}
	return json.Unmarshal(raw.Patch, &c.Patch)
}

// CreateTask carries a task editor draft. Drafts with an id update the existing task.
type CreateTask struct {
	Fields domain.TaskDraft `json:"fields"`
}

type CommandHandler func(ctx context.Context, payload json.RawMessage) (any, error)
type QueryHandler func(ctx context.Context, params map[string]string) (any, error)

type Dispatcher struct {
	cmdHandlers map[string]CommandHandler
	qryHandlers map[string]QueryHandler
	mu          sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		cmdHandlers: make(map[string]CommandHandler),
		qryHandlers: make(map[string]QueryHandler),
	}
}

func (d *Dispatcher) RegisterCommand(name string, handler CommandHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmdHandlers[name] = handler
}

func (d *Dispatcher) RegisterQuery(name string, handler QueryHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.qryHandlers[name] = handler
}

// Dispatch routes an intent to its command handler. Unknown intent types are rejected
// with domain.ErrUnknownIntent.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent) (any, error) {
	return d.ExecuteCommand(ctx, intent.Type, intent.Payload)
}

func (d *Dispatcher) ExecuteCommand(ctx context.Context, name string, payload json.RawMessage) (any, error) {
	d.mu.RLock()
	handler, ok := d.cmdHandlers[name]
	d.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrCodeInvalid, fmt.Sprintf("command %q", name), domain.ErrUnknownIntent)
	}
	return handler(ctx, payload)
}

func (d *Dispatcher) ExecuteQuery(ctx context.Context, name string, params map[string]string) (any, error) {
	d.mu.RLock()
	handler, ok := d.qryHandlers[name]
	d.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrCodeNotFound, fmt.Sprintf("query %q", name), domain.ErrUnknownIntent)
	}
	return handler(ctx, params)
}

// Decode unmarshals an intent payload, mapping failures to domain.ErrInvalidPayload.
func Decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, domain.ErrInvalidPayload
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, domain.WrapError(domain.ErrCodeInvalid, "decode payload", err)
	}
	return v, nil
}
