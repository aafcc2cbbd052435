// Package notify turns reported failures into dismissible banners. Repeated failures of
// the same action inside the suppression window are logged but not shown again.
package notify

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
)

// Banner is a user-visible notification.
type Banner struct {
	ID      string    `json:"id"`
	Action  string    `json:"action"`
	Message string    `json:"message"`
	Detail  string    `json:"detail"`
	Reload  bool      `json:"reload"`
	Fatal   bool      `json:"fatal"`
	Raised  time.Time `json:"raised"`
}

// Sink displays banners.
type Sink interface {
	ShowBanner(b Banner)
	DismissBanner(id string) bool
}

// Options configures a Notifier.
type Options struct {
	Sink           Sink
	SuppressWindow time.Duration
	Logger         *zap.Logger
	Now            func() time.Time
}

// Notifier implements usecase.Reporter.
type Notifier struct {
	sink   Sink
	window time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func New(opts Options) *Notifier {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SuppressWindow <= 0 {
		opts.SuppressWindow = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Notifier{
		sink:   opts.Sink,
		window: opts.SuppressWindow,
		logger: opts.Logger.Named("notify"),
		now:    opts.Now,
		last:   make(map[string]time.Time),
	}
}

// Report logs err and raises a banner unless action already failed within the window.
// The window restarts on every failure, so a steady stream of errors shows one banner.
func (n *Notifier) Report(action string, err error) {
	if err == nil {
		return
	}
	n.logger.Error("action failed", zap.String("action", action), zap.Error(err))

	now := n.now()
	n.mu.Lock()
	prev, seen := n.last[action]
	n.last[action] = now
	n.mu.Unlock()
	if seen && now.Sub(prev) < n.window {
		n.logger.Debug("banner suppressed", zap.String("action", action))
		return
	}
	n.show(Banner{
		ID:      uuid.NewString(),
		Action:  action,
		Message: Message(action, err),
		Detail:  Detail(err),
		Raised:  now,
	})
}

// Fatal raises a banner offering a reload. It is never suppressed.
func (n *Notifier) Fatal(action string, err error) Banner {
	n.logger.Error("fatal condition", zap.String("action", action), zap.Error(err))
	b := Banner{
		ID:      uuid.NewString(),
		Action:  action,
		Message: Message(action, err),
		Detail:  Detail(err),
		Reload:  true,
		Fatal:   true,
		Raised:  n.now(),
	}
	n.show(b)
	return b
}

// Dismiss removes a banner from the sink.
func (n *Notifier) Dismiss(id string) bool {
	if n.sink == nil {
		return false
	}
	return n.sink.DismissBanner(id)
}

func (n *Notifier) show(b Banner) {
	if n.sink != nil {
		n.sink.ShowBanner(b)
	}
}

// Message is the one-line banner text.
func Message(action string, err error) string {
	if errs := multierr.Errors(err); len(errs) > 1 {
		return fmt.Sprintf("%s: %d errors, first: %v", action, len(errs), errs[0])
	}
	var dErr *domain.Error
	if errors.As(err, &dErr) && dErr.Message != "" {
		if dErr.Action != "" {
			return dErr.Action + ": " + dErr.Message
		}
		return action + ": " + dErr.Message
	}
	return action + ": " + err.Error()
}

// Detail renders the error, its cause chain and the reporting stack.
func Detail(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "error: %v\n", err)
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(&b, "cause: %v\n", cause)
	}
	if errs := multierr.Errors(err); len(errs) > 1 {
		for i, e := range errs {
			fmt.Fprintf(&b, "error[%d]: %v\n", i, e)
		}
	}
	b.WriteString("stack:\n")
	b.Write(debug.Stack())
	return b.String()
}
