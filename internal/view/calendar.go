// Package view is the in-memory calendar view model. It receives render calls from the
// orchestrator and banners from the notifier, and serves them to browser clients as a
// week grid plus a sequenced event log.
package view

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/services/notify"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/hostdate"
)

// EventKind names a view mutation.
type EventKind string

const (
	EventInsert  EventKind = "insert"
	EventUpdate  EventKind = "update"
	EventRemove  EventKind = "remove"
	EventColumn  EventKind = "column"
	EventBanner  EventKind = "banner"
	EventDismiss EventKind = "dismiss"
)

// Event is one entry of the event log.
type Event struct {
	Seq      uint64             `json:"seq"`
	Kind     EventKind          `json:"kind"`
	ID       int64              `json:"id,omitempty"`
	Entity   *domain.Assignment `json:"entity,omitempty"`
	Day      string             `json:"day,omitempty"`
	Visible  *bool              `json:"visible,omitempty"`
	Banner   *notify.Banner     `json:"banner,omitempty"`
	BannerID string             `json:"bannerId,omitempty"`
}

// Page is a slice of the event log. Reset means the requested position has been
// evicted and the client must reload the full state.
type Page struct {
	Events []Event `json:"events"`
	Next   uint64  `json:"next"`
	Reset  bool    `json:"reset"`
}

// Options configures a Calendar.
type Options struct {
	WeekStart time.Weekday
	Location  *time.Location
	// Buffer bounds the event log.
	Buffer int
}

// Calendar implements usecase.ViewRenderer and notify.Sink.
type Calendar struct {
	mu        sync.RWMutex
	entities  map[int64]domain.Assignment
	hidden    [7]bool
	banners   []notify.Banner
	colors    map[int64]string
	weekStart time.Weekday
	loc       *time.Location

	events  []Event
	buffer  int
	seq     uint64
	changed chan struct{}
}

func New(opts Options) *Calendar {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 1024
	}
	return &Calendar{
		entities:  make(map[int64]domain.Assignment),
		weekStart: opts.WeekStart,
		loc:       opts.Location,
		buffer:    opts.Buffer,
		changed:   make(chan struct{}),
	}
}

func (c *Calendar) Insert(a domain.Assignment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities[a.ID] = a.Clone()
	c.appendLocked(Event{Kind: EventInsert, ID: a.ID, Entity: c.decorated(a)})
}

func (c *Calendar) Update(a domain.Assignment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities[a.ID] = a.Clone()
	c.appendLocked(Event{Kind: EventUpdate, ID: a.ID, Entity: c.decorated(a)})
}

func (c *Calendar) Remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entities[id]; !ok {
		return
	}
	delete(c.entities, id)
	c.appendLocked(Event{Kind: EventRemove, ID: id})
}

func (c *Calendar) SetColumnVisible(day time.Weekday, visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hidden[day] == !visible {
		return
	}
	c.hidden[day] = !visible
	c.appendLocked(Event{Kind: EventColumn, Day: day.String(), Visible: &visible})
}

// ColumnVisible reports whether the weekday column is shown.
func (c *Calendar) ColumnVisible(day time.Weekday) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.hidden[day]
}

func (c *Calendar) ShowBanner(b notify.Banner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banners = append(c.banners, b)
	c.appendLocked(Event{Kind: EventBanner, Banner: &b})
}

func (c *Calendar) DismissBanner(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, b := range c.banners {
		if b.ID == id {
			c.banners = append(c.banners[:i], c.banners[i+1:]...)
			c.appendLocked(Event{Kind: EventDismiss, BannerID: id})
			return true
		}
	}
	return false
}

// Banners returns the banners currently shown, oldest first.
func (c *Calendar) Banners() []notify.Banner {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]notify.Banner(nil), c.banners...)
}

// SetWeekStart changes the first column of the week grid.
func (c *Calendar) SetWeekStart(day time.Weekday) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weekStart = day
}

// SetColorOverrides replaces the per-class colour overrides.
func (c *Calendar) SetColorOverrides(colors map[int64]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors = make(map[int64]string, len(colors))
	for k, v := range colors {
		c.colors[k] = v
	}
}

// Len returns the number of rendered entities.
func (c *Calendar) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}

// Entities returns every rendered entity ordered by due date, then id.
func (c *Calendar) Entities() []domain.Assignment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Assignment, 0, len(c.entities))
	for _, a := range c.entities {
		out = append(out, *c.decorated(a))
	}
	sortByDue(out)
	return out
}

func (c *Calendar) decorated(a domain.Assignment) *domain.Assignment {
	out := a.Clone()
	if out.Class != nil && out.Class.ID != nil {
		if color, ok := c.colors[*out.Class.ID]; ok {
			out.Color = color
		}
	}
	return &out
}

func (c *Calendar) appendLocked(e Event) {
	c.seq++
	e.Seq = c.seq
	c.events = append(c.events, e)
	if over := len(c.events) - c.buffer; over > 0 {
		c.events = append(c.events[:0:0], c.events[over:]...)
	}
	close(c.changed)
	c.changed = make(chan struct{})
}

// Since returns the events after seq, waiting until at least one exists or ctx ends.
func (c *Calendar) Since(ctx context.Context, seq uint64) Page {
	for {
		c.mu.RLock()
		page, ok := c.pageLocked(seq)
		wait := c.changed
		c.mu.RUnlock()
		if ok {
			return page
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return page
		}
	}
}

func (c *Calendar) pageLocked(seq uint64) (Page, bool) {
	page := Page{Next: c.seq}
	if seq > c.seq {
		page.Reset = true
		return page, true
	}
	if len(c.events) > 0 && seq+1 < c.events[0].Seq {
		page.Reset = true
		return page, true
	}
	for _, e := range c.events {
		if e.Seq > seq {
			page.Events = append(page.Events, e)
		}
	}
	return page, len(page.Events) > 0
}

func sortByDue(out []domain.Assignment) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
}

// Day is one column of the week grid.
type Day struct {
	Date     string              `json:"date"`
	Weekday  string              `json:"weekday"`
	Visible  bool                `json:"visible"`
	Entities []domain.Assignment `json:"entities"`
}

// Week is the grid for the seven days starting at Start.
type Week struct {
	Start string `json:"start"`
	Days  []Day  `json:"days"`
}

// Week lays out the week containing t. Entities sit in the column of their due date.
func (c *Calendar) Week(t time.Time) Week {
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := hostdate.WeekStart(t.In(c.loc), c.weekStart)
	week := Week{Start: hostdate.ToInputValue(start), Days: make([]Day, 7)}
	for i := range week.Days {
		date := hostdate.AddDays(start, i)
		week.Days[i] = Day{
			Date:     hostdate.ToInputValue(date),
			Weekday:  date.Weekday().String(),
			Visible:  !c.hidden[date.Weekday()],
			Entities: []domain.Assignment{},
		}
	}
	for _, a := range c.entities {
		due := a.DueDate.In(c.loc)
		for i := range week.Days {
			if hostdate.SameDay(due, hostdate.AddDays(start, i)) {
				week.Days[i].Entities = append(week.Days[i].Entities, *c.decorated(a))
				break
			}
		}
	}
	for i := range week.Days {
		sortByDue(week.Days[i].Entities)
	}
	return week
}
