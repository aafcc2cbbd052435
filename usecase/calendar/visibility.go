package calendar

import "time"

// countDay adjusts the live count for the weekday t falls on and toggles the column
// when the count crosses zero. Counts never go below zero.
func (o *Orchestrator) countDay(t time.Time, delta int) {
	day := t.In(o.loc).Weekday()
	before := o.dayCounts[day]
	after := before + delta
	if after < 0 {
		after = 0
	}
	o.dayCounts[day] = after
	if !o.hidden[day] {
		return
	}
	switch {
	case before == 0 && after > 0:
		o.renderer.SetColumnVisible(day, true)
	case before > 0 && after == 0:
		o.renderer.SetColumnVisible(day, false)
	}
}

func (o *Orchestrator) moveDay(from, to time.Time) {
	if from.In(o.loc).Weekday() == to.In(o.loc).Weekday() {
		return
	}
	o.countDay(from, -1)
	o.countDay(to, 1)
}

// SetHiddenDays changes which weekdays are shown only while occupied and pushes the
// resulting visibility of every weekday to the renderer.
func (o *Orchestrator) SetHiddenDays(days []time.Weekday) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hidden = make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		o.hidden[d] = true
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		o.renderer.SetColumnVisible(d, !o.hidden[d] || o.dayCounts[d] > 0)
	}
}

// DayCount returns the number of entities due on day.
func (o *Orchestrator) DayCount(day time.Weekday) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dayCounts[day]
}
