package appointment

import (
	"fmt"
	"time"
)

const clockLayout = "15:04"

// Schedule is the clinic's daily grid of bookable start times.
type Schedule struct {
	start, end time.Time
	interval   time.Duration
}

func NewSchedule(start, end string, interval time.Duration) (Schedule, error) {
	s, err := time.Parse(clockLayout, start)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid slot start %q: %w", start, err)
	}
	e, err := time.Parse(clockLayout, end)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid slot end %q: %w", end, err)
	}
	if !e.After(s) {
		return Schedule{}, fmt.Errorf("slot end %s must be after start %s", end, start)
	}
	if interval <= 0 {
		return Schedule{}, fmt.Errorf("slot interval must be positive, got %s", interval)
	}
	return Schedule{start: s, end: e, interval: interval}, nil
}

// Times lists every slot start whose full interval fits before the end.
func (s Schedule) Times() []string {
	var out []string
	for t := s.start; !t.Add(s.interval).After(s.end); t = t.Add(s.interval) {
		out = append(out, t.Format(clockLayout))
	}
	return out
}

// Slot is one grid entry for a doctor's day.
type Slot struct {
	Time   string `json:"time"`
	Booked bool   `json:"booked"`
}

func (s Schedule) mark(booked []string) []Slot {
	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[b] = true
	}
	times := s.Times()
	out := make([]Slot, 0, len(times))
	for _, t := range times {
		out = append(out, Slot{Time: t, Booked: taken[t]})
	}
	return out
}
