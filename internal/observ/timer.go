// Package observ measures the stages of an analysis run.
package observ

import (
	"sync"
	"time"
)

// Phase is one measured stage.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer records run stages in the order they start.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

func NewTimer() *Timer { return &Timer{} }

// Begin opens a stage and returns the handle End expects.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the stage opened by Begin. Unknown handles are ignored.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	t.phases[idx].Dur = time.Since(t.phases[idx].Start)
	t.phases[idx].Note = note
}

// Measure times fn as one stage; fn returns the stage note.
func (t *Timer) Measure(name string, fn func() string) {
	idx := t.Begin(name)
	t.End(idx, fn())
}

// PhaseReport is a Phase in milliseconds.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report is the JSON-ready summary of a Timer.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	var rep Report
	var total time.Duration
	for _, p := range t.phases {
		total += p.Dur
		rep.Phases = append(rep.Phases, PhaseReport{Name: p.Name, DurationMS: millis(p.Dur), Note: p.Note})
	}
	rep.TotalMS = millis(total)
	return rep
}

func millis(d time.Duration) float64 {
	return d.Seconds() * 1000
}
