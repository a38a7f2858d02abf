package driver

import "time"

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a run phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

func (s PhaseStatus) String() string {
	if s == PhaseStart {
		return "start"
	}
	return "end"
}

// PhaseEvent describes a phase boundary of Run: load, plan, analyze, cache.
type PhaseEvent struct {
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration // zero for PhaseStart
}

// PhaseObserver receives phase events emitted during Run.
type PhaseObserver func(PhaseEvent)

func (o PhaseObserver) notify(ev PhaseEvent) {
	if o != nil {
		o(ev)
	}
}
