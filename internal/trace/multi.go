package trace

import "errors"

// MultiTracer copies every event to each of its tracers. The ring and
// stream tracers of ModeBoth are joined this way.
type MultiTracer struct {
	level   Level
	tracers []Tracer
}

func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{level: level, tracers: tracers}
}

func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		dup := *ev
		tr.Emit(&dup)
	}
}

func (t *MultiTracer) Flush() error {
	return t.each(Tracer.Flush)
}

func (t *MultiTracer) Close() error {
	return t.each(Tracer.Close)
}

func (t *MultiTracer) each(op func(Tracer) error) error {
	var errs []error
	for _, tr := range t.tracers {
		if err := op(tr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Level() Level  { return t.level }
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }
