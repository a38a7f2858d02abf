// Package trace records spans of an analysis run so slow or stuck runs can
// be diagnosed.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	rustowl analyze --trace=- --trace-level=detail facts.json
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes every event to a file or stderr as it happens
//   - RingTracer: keeps the last N events in memory for a dump on failure
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// LevelPhase emits run and pass spans, LevelDetail adds one span per analyzed
// body, LevelDebug emits everything.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePass, "analyze")
//	defer span.End("")
package trace
