package trace

import "time"

// Kind is what an event marks.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = map[Kind]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Scope is the granularity of an event; smaller is coarser.
type Scope uint8

const (
	ScopeRun  Scope = iota + 1 // a whole analysis run
	ScopePass                  // load, plan, analyze, cache
	ScopeBody                  // one function body
)

var scopeNames = map[Scope]string{
	ScopeRun:  "run",
	ScopePass: "pass",
	ScopeBody: "body",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return "unknown"
}

// Event is one trace record. SpanID is zero for points and heartbeats;
// ParentID is zero for root spans.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	GID      uint64
	Name     string // "analyze", "body:42"
	Detail   string
	Extra    map[string]string
}
