package trace

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Format selects how streamed events are rendered.
type Format uint8

const (
	FormatAuto   Format = iota // decided by the output path
	FormatText                 // indented, one event per line
	FormatNDJSON               // one JSON object per line
)

// ParseFormat accepts auto, text, ndjson or json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("unknown trace format %q, want auto, text or ndjson", s)
}

// FormatEvent renders ev as one line. The text format prints the time
// elapsed since start.
func FormatEvent(ev *Event, format Format, start time.Time) []byte {
	if format == FormatNDJSON {
		return appendJSON(nil, ev)
	}
	return appendText(nil, ev, start)
}

type wireEvent struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	SpanID   uint64            `json:"span_id"`
	ParentID uint64            `json:"parent_id,omitempty"`
	GID      uint64            `json:"gid,omitempty"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

const wireTime = "2006-01-02T15:04:05.000000Z07:00"

func appendJSON(dst []byte, ev *Event) []byte {
	data, err := json.Marshal(wireEvent{
		Time:     ev.Time.Format(wireTime),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		GID:      ev.GID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Extra:    ev.Extra,
	})
	if err != nil {
		// only string fields; cannot happen
		return dst
	}
	return append(append(dst, data...), '\n')
}

var kindMarks = map[Kind]string{
	KindSpanBegin: "→ ",
	KindSpanEnd:   "← ",
	KindPoint:     "• ",
	KindHeartbeat: "♡ ",
}

// appendText renders "[elapsed] <indent><mark>name (detail) {k=v, ...}".
func appendText(dst []byte, ev *Event, start time.Time) []byte {
	var ms float64
	if !start.IsZero() {
		ms = ev.Time.Sub(start).Seconds() * 1000
	}
	dst = fmt.Appendf(dst, "[%9.3fms] ", ms)
	for range max(int(ev.Scope)-int(ScopeRun), 0) {
		dst = append(dst, "  "...)
	}
	dst = append(dst, kindMarks[ev.Kind]...)
	dst = append(dst, ev.Name...)
	if ev.Detail != "" {
		dst = append(append(append(dst, " ("...), ev.Detail...), ')')
	}
	if len(ev.Extra) > 0 {
		dst = append(dst, " {"...)
		for i, k := range slices.Sorted(maps.Keys(ev.Extra)) {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = append(append(append(dst, k...), '='), ev.Extra[k]...)
		}
		dst = append(dst, '}')
	}
	return append(dst, '\n')
}
