package trace

import (
	"fmt"
	"strings"
)

// Level is the tracing verbosity. Each level admits the scopes of the ones
// below it.
type Level uint8

const (
	LevelOff    Level = iota
	LevelPhase        // run and pass spans
	LevelDetail       // plus one span per body
	LevelDebug        // everything
)

var levelNames = [...]string{"off", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel parses a level name case-insensitively; "" means off.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("unknown trace level %q, want off, phase, detail or debug", s)
}

// ShouldEmit reports whether events of scope pass the level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelOff:
		return false
	case LevelPhase:
		return scope <= ScopePass
	case LevelDetail:
		return scope <= ScopeBody
	default:
		return true
	}
}
