package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Tracer receives events. Implementations must be safe for concurrent use
// since every scheduler worker emits body spans.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode selects where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // kept in memory, dumped at exit
	ModeBoth
)

var modeNames = map[StorageMode]string{
	ModeStream: "stream",
	ModeRing:   "ring",
	ModeBoth:   "both",
}

func (m StorageMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseMode parses stream, ring or both.
func ParseMode(s string) (StorageMode, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == want {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown trace mode %q, want stream, ring or both", s)
}

// Config describes the tracer built by New.
type Config struct {
	Level Level
	Mode  StorageMode
	// Format of streamed events. FormatAuto picks NDJSON for .ndjson and
	// .jsonl paths and text otherwise.
	Format Format
	// Output wins over OutputPath. An empty path or "-" means stderr.
	Output     io.Writer
	OutputPath string
	RingSize   int
}

// New builds the tracer described by cfg. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.Mode == ModeRing {
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	}
	if cfg.Mode != ModeStream && cfg.Mode != ModeBoth {
		return nil, fmt.Errorf("unknown trace mode %d", cfg.Mode)
	}

	w, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}
	stream := NewStreamTracer(w, cfg.Level, resolveFormat(cfg))
	if cfg.Mode == ModeStream {
		return stream, nil
	}
	return NewMultiTracer(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
}

func resolveFormat(cfg Config) Format {
	if cfg.Format != FormatAuto {
		return cfg.Format
	}
	switch filepath.Ext(cfg.OutputPath) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	default:
		return FormatText
	}
}

func openOutput(cfg Config) (io.Writer, error) {
	switch {
	case cfg.Output != nil:
		return cfg.Output, nil
	case cfg.OutputPath == "" || cfg.OutputPath == "-":
		return os.Stderr, nil
	}
	// #nosec G304 -- trace path is chosen by the user
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, nil
}

func isStdStream(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (f == os.Stdout || f == os.Stderr)
}
