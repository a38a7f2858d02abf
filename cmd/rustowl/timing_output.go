package main

import (
	"fmt"
	"io"

	"github.com/MuntasirSZN/rustowl/internal/driver"
)

func printTimings(out io.Writer, rep *driver.Report) {
	if out == nil || rep == nil {
		return
	}
	for _, p := range rep.Timings.Phases {
		fmt.Fprintf(out, "%-8s %8.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			fmt.Fprintf(out, "  %s", p.Note)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "%-8s %8.2f ms  %d bodies, %d analyzed, %d cached, %d failed\n",
		"total", rep.Timings.TotalMS, rep.Bodies, rep.Analyzed, rep.CacheHits, rep.Failed)
	if s := rep.CacheStats; s.Hits+s.Misses > 0 {
		fmt.Fprintf(out, "cache    %d hits, %d misses, %d evictions, hit rate %.1f%%\n",
			s.Hits, s.Misses, s.Evictions, s.HitRate()*100)
	}
}
