package vm

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
)

// Profiler tracks per-opcode execution counts and cumulative dispatch time.
// Counters are
// indexed by opcode byte directly rather than through a map, since the
// opcode space is small and fixed.
type Profiler struct {
	counts  [256]uint64
	nanos   [256]int64
	enabled bool
	log     commonlog.Logger
}

// NewProfiler creates a disabled-by-default profiler; call Enable to start
// recording. Disabled profilers add no overhead to the dispatch loop beyond
// the Enabled() checks runFrame makes before and after each instruction.
func NewProfiler() *Profiler {
	return &Profiler{log: commonlog.GetLogger("regvm.profiler")}
}

func (p *Profiler) Enable()  { p.enabled = true }
func (p *Profiler) Disable() { p.enabled = false }
func (p *Profiler) Enabled() bool {
	return p != nil && p.enabled
}

// record adds one execution of op taking the given duration to the running
// totals. Safe for concurrent use (though the evaluator itself is single-
// threaded under the host GIL).
func (p *Profiler) record(op Opcode, d time.Duration) {
	atomic.AddUint64(&p.counts[byte(op)], 1)
	atomic.AddInt64(&p.nanos[byte(op)], int64(d))
}

// OpcodeStat is one row of Profiler.Stats' output.
type OpcodeStat struct {
	Op          Opcode
	Count       uint64
	TotalNanos  int64
}

// Stats returns per-opcode counters for every opcode with at least one
// recorded execution.
func (p *Profiler) Stats() []OpcodeStat {
	var out []OpcodeStat
	for i := 0; i < 256; i++ {
		c := atomic.LoadUint64(&p.counts[i])
		if c == 0 {
			continue
		}
		out = append(out, OpcodeStat{
			Op:         Opcode(i),
			Count:      c,
			TotalNanos: atomic.LoadInt64(&p.nanos[i]),
		})
	}
	return out
}

// DumpStatus logs one line per opcode with at least one recorded execution,
// in opcode order, mirroring the teacher's habit of reporting profiling
// data through commonlog rather than directly to stdout.
func (p *Profiler) DumpStatus() {
	stats := p.Stats()
	for _, s := range stats {
		p.log.Info(fmt.Sprintf("opcode=%s count=%d total_ns=%d", s.Op, s.Count, s.TotalNanos))
	}
}

// Reset clears all counters.
func (p *Profiler) Reset() {
	for i := range p.counts {
		atomic.StoreUint64(&p.counts[i], 0)
		atomic.StoreInt64(&p.nanos[i], 0)
	}
}
