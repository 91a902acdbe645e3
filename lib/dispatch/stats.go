package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/CyanoKobalamyne/msgstore/lib/store"
)

// --------------------------------------------------------------------------
// Run Report
// --------------------------------------------------------------------------

// Report aggregates the outcomes and timing of one benchmark run.
type Report struct {
	Elapsed time.Duration

	PostsIssued   int
	PostsFailed   int
	FetchesIssued int
	FetchesFailed int

	// MessagesFetched counts messages copied out by committed fetches.
	MessagesFetched int

	// Mean per-stage latencies as observed inside the units.
	PostPrepareAvg  time.Duration
	PostExecuteAvg  time.Duration
	FetchPrepareAvg time.Duration
	FetchExecuteAvg time.Duration

	// P99 per-stage latencies.
	PostPrepareP99  time.Duration
	PostExecuteP99  time.Duration
	FetchPrepareP99 time.Duration
	FetchExecuteP99 time.Duration

	// ChannelFill summarizes how evenly posts landed across channels.
	ChannelFill DistributionStats
}

// buildReport collects counters, timers and the channel fill distribution
// after the drain has completed.
func (d *Dispatcher) buildReport(elapsed time.Duration, postsFailed, fetchesFailed, fetched int) *Report {
	posts, fetches := d.cfg.split()

	fill := make([]float64, d.cfg.Channels)
	for c := 0; c < d.cfg.Channels; c++ {
		fill[c] = float64(d.store.NextMsgID(store.ChannelID(c)))
	}

	pp, pe, fp, fe := d.engine.StageTimers()
	return &Report{
		Elapsed:         elapsed,
		PostsIssued:     posts,
		PostsFailed:     postsFailed,
		FetchesIssued:   fetches,
		FetchesFailed:   fetchesFailed,
		MessagesFetched: fetched,
		PostPrepareAvg:  time.Duration(pp.Mean()),
		PostExecuteAvg:  time.Duration(pe.Mean()),
		FetchPrepareAvg: time.Duration(fp.Mean()),
		FetchExecuteAvg: time.Duration(fe.Mean()),
		PostPrepareP99:  time.Duration(pp.Percentile(0.99)),
		PostExecuteP99:  time.Duration(pe.Percentile(0.99)),
		FetchPrepareP99: time.Duration(fp.Percentile(0.99)),
		FetchExecuteP99: time.Duration(fe.Percentile(0.99)),
		ChannelFill:     NewDistributionStats(fill),
	}
}

// String renders the report in the layout of the reference tool, plus the
// per-stage and distribution lines.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Time: %d ns\n", r.Elapsed.Nanoseconds())
	fmt.Fprintf(&b, "Fetch: %d/%d failed, %d messages\n",
		r.FetchesFailed, r.FetchesIssued, r.MessagesFetched)
	fmt.Fprintf(&b, "  prepare %v avg (%v p99), execute %v avg (%v p99)\n",
		r.FetchPrepareAvg, r.FetchPrepareP99, r.FetchExecuteAvg, r.FetchExecuteP99)
	fmt.Fprintf(&b, "Post: %d/%d failed\n", r.PostsFailed, r.PostsIssued)
	fmt.Fprintf(&b, "  prepare %v avg (%v p99), execute %v avg (%v p99)\n",
		r.PostPrepareAvg, r.PostPrepareP99, r.PostExecuteAvg, r.PostExecuteP99)
	fmt.Fprintf(&b, "Channel fill: %.1f avg, %.0f min, %.0f max, quality %.2f",
		r.ChannelFill.Mean, r.ChannelFill.Min, r.ChannelFill.Max,
		r.ChannelFill.DistributionQuality)
	return b.String()
}
