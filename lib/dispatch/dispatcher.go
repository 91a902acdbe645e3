package dispatch

import (
	"math/rand"
	gort "runtime"
	"time"

	"github.com/CyanoKobalamyne/msgstore/lib/protocol"
	"github.com/CyanoKobalamyne/msgstore/lib/runtime"
	"github.com/CyanoKobalamyne/msgstore/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("dispatch")

// --------------------------------------------------------------------------
// Dispatcher
// --------------------------------------------------------------------------

// Dispatcher owns the store, runtime and engine of one benchmark run.
type Dispatcher struct {
	cfg    Config
	store  *store.Store
	rt     *runtime.Runtime
	engine *protocol.Engine
}

// New validates the configuration and sets up store, runtime and engine.
// Nothing is scheduled until Run.
func New(cfg Config) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := store.New(cfg.storeConfig())
	if err != nil {
		return nil, err
	}

	rt := runtime.New(&runtime.Options{Workers: cfg.Workers})
	return &Dispatcher{
		cfg:    cfg,
		store:  s,
		rt:     rt,
		engine: protocol.NewEngine(s, rt),
	}, nil
}

// Store exposes the run's store, mainly for post-run auditing in tests.
func (d *Dispatcher) Store() *store.Store {
	return d.store
}

// Close shuts down the runtime. Call after Run has returned.
func (d *Dispatcher) Close() {
	d.rt.Close()
}

// --------------------------------------------------------------------------
// Pipeline Bookkeeping
// --------------------------------------------------------------------------

// pendingUnit is an in-flight prepare stage. chain consumes the prepare
// result and submits the matching execute unit; it must only be called once
// ready reports true.
type pendingUnit struct {
	ready func() bool
	chain func() executingUnit
}

// executingUnit is an in-flight execute stage awaiting final retrieval.
type executingUnit struct {
	action Action
	wait   func() outcome
}

// outcome is the drained result of one execute stage.
type outcome struct {
	ok       bool
	messages int
}

// --------------------------------------------------------------------------
// Main Loop
// --------------------------------------------------------------------------

// Run drives the whole workload and returns the aggregated report.
//
// The loop keeps three collections: the backlog of not-yet-submitted
// requests, the ordered pending list of in-flight prepares, and the
// executing list of in-flight executes. Each iteration chains at most one
// ready prepare into its execute and submits at most one backlog request's
// prepare; the logical clock ticks once per request leaving the backlog.
func (d *Dispatcher) Run() *Report {
	rng := rand.New(rand.NewSource(d.cfg.Seed))
	requests := buildWorkload(d.cfg, d.store, rng)
	posts, fetches := d.cfg.split()
	Logger.Infof("dispatching %d requests (%d posts, %d fetches)", len(requests), posts, fetches)

	var (
		pending   []pendingUnit
		executing []executingUnit
		clock     uint64
		next      int // backlog position
	)

	start := time.Now()
	for next < len(requests) || len(pending) > 0 {
		progressed := false

		// Chain the first ready prepare, if any.
		for i := range pending {
			if pending[i].ready() {
				executing = append(executing, pending[i].chain())
				pending = append(pending[:i], pending[i+1:]...)
				progressed = true
				break
			}
		}

		if next < len(requests) {
			req := requests[next]
			next++
			pending = append(pending, d.submitPrepare(req, &clock))
			clock++
			progressed = true
		}

		if !progressed {
			// Backlog drained, no prepare ready yet: let workers run.
			gort.Gosched()
		}
	}

	// Drain: blocking retrieval is allowed only here.
	var (
		postsFailed   int
		fetchesFailed int
		fetched       int
	)
	for _, ex := range executing {
		out := ex.wait()
		switch ex.action {
		case ActionPost:
			if !out.ok {
				postsFailed++
			}
		case ActionFetch:
			if !out.ok {
				fetchesFailed++
			} else {
				fetched += out.messages
			}
		}
	}
	elapsed := time.Since(start)

	return d.buildReport(elapsed, postsFailed, fetchesFailed, fetched)
}

// submitPrepare issues the prepare unit for one request and returns the
// pending entry whose chain submits the matching execute unit.
func (d *Dispatcher) submitPrepare(req Request, clock *uint64) pendingUnit {
	switch req.Action {
	case ActionFetch:
		fut := d.engine.SubmitPrepareFetch(req.User)
		return pendingUnit{
			ready: fut.Ready,
			chain: func() executingUnit {
				snap := fut.Wait() // ready, returns immediately
				efut := d.engine.SubmitExecuteFetch(req.User, snap)
				return executingUnit{
					action: ActionFetch,
					wait: func() outcome {
						res := efut.Wait()
						return outcome{ok: res.OK, messages: len(res.Messages)}
					},
				}
			},
		}

	default: // ActionPost
		fut := d.engine.SubmitPreparePost(req.Channel)
		return pendingUnit{
			ready: fut.Ready,
			chain: func() executingUnit {
				snap := fut.Wait() // ready, returns immediately
				msg := store.Message{
					Author:    req.User,
					Timestamp: *clock,
					Text:      store.NewText(req.Text),
				}
				*clock++
				efut := d.engine.SubmitExecutePost(req.Channel, snap, msg)
				return executingUnit{
					action: ActionPost,
					wait: func() outcome {
						res := efut.Wait()
						return outcome{ok: res.OK}
					},
				}
			},
		}
	}
}
