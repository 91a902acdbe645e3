package protocol

import (
	"github.com/CyanoKobalamyne/msgstore/lib/runtime"
	"github.com/CyanoKobalamyne/msgstore/lib/store"
	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	rmetrics "github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("protocol")

// Process-wide outcome counters, exposed on the optional metrics endpoint.
var (
	postCommitted   = vmetrics.GetOrCreateCounter(`msgstore_posts_total{result="committed"}`)
	postConflicted  = vmetrics.GetOrCreateCounter(`msgstore_posts_total{result="conflict"}`)
	postOverflowed  = vmetrics.GetOrCreateCounter(`msgstore_posts_total{result="capacity"}`)
	fetchCommitted  = vmetrics.GetOrCreateCounter(`msgstore_fetches_total{result="committed"}`)
	fetchConflicted = vmetrics.GetOrCreateCounter(`msgstore_fetches_total{result="conflict"}`)
	msgsDelivered   = vmetrics.GetOrCreateCounter(`msgstore_messages_delivered_total`)
)

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Engine binds the store to the runtime and owns the per-run stage timers.
// One engine serves one benchmark run; timers start empty.
type Engine struct {
	store *store.Store
	rt    *runtime.Runtime

	// per-stage latency timers (unregistered, scoped to this engine)
	preparePostTimer  rmetrics.Timer
	executePostTimer  rmetrics.Timer
	prepareFetchTimer rmetrics.Timer
	executeFetchTimer rmetrics.Timer

	// messages copied out by committed fetches, updated by workers
	delivered *xsync.Counter
}

// NewEngine creates a protocol engine over the given store and runtime.
//
// Thread-safety: This function is not thread-safe and should only be called
// once during initialization.
func NewEngine(s *store.Store, rt *runtime.Runtime) *Engine {
	return &Engine{
		store:             s,
		rt:                rt,
		preparePostTimer:  rmetrics.NewTimer(),
		executePostTimer:  rmetrics.NewTimer(),
		prepareFetchTimer: rmetrics.NewTimer(),
		executeFetchTimer: rmetrics.NewTimer(),
		delivered:         xsync.NewCounter(),
	}
}

// Delivered returns how many messages committed fetches have copied out.
func (e *Engine) Delivered() int64 {
	return e.delivered.Value()
}

// StageTimers returns the per-stage latency timers in the order
// prepare-post, execute-post, prepare-fetch, execute-fetch.
func (e *Engine) StageTimers() (preparePost, executePost, prepareFetch, executeFetch rmetrics.Timer) {
	return e.preparePostTimer, e.executePostTimer, e.prepareFetchTimer, e.executeFetchTimer
}

// --------------------------------------------------------------------------
// Access Set Encoding
// --------------------------------------------------------------------------

// Resource key layout: two tag bits select the collection, the low bits hold
// the identity. Message slots combine channel and slot index.
const (
	accCounter runtime.Access = 1 << 62
	accCursor  runtime.Access = 2 << 62
	accSlot    runtime.Access = 3 << 62
)

func counterAccess(c store.ChannelID) runtime.Access {
	return accCounter | runtime.Access(c)
}

func cursorAccess(u store.UserID) runtime.Access {
	return accCursor | runtime.Access(u)
}

func slotAccess(c store.ChannelID, id store.MessageID) runtime.Access {
	return accSlot | runtime.Access(c)<<32 | runtime.Access(id)
}

// --------------------------------------------------------------------------
// Submission
// --------------------------------------------------------------------------

// SubmitPreparePost schedules the read-only snapshot of a channel's append
// counter.
func (e *Engine) SubmitPreparePost(c store.ChannelID) *runtime.Future[PostSnapshot] {
	reads := []runtime.Access{counterAccess(c)}
	return runtime.Submit(e.rt, reads, nil, func() PostSnapshot {
		return e.preparePost(c)
	})
}

// SubmitExecutePost schedules the validate-and-commit step of a post. The
// declared write set is exactly the channel's counter plus the one slot the
// snapshot claims, so posts to other channels proceed in parallel.
func (e *Engine) SubmitExecutePost(c store.ChannelID, snap PostSnapshot, msg store.Message) *runtime.Future[PostResult] {
	writes := []runtime.Access{counterAccess(c)}
	if int(snap.Expected) < e.store.Config().Capacity {
		writes = append(writes, slotAccess(c, snap.Expected))
	}
	return runtime.Submit(e.rt, nil, writes, func() PostResult {
		return e.executePost(c, snap, msg)
	})
}

// SubmitPrepareFetch schedules the read-only snapshot of a user's cursor row
// and the append counters of all watched channels. The watched list itself
// is immutable and needs no declared access.
func (e *Engine) SubmitPrepareFetch(u store.UserID) *runtime.Future[FetchSnapshot] {
	reads := make([]runtime.Access, 0, store.ChannelsPerUser+1)
	reads = append(reads, cursorAccess(u))
	for _, c := range e.store.WatchedChannels(u) {
		reads = append(reads, counterAccess(c))
	}
	return runtime.Submit(e.rt, reads, nil, func() FetchSnapshot {
		return e.prepareFetch(u)
	})
}

// SubmitExecuteFetch schedules the validate-and-commit step of a fetch. The
// read set is the minimal per-request set of message slots, one bounded
// half-open range per watched channel, so unrelated posts and fetches keep
// running concurrently.
func (e *Engine) SubmitExecuteFetch(u store.UserID, snap FetchSnapshot) *runtime.Future[FetchResult] {
	writes := []runtime.Access{cursorAccess(u)}
	var reads []runtime.Access
	watched := e.store.WatchedChannels(u)
	for i, c := range watched {
		end := min(snap.Avail[i], snap.Unread[i]+store.MaxReturnedMessages)
		for j := snap.Unread[i]; j < end; j++ {
			reads = append(reads, slotAccess(c, j))
		}
	}
	return runtime.Submit(e.rt, reads, writes, func() FetchResult {
		return e.executeFetch(u, snap)
	})
}
