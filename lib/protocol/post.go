package protocol

import (
	"time"

	"github.com/CyanoKobalamyne/msgstore/lib/store"
)

// preparePost snapshots the channel's append counter. Runs with read access
// to that counter.
func (e *Engine) preparePost(c store.ChannelID) PostSnapshot {
	start := time.Now()

	snap := PostSnapshot{Expected: e.store.NextMsgID(c)}

	e.preparePostTimer.UpdateSince(start)
	Logger.Debugf("[POST PREPARE] took %v, channel %d", time.Since(start), c)
	return snap
}

// executePost validates the snapshot against the live counter and commits
// the message if the claimed slot is still free. Runs with write access to
// the counter and to the claimed slot.
//
// A counter that moved means another post committed in the prepare-to-
// execute window and owns the slot: fail, mutate nothing. The loser is told
// so; retrying is the caller's decision.
func (e *Engine) executePost(c store.ChannelID, snap PostSnapshot, msg store.Message) PostResult {
	start := time.Now()

	res := PostResult{OK: true, Reason: ReasonNone}
	switch {
	case e.store.NextMsgID(c) != snap.Expected:
		res = PostResult{OK: false, Reason: ReasonConflict}
		postConflicted.Inc()
	case int(snap.Expected) >= e.store.Config().Capacity:
		res = PostResult{OK: false, Reason: ReasonCapacity}
		postOverflowed.Inc()
	default:
		msg.ID = snap.Expected
		e.store.SetMessageAt(c, snap.Expected, msg)
		e.store.SetNextMsgID(c, snap.Expected+1)
		postCommitted.Inc()
	}

	e.executePostTimer.UpdateSince(start)
	if res.OK {
		Logger.Debugf("[POST EXECUTE] took %v, channel %d", time.Since(start), c)
	} else {
		Logger.Debugf("[POST EXECUTE] took %v, channel %d, failed (%s)", time.Since(start), c, res.Reason)
	}
	return res
}
