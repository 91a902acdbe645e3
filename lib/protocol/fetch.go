package protocol

import (
	"time"

	"github.com/CyanoKobalamyne/msgstore/lib/store"
)

// prepareFetch snapshots the user's cursor row and the append counters of
// all watched channels. Runs with read access to the row and the counters.
func (e *Engine) prepareFetch(u store.UserID) FetchSnapshot {
	start := time.Now()

	snap := FetchSnapshot{Unread: e.store.CursorRow(u)}
	for i, c := range e.store.WatchedChannels(u) {
		snap.Avail[i] = e.store.NextMsgID(c)
	}

	e.prepareFetchTimer.UpdateSince(start)
	Logger.Debugf("[FETCH PREPARE] took %v, user %d", time.Since(start), u)
	return snap
}

// executeFetch validates the cursor snapshot and, if it still matches,
// copies the bounded unread ranges and advances the cursors. Runs with
// write access to the cursor row and read access to the snapshotted slot
// ranges.
//
// A cursor entry that moved means another fetch for this same user already
// committed: fail, mutate nothing. A watched channel with no new messages
// contributes an empty range, which is valid.
func (e *Engine) executeFetch(u store.UserID, snap FetchSnapshot) FetchResult {
	start := time.Now()

	row := e.store.CursorRow(u)
	for i := range row {
		if row[i] != snap.Unread[i] {
			e.executeFetchTimer.UpdateSince(start)
			fetchConflicted.Inc()
			Logger.Debugf("[FETCH EXECUTE] took %v, user %d, failed (%s)",
				time.Since(start), u, ReasonConflict)
			return FetchResult{OK: false, Reason: ReasonConflict}
		}
	}

	var batch []store.Message
	watched := e.store.WatchedChannels(u)
	for i, c := range watched {
		end := min(snap.Avail[i], snap.Unread[i]+store.MaxReturnedMessages)
		for j := snap.Unread[i]; j < end; j++ {
			batch = append(batch, e.store.MessageAt(c, j))
		}
		row[i] = end
	}
	e.store.SetCursorRow(u, row)

	e.delivered.Add(int64(len(batch)))
	msgsDelivered.Add(len(batch))
	fetchCommitted.Inc()

	e.executeFetchTimer.UpdateSince(start)
	Logger.Debugf("[FETCH EXECUTE] took %v, user %d, %d messages",
		time.Since(start), u, len(batch))
	return FetchResult{OK: true, Reason: ReasonNone, Messages: batch}
}
