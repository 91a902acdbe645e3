package protocol

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/CyanoKobalamyne/msgstore/lib/runtime"
	"github.com/CyanoKobalamyne/msgstore/lib/store"
)

func newTestEngine(t *testing.T, capacity int) (*Engine, *store.Store, *runtime.Runtime) {
	t.Helper()
	cfg := store.Config{Users: 2, Channels: store.ChannelsPerUser, Capacity: capacity, Seed: 42}
	s, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	rt := runtime.New(&runtime.Options{Workers: 4})
	t.Cleanup(rt.Close)
	return NewEngine(s, rt), s, rt
}

func testMessage(author store.UserID, c store.ChannelID, ts uint64) store.Message {
	return store.Message{
		Author:    author,
		Timestamp: ts,
		Text:      store.NewText(fmt.Sprintf("This is a message from user %d on channel %d", author, c)),
	}
}

// post runs both stages back to back, the way a sequential caller would.
func post(e *Engine, c store.ChannelID, msg store.Message) PostResult {
	snap := e.preparePost(c)
	return e.executePost(c, snap, msg)
}

// storeState captures everything observable for byte-identical comparison.
type storeState struct {
	counters []store.MessageID
	cursors  [][store.ChannelsPerUser]store.MessageID
	messages [][]store.Message
}

func captureState(s *store.Store) storeState {
	cfg := s.Config()
	st := storeState{
		counters: make([]store.MessageID, cfg.Channels),
		cursors:  make([][store.ChannelsPerUser]store.MessageID, cfg.Users),
		messages: make([][]store.Message, cfg.Channels),
	}
	for c := 0; c < cfg.Channels; c++ {
		st.counters[c] = s.NextMsgID(store.ChannelID(c))
		st.messages[c] = make([]store.Message, cfg.Capacity)
		for i := 0; i < cfg.Capacity; i++ {
			st.messages[c][i] = s.MessageAt(store.ChannelID(c), store.MessageID(i))
		}
	}
	for u := 0; u < cfg.Users; u++ {
		st.cursors[u] = s.CursorRow(store.UserID(u))
	}
	return st
}

// --------------------------------------------------------------------------
// Scenario Tests
// --------------------------------------------------------------------------

// Two posts race for slot 0 of one channel: one wins, the loser conflicts,
// a following fetch sees exactly the winning message.
func TestConcurrentPostsOneWinner(t *testing.T) {
	e, s, _ := newTestEngine(t, 10)
	user := store.UserID(0)
	ch := s.WatchedChannels(user)[0]

	snap1 := e.preparePost(ch)
	snap2 := e.preparePost(ch)
	if snap1.Expected != 0 || snap2.Expected != 0 {
		t.Fatalf("both snapshots should claim slot 0, got %d and %d", snap1.Expected, snap2.Expected)
	}

	res1 := e.executePost(ch, snap1, testMessage(user, ch, 1))
	res2 := e.executePost(ch, snap2, testMessage(user, ch, 2))

	if !res1.OK {
		t.Fatalf("first post failed: %s", res1.Reason)
	}
	if res2.OK {
		t.Fatal("second post with a stale snapshot committed")
	}
	if res2.Reason != ReasonConflict {
		t.Errorf("second post reason = %s, want %s", res2.Reason, ReasonConflict)
	}
	if got := s.NextMsgID(ch); got != 1 {
		t.Errorf("counter = %d, want 1", got)
	}

	fsnap := e.prepareFetch(user)
	fres := e.executeFetch(user, fsnap)
	if !fres.OK {
		t.Fatalf("fetch failed: %s", fres.Reason)
	}
	if len(fres.Messages) != 1 {
		t.Fatalf("fetch returned %d messages, want 1", len(fres.Messages))
	}
	if fres.Messages[0].ID != 0 {
		t.Errorf("fetched message id = %d, want 0", fres.Messages[0].ID)
	}
}

// A user with 4 pre-seeded channels (25 messages each) gets exactly the
// per-channel cap back and each cursor advances to the cap.
func TestFetchBatchCap(t *testing.T) {
	e, s, _ := newTestEngine(t, 32)
	user := store.UserID(0)
	watched := s.WatchedChannels(user)

	for _, c := range watched {
		for i := 0; i < 25; i++ {
			if res := post(e, c, testMessage(1, c, uint64(i))); !res.OK {
				t.Fatalf("seed post %d on channel %d failed: %s", i, c, res.Reason)
			}
		}
	}

	snap := e.prepareFetch(user)
	res := e.executeFetch(user, snap)
	if !res.OK {
		t.Fatalf("fetch failed: %s", res.Reason)
	}
	if want := store.ChannelsPerUser * store.MaxReturnedMessages; len(res.Messages) != want {
		t.Errorf("fetch returned %d messages, want %d", len(res.Messages), want)
	}

	row := s.CursorRow(user)
	for i := range row {
		if row[i] != store.MaxReturnedMessages {
			t.Errorf("cursor %d = %d, want %d", i, row[i], store.MaxReturnedMessages)
		}
	}
}

// Sequential posts beyond the preallocated capacity fail closed.
func TestPostCapacityExceeded(t *testing.T) {
	e, s, _ := newTestEngine(t, 5)
	ch := s.WatchedChannels(0)[1]

	for i := 0; i < 5; i++ {
		res := post(e, ch, testMessage(0, ch, uint64(i)))
		if !res.OK {
			t.Fatalf("post %d failed: %s", i, res.Reason)
		}
	}

	res := post(e, ch, testMessage(0, ch, 5))
	if res.OK {
		t.Fatal("post into a full channel committed")
	}
	if res.Reason != ReasonCapacity {
		t.Errorf("reason = %s, want %s", res.Reason, ReasonCapacity)
	}
	if got := s.NextMsgID(ch); got != 5 {
		t.Errorf("counter = %d, want 5", got)
	}
}

// Two fetches for one user with the same stale snapshot: exactly one
// commits and the cursor advances exactly once.
func TestConcurrentFetchesOneWinner(t *testing.T) {
	e, s, _ := newTestEngine(t, 16)
	user := store.UserID(1)
	watched := s.WatchedChannels(user)

	for i := 0; i < 3; i++ {
		if res := post(e, watched[0], testMessage(0, watched[0], uint64(i))); !res.OK {
			t.Fatalf("seed post failed: %s", res.Reason)
		}
	}

	snap := e.prepareFetch(user)
	res1 := e.executeFetch(user, snap)
	res2 := e.executeFetch(user, snap)

	if !res1.OK {
		t.Fatalf("first fetch failed: %s", res1.Reason)
	}
	if res2.OK {
		t.Fatal("second fetch with a stale snapshot committed")
	}
	if res2.Reason != ReasonConflict {
		t.Errorf("second fetch reason = %s, want %s", res2.Reason, ReasonConflict)
	}
	if got := s.CursorRow(user)[0]; got != 3 {
		t.Errorf("cursor = %d, want 3 (advanced exactly once)", got)
	}
}

// --------------------------------------------------------------------------
// Property Tests
// --------------------------------------------------------------------------

// No two posts ever commit into the same slot, even when many stale
// snapshots race through the runtime.
func TestAppendExclusivity(t *testing.T) {
	e, s, _ := newTestEngine(t, 64)
	ch := s.WatchedChannels(0)[0]

	const n = 32
	prepares := make([]*runtime.Future[PostSnapshot], n)
	for i := 0; i < n; i++ {
		prepares[i] = e.SubmitPreparePost(ch)
	}

	executes := make([]*runtime.Future[PostResult], n)
	for i := 0; i < n; i++ {
		snap := prepares[i].Wait()
		executes[i] = e.SubmitExecutePost(ch, snap, testMessage(0, ch, uint64(i)))
	}

	committed := 0
	for _, fut := range executes {
		if fut.Wait().OK {
			committed++
		}
	}

	// every commit claimed a distinct slot, so the counter counts them
	if got := int(s.NextMsgID(ch)); got != committed {
		t.Errorf("counter = %d, committed = %d", got, committed)
	}
	if committed == 0 {
		t.Error("no post committed at all")
	}
}

// A committed message is retrievable by every later fetch covering its slot.
func TestNoLostWrites(t *testing.T) {
	e, s, _ := newTestEngine(t, 16)
	user := store.UserID(0)
	ch := s.WatchedChannels(user)[2]

	want := []string{"first", "second", "third"}
	for i, text := range want {
		msg := store.Message{Author: user, Timestamp: uint64(i), Text: store.NewText(text)}
		if res := post(e, ch, msg); !res.OK {
			t.Fatalf("post %q failed: %s", text, res.Reason)
		}
	}

	snap := e.prepareFetch(user)
	res := e.executeFetch(user, snap)
	if !res.OK {
		t.Fatalf("fetch failed: %s", res.Reason)
	}
	if len(res.Messages) != len(want) {
		t.Fatalf("fetch returned %d messages, want %d", len(res.Messages), len(want))
	}
	for i, msg := range res.Messages {
		if msg.TextString() != want[i] {
			t.Errorf("message %d = %q, want %q", i, msg.TextString(), want[i])
		}
		if msg.ID != store.MessageID(i) {
			t.Errorf("message %d id = %d", i, msg.ID)
		}
	}
}

// Cursors never move backwards and never pass the channel's counter.
func TestCursorMonotonicity(t *testing.T) {
	e, s, _ := newTestEngine(t, 128)
	user := store.UserID(0)
	watched := s.WatchedChannels(user)

	prev := s.CursorRow(user)
	for round := 0; round < 5; round++ {
		for _, c := range watched {
			for i := 0; i < 7; i++ {
				if res := post(e, c, testMessage(1, c, uint64(round*7+i))); !res.OK {
					t.Fatalf("post failed: %s", res.Reason)
				}
			}
		}

		snap := e.prepareFetch(user)
		res := e.executeFetch(user, snap)
		if !res.OK {
			t.Fatalf("fetch failed: %s", res.Reason)
		}

		row := s.CursorRow(user)
		for i, c := range watched {
			if row[i] < prev[i] {
				t.Errorf("round %d: cursor %d went backwards (%d -> %d)", round, i, prev[i], row[i])
			}
			if row[i] > s.NextMsgID(c) {
				t.Errorf("round %d: cursor %d = %d beyond counter %d", round, i, row[i], s.NextMsgID(c))
			}
		}
		prev = row
	}
}

// A failed execute of either kind leaves the store byte-identical.
func TestFailedExecuteMutatesNothing(t *testing.T) {
	e, s, _ := newTestEngine(t, 16)
	user := store.UserID(0)
	ch := s.WatchedChannels(user)[0]

	for i := 0; i < 4; i++ {
		if res := post(e, ch, testMessage(1, ch, uint64(i))); !res.OK {
			t.Fatalf("seed post failed: %s", res.Reason)
		}
	}
	fetchSnap := e.prepareFetch(user)
	if res := e.executeFetch(user, fetchSnap); !res.OK {
		t.Fatalf("seed fetch failed: %s", res.Reason)
	}

	stalePost := PostSnapshot{Expected: 0} // counter is already at 4
	before := captureState(s)
	if res := e.executePost(ch, stalePost, testMessage(1, ch, 99)); res.OK {
		t.Fatal("stale post committed")
	}
	if !reflect.DeepEqual(before, captureState(s)) {
		t.Error("failed post execute mutated the store")
	}

	// fetchSnap went stale when the seed fetch advanced the cursor
	before = captureState(s)
	if res := e.executeFetch(user, fetchSnap); res.OK {
		t.Fatal("stale fetch committed")
	}
	if !reflect.DeepEqual(before, captureState(s)) {
		t.Error("failed fetch execute mutated the store")
	}
}

// A fetch with nothing new everywhere commits an empty batch.
func TestFetchEmptyRanges(t *testing.T) {
	e, s, _ := newTestEngine(t, 8)
	user := store.UserID(1)

	snap := e.prepareFetch(user)
	res := e.executeFetch(user, snap)
	if !res.OK {
		t.Fatalf("empty fetch failed: %s", res.Reason)
	}
	if len(res.Messages) != 0 {
		t.Errorf("empty fetch returned %d messages", len(res.Messages))
	}
	if row := s.CursorRow(user); row != snap.Unread {
		t.Errorf("cursor row changed on empty fetch: %v", row)
	}
}

// Delivered tracks the total copied out by committed fetches.
func TestDeliveredCounter(t *testing.T) {
	e, s, _ := newTestEngine(t, 16)
	user := store.UserID(0)
	ch := s.WatchedChannels(user)[0]

	for i := 0; i < 5; i++ {
		if res := post(e, ch, testMessage(1, ch, uint64(i))); !res.OK {
			t.Fatalf("post failed: %s", res.Reason)
		}
	}
	snap := e.prepareFetch(user)
	if res := e.executeFetch(user, snap); !res.OK {
		t.Fatalf("fetch failed: %s", res.Reason)
	}

	if got := e.Delivered(); got != 5 {
		t.Errorf("Delivered() = %d, want 5", got)
	}
}
