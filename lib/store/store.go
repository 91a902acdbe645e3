package store

import (
	"math/rand"
)

// --------------------------------------------------------------------------
// Core Store Structure
// --------------------------------------------------------------------------

// Store owns the four collections. All storage is allocated once by New;
// after that the only mutations are SetNextMsgID, SetMessageAt and
// SetCursorRow, and those only ever run inside units of work whose declared
// access sets make conflicting calls mutually exclusive.
type Store struct {
	cfg Config

	// watched[u] is the fixed list of channels user u follows.
	// Immutable after New.
	watched [][ChannelsPerUser]ChannelID

	// nextMsgID[c] is the number of messages ever committed to channel c,
	// which is also the next free slot index.
	nextMsgID []MessageID

	// messages[c][i] is slot i of channel c. Slots >= nextMsgID[c] are
	// unwritten placeholders.
	messages [][]Message

	// cursors[u][i] is the first unread message id of user u in
	// watched[u][i].
	cursors [][ChannelsPerUser]MessageID
}

// New allocates and initializes a store. Each user's watched-channel list is
// a prefix of a fresh random permutation of all channel ids, so the entries
// are pairwise distinct by construction. Counters and cursors start at zero.
//
// Thread-safety: New is not thread-safe and should be called once at setup.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		cfg:       cfg,
		watched:   make([][ChannelsPerUser]ChannelID, cfg.Users),
		nextMsgID: make([]MessageID, cfg.Channels),
		messages:  make([][]Message, cfg.Channels),
		cursors:   make([][ChannelsPerUser]MessageID, cfg.Users),
	}

	for c := range s.messages {
		s.messages[c] = make([]Message, cfg.Capacity)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	for u := range s.watched {
		perm := rng.Perm(cfg.Channels)
		for i := 0; i < ChannelsPerUser; i++ {
			s.watched[u][i] = ChannelID(perm[i])
		}
	}

	return s, nil
}

// Config returns the configuration the store was created with.
func (s *Store) Config() Config {
	return s.cfg
}

// --------------------------------------------------------------------------
// Field-Level Accessors - Users
// --------------------------------------------------------------------------

// WatchedChannels returns the fixed watched-channel list of a user. The list
// is immutable after initialization, so reading it needs no declared access.
func (s *Store) WatchedChannels(u UserID) [ChannelsPerUser]ChannelID {
	return s.watched[u]
}

// --------------------------------------------------------------------------
// Field-Level Accessors - Channels
// --------------------------------------------------------------------------

// NextMsgID reads a channel's append counter.
// Requires read access to the channel counter.
func (s *Store) NextMsgID(c ChannelID) MessageID {
	return s.nextMsgID[c]
}

// SetNextMsgID writes a channel's append counter.
// Requires write access to the channel counter.
func (s *Store) SetNextMsgID(c ChannelID, id MessageID) {
	s.nextMsgID[c] = id
}

// --------------------------------------------------------------------------
// Field-Level Accessors - Messages
// --------------------------------------------------------------------------

// MessageAt reads one message slot.
// Requires read access to the slot.
func (s *Store) MessageAt(c ChannelID, id MessageID) Message {
	return s.messages[c][id]
}

// SetMessageAt writes one message slot.
// Requires write access to the slot.
func (s *Store) SetMessageAt(c ChannelID, id MessageID, msg Message) {
	s.messages[c][id] = msg
}

// --------------------------------------------------------------------------
// Field-Level Accessors - Read Cursors
// --------------------------------------------------------------------------

// CursorRow reads a user's full cursor row. Entry i belongs to
// WatchedChannels(u)[i].
// Requires read access to the cursor row.
func (s *Store) CursorRow(u UserID) [ChannelsPerUser]MessageID {
	return s.cursors[u]
}

// SetCursorRow writes a user's full cursor row.
// Requires write access to the cursor row.
func (s *Store) SetCursorRow(u UserID, row [ChannelsPerUser]MessageID) {
	s.cursors[u] = row
}
