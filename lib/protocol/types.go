package protocol

import "github.com/CyanoKobalamyne/msgstore/lib/store"

// --------------------------------------------------------------------------
// Outcome Types
// --------------------------------------------------------------------------

// Reason classifies why an execute stage did not commit.
type Reason uint8

const (
	ReasonNone     Reason = iota // committed
	ReasonConflict               // snapshot went stale between the stages
	ReasonCapacity               // channel's preallocated log is full
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonConflict:
		return "ValidationConflict"
	case ReasonCapacity:
		return "CapacityExceeded"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// POST Stage Payloads
// --------------------------------------------------------------------------

// PostSnapshot is the prepare-post result: the slot the post expects to
// claim.
type PostSnapshot struct {
	Expected store.MessageID
}

// PostResult is the execute-post outcome. On failure nothing was mutated.
type PostResult struct {
	OK     bool
	Reason Reason
}

// --------------------------------------------------------------------------
// FETCH Stage Payloads
// --------------------------------------------------------------------------

// FetchSnapshot is the prepare-fetch result. Entry i of both arrays belongs
// to the i-th watched channel of the user: Unread is the cursor snapshot,
// Avail the channel's append counter snapshot.
type FetchSnapshot struct {
	Unread [store.ChannelsPerUser]store.MessageID
	Avail  [store.ChannelsPerUser]store.MessageID
}

// FetchResult is the execute-fetch outcome. On success Messages holds the
// concatenated per-channel batches, each capped at MaxReturnedMessages.
// On failure nothing was mutated and Messages is nil.
type FetchResult struct {
	OK       bool
	Reason   Reason
	Messages []store.Message
}
