package store

import "fmt"

// --------------------------------------------------------------------------
// Identity Types and Constants
// --------------------------------------------------------------------------

// UserID identifies a user. IDs are dense in [0, Config.Users).
type UserID uint32

// ChannelID identifies a channel. IDs are dense in [0, Config.Channels).
type ChannelID uint32

// MessageID is the slot index of a message within its channel.
type MessageID uint32

const (
	// ChannelsPerUser is the fixed number of channels every user watches.
	ChannelsPerUser = 4

	// MessageLength is the fixed byte size of a message text.
	MessageLength = 256

	// MaxReturnedMessages caps how many messages a single fetch returns per
	// watched channel.
	MaxReturnedMessages = 20
)

// --------------------------------------------------------------------------
// Message Type
// --------------------------------------------------------------------------

// Message is immutable once written to its slot.
type Message struct {
	ID        MessageID
	Author    UserID
	Timestamp uint64 // logical timestamp, for ordering/display only
	Text      [MessageLength]byte
}

// NewText converts a string into a fixed-size message text, truncating if
// the string is longer than MessageLength.
func NewText(s string) (text [MessageLength]byte) {
	copy(text[:], s)
	return text
}

// TextString returns the text up to the first NUL byte.
func (m *Message) TextString() string {
	for i, b := range m.Text {
		if b == 0 {
			return string(m.Text[:i])
		}
	}
	return string(m.Text[:])
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// Config describes the dimensions of a store.
type Config struct {
	Users    int   // number of users
	Channels int   // number of channels
	Capacity int   // preallocated message slots per channel
	Seed     int64 // seed for the watched-channel assignment
}

// Validate checks the configuration before any storage is allocated.
// All faults are configuration errors: the run must not start.
func (c Config) Validate() error {
	if c.Users <= 0 {
		return NewError(RetCInvalidConfig, "number of users must be positive")
	}
	if c.Channels <= 0 {
		return NewError(RetCInvalidConfig, "number of channels must be positive")
	}
	if c.Capacity <= 0 {
		return NewError(RetCInvalidConfig, "channel capacity must be positive")
	}
	if c.Channels < ChannelsPerUser {
		return NewError(RetCInvalidConfig,
			fmt.Sprintf("at least %d channels are required", ChannelsPerUser))
	}
	return nil
}
