package store

import (
	"testing"
)

func validConfig() Config {
	return Config{Users: 8, Channels: 16, Capacity: 32, Seed: 1}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Valid", func(c *Config) {}, false},
		{"ZeroUsers", func(c *Config) { c.Users = 0 }, true},
		{"ZeroChannels", func(c *Config) { c.Channels = 0 }, true},
		{"ZeroCapacity", func(c *Config) { c.Capacity = 0 }, true},
		{"NegativeUsers", func(c *Config) { c.Users = -1 }, true},
		{"TooFewChannels", func(c *Config) { c.Channels = ChannelsPerUser - 1 }, true},
		{"MinimalChannels", func(c *Config) { c.Channels = ChannelsPerUser }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				storeErr, ok := err.(*Error)
				if !ok {
					t.Fatalf("expected *Error, got %T", err)
				}
				if storeErr.Code != RetCInvalidConfig {
					t.Errorf("expected RetCInvalidConfig, got %v", storeErr.Code)
				}
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for zero config")
	}
}

func TestWatchedChannelsDistinctAndInRange(t *testing.T) {
	cfg := validConfig()
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for u := 0; u < cfg.Users; u++ {
		watched := s.WatchedChannels(UserID(u))
		seen := make(map[ChannelID]bool)
		for _, c := range watched {
			if int(c) >= cfg.Channels {
				t.Errorf("user %d watches out-of-range channel %d", u, c)
			}
			if seen[c] {
				t.Errorf("user %d watches channel %d twice", u, c)
			}
			seen[c] = true
		}
	}
}

func TestWatchedChannelsReproducible(t *testing.T) {
	cfg := validConfig()
	s1, _ := New(cfg)
	s2, _ := New(cfg)

	for u := 0; u < cfg.Users; u++ {
		if s1.WatchedChannels(UserID(u)) != s2.WatchedChannels(UserID(u)) {
			t.Fatalf("same seed produced different watched lists for user %d", u)
		}
	}
}

func TestZeroInitialization(t *testing.T) {
	cfg := validConfig()
	s, _ := New(cfg)

	for c := 0; c < cfg.Channels; c++ {
		if got := s.NextMsgID(ChannelID(c)); got != 0 {
			t.Errorf("channel %d counter = %d, want 0", c, got)
		}
	}
	for u := 0; u < cfg.Users; u++ {
		if row := s.CursorRow(UserID(u)); row != [ChannelsPerUser]MessageID{} {
			t.Errorf("user %d cursor row = %v, want zeros", u, row)
		}
	}
}

func TestAccessors(t *testing.T) {
	s, _ := New(validConfig())

	s.SetNextMsgID(3, 7)
	if got := s.NextMsgID(3); got != 7 {
		t.Errorf("NextMsgID = %d, want 7", got)
	}

	msg := Message{ID: 2, Author: 5, Timestamp: 42, Text: NewText("hello")}
	s.SetMessageAt(3, 2, msg)
	if got := s.MessageAt(3, 2); got != msg {
		t.Errorf("MessageAt = %+v, want %+v", got, msg)
	}
	if got := s.MessageAt(3, 2); got.TextString() != "hello" {
		t.Errorf("TextString = %q, want %q", got.TextString(), "hello")
	}

	row := [ChannelsPerUser]MessageID{1, 2, 3, 4}
	s.SetCursorRow(6, row)
	if got := s.CursorRow(6); got != row {
		t.Errorf("CursorRow = %v, want %v", got, row)
	}
}

func TestNewTextTruncates(t *testing.T) {
	long := make([]byte, MessageLength*2)
	for i := range long {
		long[i] = 'x'
	}
	text := NewText(string(long))
	if len(text) != MessageLength {
		t.Fatalf("text length = %d, want %d", len(text), MessageLength)
	}
}
