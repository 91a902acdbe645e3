package dispatch

import (
	"fmt"
	"math/rand"

	"github.com/CyanoKobalamyne/msgstore/lib/store"
)

// msgTemplate is the text every generated post carries.
const msgTemplate = "This is a message from user %d on channel %d"

// --------------------------------------------------------------------------
// Request Types
// --------------------------------------------------------------------------

// Action selects the operation of a generated request.
type Action uint8

const (
	ActionPost Action = iota
	ActionFetch
)

func (a Action) String() string {
	switch a {
	case ActionPost:
		return "Post"
	case ActionFetch:
		return "Fetch"
	default:
		return "Unknown"
	}
}

// Request is one not-yet-submitted workload entry.
type Request struct {
	Action  Action
	User    store.UserID
	Channel store.ChannelID // posts only
	Text    string          // posts only
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// Config describes one benchmark run.
type Config struct {
	Users    int   // number of users (-n)
	Channels int   // number of channels (-k)
	Capacity int   // message slots per channel (-m)
	Requests int   // total request target (-t)
	Ratio    int   // FETCHes per POST (-r)
	Workers  int   // runtime worker count (0 = NumCPU)
	Seed     int64 // workload and store seed
}

// storeConfig derives the store dimensions from the run configuration.
func (c Config) storeConfig() store.Config {
	return store.Config{
		Users:    c.Users,
		Channels: c.Channels,
		Capacity: c.Capacity,
		Seed:     c.Seed,
	}
}

// split derives the request mix: Requests/(Ratio+1) posts and Ratio fetches
// per post. The two may sum to slightly less than Requests; the remainder is
// dropped, matching the reference behavior.
func (c Config) split() (posts, fetches int) {
	posts = c.Requests / (c.Ratio + 1)
	return posts, posts * c.Ratio
}

// Validate checks the run parameters before any storage is allocated or any
// unit is scheduled. Every fault here is a configuration error that must
// terminate the run with a usage message.
func (c Config) Validate() error {
	if err := c.storeConfig().Validate(); err != nil {
		return err
	}
	if c.Requests <= 0 {
		return store.NewError(store.RetCInvalidConfig, "number of requests must be positive")
	}
	if c.Ratio <= 0 {
		return store.NewError(store.RetCInvalidConfig, "request ratio must be positive")
	}

	posts, _ := c.split()
	if posts == 0 {
		return store.NewError(store.RetCInvalidConfig,
			"the number of requests is too low for the chosen ratio: increase the requests or decrease the ratio")
	}
	// A workload with more posts than slots cannot fully commit no matter
	// how it is scheduled; reject it before any work starts.
	if posts > c.Channels*c.Capacity {
		return store.NewError(store.RetCCapacityExceeded,
			fmt.Sprintf("%d posts cannot fit into %d channels of capacity %d",
				posts, c.Channels, c.Capacity))
	}
	return nil
}

// --------------------------------------------------------------------------
// Workload Generation
// --------------------------------------------------------------------------

// buildWorkload synthesizes the request mix and shuffles it. Fetches target
// a uniformly random user; posts target a uniformly random channel among a
// random user's watched set. The shuffle is what creates the cross-user and
// cross-channel interleaving the protocol must tolerate.
func buildWorkload(cfg Config, s *store.Store, rng *rand.Rand) []Request {
	posts, fetches := cfg.split()
	requests := make([]Request, 0, posts+fetches)

	for i := 0; i < fetches; i++ {
		requests = append(requests, Request{
			Action: ActionFetch,
			User:   store.UserID(rng.Intn(cfg.Users)),
		})
	}
	for i := 0; i < posts; i++ {
		user := store.UserID(rng.Intn(cfg.Users))
		channel := s.WatchedChannels(user)[rng.Intn(store.ChannelsPerUser)]
		requests = append(requests, Request{
			Action:  ActionPost,
			User:    user,
			Channel: channel,
			Text:    fmt.Sprintf(msgTemplate, user, channel),
		})
	}

	rng.Shuffle(len(requests), func(i, j int) {
		requests[i], requests[j] = requests[j], requests[i]
	})
	return requests
}
