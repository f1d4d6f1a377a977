package hub

import "time"

// Options carries the spec.md §6.4 tunables. Values are copied from
// internal/config.Config by the caller constructing a Registry so this
// package stays free of a dependency on the process-wide config loader.
type Options struct {
	HeartbeatInterval  time.Duration
	HeartbeatTimeout   time.Duration
	MaxStateSize       int
	MaxPacketChars     int
	MaxPatchSize       int
	MergeMaxDepth      int
	MergeMaxProperties int
	MergeMaxArraySize  int
	StaleTTL           time.Duration
	IdentityTimeout    time.Duration
	ActiveHubThrottle  time.Duration
}

// DefaultOptions returns the spec.md §6.4 default values.
func DefaultOptions() Options {
	return Options{
		HeartbeatInterval:  60 * time.Second,
		HeartbeatTimeout:   70 * time.Second,
		MaxStateSize:       1_000_000,
		MaxPacketChars:     50_000,
		MaxPatchSize:       10_240,
		MergeMaxDepth:      20,
		MergeMaxProperties: 100,
		MergeMaxArraySize:  1000,
		StaleTTL:           120 * time.Second,
		IdentityTimeout:    5 * time.Second,
		ActiveHubThrottle:  5 * time.Second,
	}
}
