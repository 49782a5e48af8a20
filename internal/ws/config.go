package ws

import (
	"time"

	"golang.org/x/time/rate"
)

// Config holds per-connection limits and keepalive timings
type Config struct {
	// WriteWait bounds a single frame write
	WriteWait time.Duration
	// PongWait is how long a silent connection stays open
	PongWait time.Duration
	// PingPeriod must be shorter than PongWait
	PingPeriod time.Duration
	// AuthTimeout is how long a new connection may stay unauthenticated
	AuthTimeout time.Duration

	MaxMessageSize int64
	SendBuffer     int

	// RateLimit and RateBurst throttle inbound frames per connection
	RateLimit rate.Limit
	RateBurst int
}

// DefaultConfig returns the default connection settings
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       30 * time.Second,
		PingPeriod:     25 * time.Second,
		AuthTimeout:    10 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     64,
		RateLimit:      20,
		RateBurst:      40,
	}
}
