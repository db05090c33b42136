package notify

import (
	"time"

	"github.com/okian/fantasycricket/pkg/logger"
)

type settings struct {
	log        logger.Logger
	channel    string
	sendBuffer int
	now        func() time.Time
}

func newSettings(component string, opts []Option) settings {
	s := settings{
		channel:    DefaultChannel,
		sendBuffer: 64,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.Get().Named(component)
	}
	return s
}

// Option configures a Hub, RedisPublisher or Bridge.
type Option func(*settings)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithChannel sets the Redis channel notifications travel on.
func WithChannel(channel string) Option {
	return func(s *settings) {
		if channel != "" {
			s.channel = channel
		}
	}
}

// WithSendBuffer sets how many messages a slow client may lag behind
// before it is disconnected.
func WithSendBuffer(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.sendBuffer = n
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
