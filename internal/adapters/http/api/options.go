package api

import (
	"time"

	"github.com/okian/fantasycricket/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAdminToken enables admin routes for requests carrying token in
// X-Admin-Token. An empty token keeps them disabled.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

// WithRequestTimeout bounds every non-streaming request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSubscriber serves GET /ws through sub.
func WithSubscriber(sub Subscriber) Option {
	return func(s *Server) {
		s.subscriber = sub
	}
}
