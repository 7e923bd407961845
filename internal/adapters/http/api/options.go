package api

import "github.com/okian/ehb/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAuthenticator sets the bearer token verifier.
func WithAuthenticator(a *Authenticator) Option {
	return func(s *Server) {
		if a != nil {
			s.auth = a
		}
	}
}

// WithLogger sets the logger used for unexpected errors.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}
