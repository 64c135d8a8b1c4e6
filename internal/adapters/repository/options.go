package repository

import (
	"github.com/google/uuid"

	"github.com/okian/thehub/pkg/logger"
)

type settings struct {
	log   logger.Logger
	newID func() string
}

func defaultSettings(name string) settings {
	return settings{
		log:   logger.Get().Named(name),
		newID: uuid.NewString,
	}
}

// Option applies a configuration option to a store.
type Option func(*settings)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithIDGenerator sets the generator used for records imported without an id.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}
