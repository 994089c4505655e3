package server

import (
	"github.com/rzbill/provision/pkg/clock"
	"github.com/rzbill/provision/pkg/log"
	"github.com/rzbill/provision/pkg/store"
	"github.com/rzbill/provision/pkg/types"
)

// Options holds the collaborators a Server is built from. Unset fields are
// created from the config.
type Options struct {
	// Store is the state store. It is opened by Start and closed by Close.
	Store store.Store

	// Flavors resolves flavor names. Defaults to the catalog in the config's flavors file.
	Flavors types.FlavorResolver

	Clock  clock.Clock
	Logger log.Logger
}

// Option is a function that configures the server options.
type Option func(*Options)

// WithStore sets the state store.
func WithStore(s store.Store) Option {
	return func(o *Options) {
		o.Store = s
	}
}

// WithFlavors sets the flavor resolver.
func WithFlavors(flavors types.FlavorResolver) Option {
	return func(o *Options) {
		o.Flavors = flavors
	}
}

// WithClock sets the clock shared by all components.
func WithClock(c clock.Clock) Option {
	return func(o *Options) {
		o.Clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
