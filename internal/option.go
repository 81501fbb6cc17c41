package internal

import "github.com/starford/dock/internal/store"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	store  store.Store
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStore uses st instead of opening the configured store. The caller
// keeps ownership of st.
func WithStore(st store.Store) Option {
	return func(a *application) {
		a.store = st
	}
}
