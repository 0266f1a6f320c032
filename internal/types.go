package internal

import "context"

// Configurer reads its configuration from a map of environment
// variables, keys that aren't present leave the existing value alone
type Configurer interface {
	Configure(envs map[string]string) error
}

// Opener is implemented by anything that has to acquire resources
// (connections, listeners, go routines) before it can be used
type Opener interface {
	Open(ctx context.Context) error
	Closer
}

type Closer interface {
	Close(ctx context.Context) error
}

type Clearer interface {
	Clear(ctx context.Context) error
}
