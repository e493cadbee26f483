package resourcegating

import "github.com/bft-labs/batchq/pkg/batchq"

// WithResourceGating returns a batchq Option that holds deliveries back
// while the host looks busy.
//
// Usage:
//
//	s, err := batchq.New(cfg,
//	    resourcegating.WithResourceGating(resourcegating.DefaultConfig()),
//	)
func WithResourceGating(cfg Config) batchq.Option {
	plugin := New(cfg)
	return batchq.WithPlugin(plugin)
}
