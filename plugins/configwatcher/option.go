package configwatcher

import "github.com/bft-labs/batchq/pkg/batchq"

// WithConfigWatcher returns a batchq Option that watches the given
// config file and logs edits that need a restart to take effect.
//
// Usage:
//
//	s, err := batchq.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path: "/etc/batchq/config.toml",
//	    }),
//	)
func WithConfigWatcher(cfg Config) batchq.Option {
	plugin := New(cfg)
	return batchq.WithPlugin(plugin)
}
