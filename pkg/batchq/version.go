package batchq

import (
	"github.com/bft-labs/batchq/pkg/alarm"
	"github.com/bft-labs/batchq/pkg/batch"
	"github.com/bft-labs/batchq/pkg/clock"
	"github.com/bft-labs/batchq/pkg/event"
	"github.com/bft-labs/batchq/pkg/lifecycle"
	"github.com/bft-labs/batchq/pkg/log"
	"github.com/bft-labs/batchq/pkg/sink"
	"github.com/bft-labs/batchq/pkg/state"
)

// Version information for the batchq module.
const (
	// Version is the current version of the batchq module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)

// ModuleVersions returns the versions of all sub-modules keyed by name.
func ModuleVersions() map[string]string {
	return map[string]string{
		"batchq":    Version,
		"batch":     batch.Version,
		"alarm":     alarm.Version,
		"clock":     clock.Version,
		"event":     event.Version,
		"log":       log.Version,
		"sink":      sink.Version,
		"state":     state.Version,
		"lifecycle": lifecycle.Version,
	}
}

// CompatibilityMatrix returns the minimum compatible version of each
// sub-module keyed by name.
func CompatibilityMatrix() map[string]string {
	return map[string]string{
		"batchq":    MinCompatibleVersion,
		"batch":     batch.MinCompatibleVersion,
		"alarm":     alarm.MinCompatibleVersion,
		"clock":     clock.MinCompatibleVersion,
		"event":     event.MinCompatibleVersion,
		"log":       log.MinCompatibleVersion,
		"sink":      sink.MinCompatibleVersion,
		"state":     state.MinCompatibleVersion,
		"lifecycle": lifecycle.MinCompatibleVersion,
	}
}
