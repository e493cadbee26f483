// Package state provides state persistence functionality for resumable follows.
//
// This package manages loading and saving of shipping state, enabling a
// follower to resume after restarts. The state tracks the byte offset up
// to which lines of the followed file have been shipped, plus cumulative
// ship counters.
//
// # Usage
//
// Create a file-based repository:
//
//	repo := state.NewFileRepository("/path/to/state/dir")
//
//	// Load existing state
//	s, err := repo.Load(ctx)
//	if err != nil {
//	    return err
//	}
//
//	// ... ship a batch ...
//
//	s.UpdateAfterShip(offset, len(batch))
//	if err := repo.Save(ctx, s); err != nil {
//	    return err
//	}
//
// # Semantics
//
// The saved offset is best effort: it reflects the reader position at the
// time a ship started, so a crash between ship and save can replay or
// skip a small window of lines on restart. Exact resumption is out of
// scope.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package state
