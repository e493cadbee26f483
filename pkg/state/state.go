package state

import "time"

// State represents persistent state for resumable follows.
// This state is saved to disk after each successfully shipped batch.
type State struct {
	// Path is the file being followed
	Path string `json:"path"`

	// Offset is the byte position up to which lines have been shipped
	Offset int64 `json:"offset"`

	// LinesShipped is the total number of lines shipped so far
	LinesShipped uint64 `json:"lines_shipped"`

	// BatchesShipped is the total number of batches shipped so far
	BatchesShipped uint64 `json:"batches_shipped"`

	// LastShipAt is the timestamp of the last successful ship
	LastShipAt time.Time `json:"last_ship_at"`
}

// IsEmpty returns true if the state has not been initialized.
func (s State) IsEmpty() bool {
	return s.Path == ""
}

// UpdateAfterShip updates the state after a successful batch ship.
func (s *State) UpdateAfterShip(offset int64, lines int) {
	s.Offset = offset
	s.LinesShipped += uint64(lines)
	s.BatchesShipped++
	s.LastShipAt = time.Now()
}
