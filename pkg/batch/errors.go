package batch

import "errors"

// ErrBadThreshold is returned by Batcher.FlushAtSize when the size
// threshold is below one.
var ErrBadThreshold = errors.New("batchq: flush threshold must be at least 1")
