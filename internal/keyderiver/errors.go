package keyderiver

import "errors"

// ErrNoTimestamp means neither the parser nor any filename regex could
// recover a timestamp for the recording.
var ErrNoTimestamp = errors.New("keyderiver: no timestamp found (parse failed and no filename pattern matched)")

// ErrInvalidTimestamp means a timestamp was found but falls before the
// 1980-01-01 epoch cutoff. This is not fatal — callers
// mark the file invalid and continue.
var ErrInvalidTimestamp = errors.New("keyderiver: timestamp before 1980-01-01 epoch cutoff")
