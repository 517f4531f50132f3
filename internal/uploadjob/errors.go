package uploadjob

import "errors"

// ErrJobNotFound is returned by operations addressing a job id the engine
// no longer (or never) knows about.
var ErrJobNotFound = errors.New("uploadjob: job not found")

// errInvalidTimestampSkip is the per-file error message recorded for
// pre-1980 files skipped at upload time. The exact string is part of the
// external contract; clients match on it.
const errInvalidTimestampSkip = "Invalid timestamp (pre-1980)"
