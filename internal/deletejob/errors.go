package deletejob

import "errors"

// ErrJobNotFound is returned by operations addressing a job id the engine
// has no record of.
var ErrJobNotFound = errors.New("deletejob: job not found")
