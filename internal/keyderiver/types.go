package keyderiver

import "time"

// RecordingDescriptor identifies a recording file on disk together with the
// metadata the rest of the pipeline needs: its size and modification time
// for dedup-cache lookups, and the data timestamp this package derives.
// Once populated, a RecordingDescriptor is treated as immutable; callers
// that need a different timestamp derive a new value rather
// than mutating this one in place.
type RecordingDescriptor struct {
	Path      string
	Filename  string
	Size      int64
	ModTime   time.Time
	Timestamp time.Time

	// TimestampSource records which strategy produced Timestamp, for
	// diagnostics and audit logging.
	TimestampSource TimestampSource
}

// TimestampSource names the strategy that produced a RecordingDescriptor's
// Timestamp field.
type TimestampSource int

const (
	// TimestampSourceUnknown is the zero value; never set on a successfully
	// derived descriptor.
	TimestampSourceUnknown TimestampSource = iota

	// TimestampSourceContent means the timestamp was recovered from the
	// recording's own binary content (MCAP message/chunk/metadata records).
	TimestampSourceContent

	// TimestampSourceFilename means the timestamp was recovered by matching
	// one of the filename regex patterns.
	TimestampSourceFilename
)

// String renders the source for logging.
func (s TimestampSource) String() string {
	switch s {
	case TimestampSourceContent:
		return "content"
	case TimestampSourceFilename:
		return "filename"
	default:
		return "unknown"
	}
}
