package keyderiver

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// mcapMagic is the 8-byte magic string at the start (and end) of every MCAP
// file. See https://mcap.dev/spec for the full container format; this
// package implements only the minimal subset needed to recover the
// earliest message timestamp.
var mcapMagic = [8]byte{0x89, 'M', 'C', 'A', 'P', 0x30, 0x0d, 0x0a}

// MCAP record opcodes relevant to timestamp extraction. The remaining
// opcodes defined by the spec (schema, channel, statistics, ...) are
// skipped by length without interpretation.
const (
	opHeader        = 0x01
	opFooter        = 0x02
	opMessage       = 0x05
	opChunk         = 0x06
	opMetadata      = 0x0C
	opDataEnd       = 0x0F
)

// recordHeaderSize is the 1-byte opcode + 8-byte little-endian content
// length that precedes every top-level MCAP record.
const recordHeaderSize = 9

// maxRecordLength rejects records whose declared length is absurd for a
// real recording, so a corrupt header can't trigger a giant allocation.
const maxRecordLength = 1 << 31

// messageRecordLogTimeOffset is the byte offset of the log_time field
// within a Message record's content: channel_id(u16) + sequence(u32) = 6.
const messageRecordLogTimeOffset = 6

// chunkMessageStartTimeOffset is the byte offset of message_start_time
// within a Chunk record's content (it is the first field).
const chunkMessageStartTimeOffset = 0

// ErrNotMCAP means the file does not start with the MCAP magic bytes.
var ErrNotMCAP = errors.New("keyderiver: not an MCAP file")

// ParseMCAPEarliestTimestamp scans path for the minimum message timestamp,
// returning it as a UTC time (MCAP log_time is always nanoseconds). It
// also inspects Metadata records for key/value pairs whose key matches a
// recognized timestamp column name, applying the general numeric-epoch
// unit table to those.
//
// Compressed chunks are not decompressed — this reader only interprets the
// chunk header's message_start_time field, which MCAP writers populate
// regardless of the chunk's compression codec. This is sufficient to find
// the earliest timestamp without needing an LZ4/Zstd dependency.
func ParseMCAPEarliestTimestamp(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("keyderiver: opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)

	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return time.Time{}, fmt.Errorf("keyderiver: reading magic: %w", err)
	}

	if magic != mcapMagic {
		return time.Time{}, ErrNotMCAP
	}

	return scanRecords(r)
}

// scanRecords walks the top-level record stream, tracking the minimum
// nanosecond timestamp seen across Message and Chunk records.
func scanRecords(r *bufio.Reader) (time.Time, error) {
	var (
		minNanos uint64
		found    bool
	)

	header := make([]byte, recordHeaderSize)

	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}

			return time.Time{}, fmt.Errorf("keyderiver: reading record header: %w", err)
		}

		opcode := header[0]
		length := binary.LittleEndian.Uint64(header[1:])

		if length > maxRecordLength {
			return time.Time{}, fmt.Errorf("keyderiver: record length %d exceeds sanity bound (opcode %d)", length, opcode)
		}

		content := make([]byte, length)
		if _, err := io.ReadFull(r, content); err != nil {
			return time.Time{}, fmt.Errorf("keyderiver: reading record body (opcode %d): %w", opcode, err)
		}

		switch opcode {
		case opMessage:
			if ts, ok := logTimeFromMessage(content); ok {
				minNanos, found = trackMin(minNanos, found, ts)
			}
		case opChunk:
			if ts, ok := messageStartTimeFromChunk(content); ok && ts != 0 {
				minNanos, found = trackMin(minNanos, found, ts)
			}
		case opMetadata:
			if ts, ok := earliestFromMetadata(content); ok {
				nanos := uint64(ts.UnixNano())
				minNanos, found = trackMin(minNanos, found, nanos)
			}
		case opFooter, opDataEnd:
			// Nothing past these carries message data worth scanning.
		case opHeader:
			// Library/profile info only; no timestamp.
		}
	}

	if !found {
		return time.Time{}, ErrNoTimestamp
	}

	return time.Unix(0, int64(minNanos)).UTC(), nil
}

func trackMin(current uint64, found bool, candidate uint64) (uint64, bool) {
	if !found || candidate < current {
		return candidate, true
	}

	return current, found
}

// logTimeFromMessage extracts the log_time (nanosecond epoch) field from a
// Message record's content.
func logTimeFromMessage(content []byte) (uint64, bool) {
	if len(content) < messageRecordLogTimeOffset+8 {
		return 0, false
	}

	return binary.LittleEndian.Uint64(content[messageRecordLogTimeOffset : messageRecordLogTimeOffset+8]), true
}

// messageStartTimeFromChunk extracts message_start_time from a Chunk
// record's content without decompressing the chunk's message data.
func messageStartTimeFromChunk(content []byte) (uint64, bool) {
	if len(content) < chunkMessageStartTimeOffset+8 {
		return 0, false
	}

	return binary.LittleEndian.Uint64(content[chunkMessageStartTimeOffset : chunkMessageStartTimeOffset+8]), true
}

// earliestFromMetadata decodes a Metadata record's (name, map[string]string)
// pair and looks for any key matching a recognized timestamp column name
// carrying a numeric epoch value, applying the epoch-unit thresholds.
func earliestFromMetadata(content []byte) (time.Time, bool) {
	entries, ok := decodeMetadataMap(content)
	if !ok {
		return time.Time{}, false
	}

	var (
		best  time.Time
		found bool
	)

	for k, v := range entries {
		if !IsTimestampColumnName(k) {
			continue
		}

		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}

		t := EpochFromNumeric(f)
		if !found || t.Before(best) {
			best, found = t, true
		}
	}

	return best, found
}

// decodeMetadataMap parses the Metadata record body: name (prefixed
// string), then a map of string->string pairs, each length-prefixed with a
// uint32. Malformed content returns ok=false rather than an error, since a
// metadata record that doesn't fit this shape just yields no extra
// timestamp candidates — it is not a reason to fail analysis.
func decodeMetadataMap(content []byte) (map[string]string, bool) {
	pos := 0

	nameLen, ok := readUint32(content, &pos)
	if !ok {
		return nil, false
	}

	pos += int(nameLen)

	mapLen, ok := readUint32(content, &pos)
	if !ok {
		return nil, false
	}

	end := pos + int(mapLen)
	if end > len(content) {
		return nil, false
	}

	entries := make(map[string]string)

	for pos < end {
		key, ok := readLengthPrefixedString(content, &pos)
		if !ok {
			return entries, true
		}

		val, ok := readLengthPrefixedString(content, &pos)
		if !ok {
			return entries, true
		}

		entries[key] = val
	}

	return entries, true
}

func readUint32(b []byte, pos *int) (uint32, bool) {
	if *pos+4 > len(b) {
		return 0, false
	}

	v := binary.LittleEndian.Uint32(b[*pos : *pos+4])
	*pos += 4

	return v, true
}

func readLengthPrefixedString(b []byte, pos *int) (string, bool) {
	l, ok := readUint32(b, pos)
	if !ok {
		return "", false
	}

	if *pos+int(l) > len(b) {
		return "", false
	}

	s := string(b[*pos : *pos+int(l)])
	*pos += int(l)

	return s, true
}
