package keyderiver

import "golang.org/x/text/unicode/norm"

// NormalizeFilename applies Unicode NFC normalization to a recording's base
// filename. Recordings arrive from operator workstations and external
// drives; macOS/exFAT volumes commonly hand back NFD-decomposed names for
// anything with an accented character, which would otherwise
// silently desync the dedup cache's (bucket, filename, size) rows and the
// object key's trailing filename segment from one run to the next for what
// is, on disk, the exact same file. Callers normalize once, at the point a
// filename is first read off disk (os.DirEntry.Name/filepath.Base), and
// thread the normalized form through cache lookups, key derivation, and
// FileState.Filename; the original, un-normalized path is still used for
// every actual filesystem operation (stat/open/unlink).
func NormalizeFilename(name string) string {
	return norm.NFC.String(name)
}
