package auditlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Query reads the partitioned journal tree rooted at <logDirectory>/json
// and returns records matching filter, newest-first, after offset/limit
// pagination. A non-zero filter.Date resolves directly to
// that day's hive path rather than walking the whole tree.
func Query(logDirectory string, filter QueryFilter) ([]Record, error) {
	root := NewJournal(logDirectory).root

	var paths []string

	if !filter.Date.IsZero() {
		p := journalPath(root, filter.Date)
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	} else {
		var err error

		paths, err = allJournalFiles(root)
		if err != nil {
			return nil, err
		}
	}

	var matched []Record

	for _, p := range paths {
		recs, err := readJournalFile(p)
		if err != nil {
			return nil, err
		}

		for _, r := range recs {
			if matchesFilter(r, filter) {
				matched = append(matched, r)
			}
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	return paginate(matched, filter.Offset, filter.Limit), nil
}

func matchesFilter(r Record, filter QueryFilter) bool {
	if filter.Level != "" && r.Level != filter.Level {
		return false
	}

	if filter.Category != "" && r.Category != filter.Category {
		return false
	}

	if filter.Substring != "" && !strings.Contains(r.Message, filter.Substring) &&
		!strings.Contains(r.Event, filter.Substring) {
		return false
	}

	return true
}

func paginate(recs []Record, offset, limit int) []Record {
	if offset < 0 {
		offset = 0
	}

	if offset >= len(recs) {
		return nil
	}

	recs = recs[offset:]

	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}

	return recs
}

func allJournalFiles(root string) ([]string, error) {
	var paths []string

	years, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("auditlog: read journal root: %w", err)
	}

	for _, y := range years {
		yearDir := filepath.Join(root, y.Name())

		months, err := os.ReadDir(yearDir)
		if err != nil {
			continue
		}

		for _, m := range months {
			monthDir := filepath.Join(yearDir, m.Name())

			days, err := os.ReadDir(monthDir)
			if err != nil {
				continue
			}

			for _, d := range days {
				p := filepath.Join(monthDir, d.Name(), "events.jsonl")
				if _, err := os.Stat(p); err == nil {
					paths = append(paths, p)
				}
			}
		}
	}

	return paths, nil
}

func readJournalFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("auditlog: open %s: %w", path, err)
	}
	defer f.Close()

	var recs []Record

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}

		recs = append(recs, r)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("auditlog: scan %s: %w", path, err)
	}

	return recs, nil
}
