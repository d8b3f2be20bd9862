package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Records carry full page text, so individual lines can run large.
const maxRecordBytes = 64 * 1024 * 1024

// ResumeIndex is the set of work identities already completed at an output
// location. It is built once per worker invocation, before any page is
// considered, and consulted on the per-page fast path.
type ResumeIndex map[string]struct{}

// Contains reports whether the work identity has already been completed.
func (ix ResumeIndex) Contains(workKey string) bool {
	_, ok := ix[workKey]
	return ok
}

// Add records a work identity as completed.
func (ix ResumeIndex) Add(workKey string) {
	ix[workKey] = struct{}{}
}

// resumeRecord is the subset of an output record the index needs.
type resumeRecord struct {
	WorkKey string   `json:"work_key"`
	Errors  []string `json:"errors"`
}

// BuildResumeIndex scans the artifact at location and returns the completed
// work identities. A missing artifact yields an empty index. Lines that fail
// to parse (a crash can truncate the final record) are skipped with a
// warning and never invalidate earlier valid records. Records with a
// populated errors field are not indexed, so failed pages are re-attempted
// on resubmission.
func BuildResumeIndex(location string, logger *slog.Logger) (ResumeIndex, error) {
	index := make(ResumeIndex)

	fh, err := os.Open(location)
	if err != nil {
		if os.IsNotExist(err) {
			return index, nil
		}
		return nil, fmt.Errorf("open output artifact: %w", err)
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 64*1024), maxRecordBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec resumeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("skipping unparseable record", "location", location, "line", line, "error", err)
			continue
		}
		if rec.WorkKey == "" {
			logger.Warn("skipping record without work key", "location", location, "line", line)
			continue
		}
		if len(rec.Errors) > 0 {
			continue
		}
		index.Add(rec.WorkKey)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan output artifact: %w", err)
	}
	return index, nil
}
